// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"os"
	"strings"
	"time"
)

// joinIDPrefix marks a tag key as a correlation id rather than an ordinary
// attribute, split out at record time for collector-side indexing.
const joinIDPrefix = "join:"

// LogRecord is a single timestamped event attached to a span. Special
// field keys error.kind, stack, and error.object receive value-specific
// formatting in coerceStr/formatExcType/formatExcTB before wire emission.
type LogRecord struct {
	Timestamp time.Time
	Fields    map[string]interface{}
}

// Span is the unit the recorder consumes: a finished operation with its
// context, timing, tags, and logs. Spans are created and owned by the
// upstream instrumentation API; ownership transfers to the recorder at
// Record time.
type Span struct {
	Context       SpanContext
	OperationName string
	Start         time.Time
	Duration      time.Duration
	ParentSpanID  *uint64
	Tags          map[string]interface{}
	Logs          []LogRecord
}

// isJoinKey reports whether k denotes a join-id tag rather than an
// ordinary attribute.
func isJoinKey(k string) bool {
	return strings.HasPrefix(k, joinIDPrefix)
}

// joinKeyName strips the join: prefix, yielding the bare correlation key.
func joinKeyName(k string) string {
	return strings.TrimPrefix(k, joinIDPrefix)
}

// defaultComponentName returns the executable's base name, the fallback
// component_name when the caller does not supply one.
func defaultComponentName() string {
	exe, err := os.Executable()
	if err != nil {
		return "unknown"
	}
	parts := strings.Split(strings.ReplaceAll(exe, `\`, "/"), "/")
	return parts[len(parts)-1]
}
