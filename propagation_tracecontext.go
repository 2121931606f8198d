// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opentracing/opentracing-go"
)

const (
	traceParentKey = "traceparent"
	traceStateKey  = "tracestate"
	maxTraceStateMembers = 32
)

// traceContextPropagator implements W3C Trace Context.
type traceContextPropagator struct{}

func (traceContextPropagator) Inject(sc SpanContext, carrier interface{}) error {
	writer, ok := carrier.(opentracing.TextMapWriter)
	if !ok {
		return ErrInvalidCarrier
	}

	baggage := make(map[string]string, len(sc.Baggage))
	for k, v := range sc.Baggage {
		baggage[k] = v
	}
	flags := uint64(0)
	if raw, ok := baggage["trace-flags"]; ok {
		if v, err := strconv.ParseUint(raw, 10, 8); err == nil {
			flags = v
		}
		delete(baggage, "trace-flags")
	}

	value := fmt.Sprintf("00-%s-%s-%s",
		idToHexPadded(sc.TraceIDHigh, 16)+idToHexPadded(sc.TraceIDLow, 16),
		idToHexPadded(sc.SpanID, 16),
		idToHexPadded(flags, 2),
	)
	writer.Set(traceParentKey, value)

	if ts, ok := baggage[traceStateKey]; ok {
		writer.Set(traceStateKey, ts)
		delete(baggage, traceStateKey)
	}
	for k, v := range baggage {
		writer.Set(k, v)
	}
	return nil
}

func (traceContextPropagator) Extract(carrier interface{}) (SpanContext, error) {
	reader, ok := carrier.(opentracing.TextMapReader)
	if !ok {
		return SpanContext{}, ErrInvalidCarrier
	}

	var traceParentVals, traceStateVals []string
	baggage := map[string]string{}

	err := reader.ForeachKey(func(key, val string) error {
		switch strings.ToLower(key) {
		case traceParentKey:
			traceParentVals = append(traceParentVals, val)
		case traceStateKey:
			traceStateVals = append(traceStateVals, val)
		default:
			baggage[strings.ToLower(key)] = val
		}
		return nil
	})
	if err != nil {
		return SpanContext{}, fmt.Errorf("trace context: %w", err)
	}

	if len(traceParentVals) > 1 || len(traceStateVals) > 1 {
		return SpanContext{}, fmt.Errorf("duplicate traceparent/tracestate header: %w", ErrSpanContextCorrupted)
	}

	if len(traceParentVals) == 0 {
		return NewSpanContext(), nil
	}

	high, low, spanID, flags, ok := parseTraceParent(traceParentVals[0])
	if !ok {
		return NewSpanContext(), nil
	}

	sampled := flags&0x01 != 0
	if flags&^uint8(0x01) != 0 {
		// reserved bits set; tolerated, not fatal.
	}
	baggage["trace-flags"] = strconv.Itoa(int(flags))

	if len(traceStateVals) == 1 {
		if normalized, ok := parseTraceState(traceStateVals[0]); ok {
			baggage[traceStateKey] = normalized
		} else {
			return SpanContext{}, fmt.Errorf("malformed tracestate: %w", ErrSpanContextCorrupted)
		}
	}

	return SpanContext{
		TraceIDHigh: high,
		TraceIDLow:  low,
		SpanID:      spanID,
		Sampled:     sampled,
		Baggage:     baggage,
	}, nil
}

func isAllZeroHex(s string) bool {
	for _, r := range s {
		if r != '0' {
			return false
		}
	}
	return true
}

// parseTraceParent parses the traceparent grammar. ok=false signals any of
// the "fresh random-rooted context" failure modes (not an error):
// unparseable version, version=ff, post-v0 length <55, forbidden
// trace_id/parent_id, non-hex content, or a v0 value with trailing data.
func parseTraceParent(v string) (high, low, spanID uint64, flags uint8, ok bool) {
	parts := strings.Split(v, "-")
	if len(parts) < 4 {
		return 0, 0, 0, 0, false
	}
	version := parts[0]
	if len(version) != 2 || !isHex(version) {
		return 0, 0, 0, 0, false
	}
	if strings.EqualFold(version, "ff") {
		return 0, 0, 0, 0, false
	}
	traceIDHex := parts[1]
	parentIDHex := parts[2]
	flagsHex := parts[3]
	if len(traceIDHex) != 32 || !isHex(traceIDHex) {
		return 0, 0, 0, 0, false
	}
	if len(parentIDHex) != 16 || !isHex(parentIDHex) {
		return 0, 0, 0, 0, false
	}
	if len(flagsHex) != 2 || !isHex(flagsHex) {
		return 0, 0, 0, 0, false
	}
	if isAllZeroHex(traceIDHex) || isAllZeroHex(parentIDHex) {
		return 0, 0, 0, 0, false
	}

	if version == "00" {
		if len(parts) != 4 {
			return 0, 0, 0, 0, false
		}
	} else {
		if len(v) < 55 {
			return 0, 0, 0, 0, false
		}
	}

	hi, err := hexToUint64(traceIDHex[:16])
	if err != nil {
		return 0, 0, 0, 0, false
	}
	lo, err := hexToUint64(traceIDHex[16:])
	if err != nil {
		return 0, 0, 0, 0, false
	}
	sid, err := hexToUint64(parentIDHex)
	if err != nil {
		return 0, 0, 0, 0, false
	}
	fl, err := strconv.ParseUint(flagsHex, 16, 8)
	if err != nil {
		return 0, 0, 0, 0, false
	}
	return hi, lo, sid, uint8(fl), true
}

func isHex(s string) bool {
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

// parseTraceState validates and rejoins a comma-separated tracestate list:
// at most 32 key=value members, insertion order preserved, blank members
// skipped, duplicate key aborts parsing of the entire list.
func parseTraceState(v string) (string, bool) {
	members := strings.Split(v, ",")
	seen := map[string]bool{}
	var kept []string
	for _, m := range members {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		eq := strings.IndexByte(m, '=')
		if eq <= 0 {
			return "", false
		}
		key := m[:eq]
		if !isTraceStateKey(key) {
			return "", false
		}
		if seen[key] {
			return "", false
		}
		seen[key] = true
		kept = append(kept, m)
		if len(kept) > maxTraceStateMembers {
			return "", false
		}
	}
	return strings.Join(kept, ","), true
}

// isTraceStateKey matches the W3C tenant-key grammar loosely: lowercase
// alphanumerics, hyphens, underscores, slashes, dots, and an optional
// "@tenant" suffix.
func isTraceStateKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '/', r == '*', r == '@', r == '.':
		default:
			return false
		}
	}
	return true
}
