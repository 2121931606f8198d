// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"fmt"
	"sync"

	"github.com/opentracing/opentracing-go"
)

// ConfigError is returned from New when the supplied configuration cannot
// produce a usable recorder (InvalidConfig in the error taxonomy): an empty
// access token, or a non-positive max span records.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("lightstep: invalid configuration: %s", e.Reason)
}

// ErrSpanContextCorrupted and ErrInvalidCarrier are the sentinel errors
// returned by propagator Extract implementations, reused directly from
// opentracing-go rather than duplicated as parallel sentinels.
var (
	ErrSpanContextCorrupted = opentracing.ErrSpanContextCorrupted
	ErrInvalidCarrier       = opentracing.ErrInvalidCarrier
)

// errBufferFull and errLostData carry an aggregable error shape for
// diagnostic logging; neither is ever returned to a caller (BufferFull
// and TransportFailure are not caller-visible per the error taxonomy), they
// are inputs for aggregateErrors. The recorder and its background flusher
// do not construct them or call aggregateErrors.
type errBufferFull struct {
	name string
	size int
}

func (e *errBufferFull) Error() string {
	return fmt.Sprintf("%s buffer full (size: %d)", e.name, e.size)
}

type errLostData struct {
	name  string
	count int
}

func (e *errLostData) Error() string {
	return fmt.Sprintf("lost %d %s", e.count, e.name)
}

// errorSummary aggregates repeated identical-type errors into a count and
// one representative example, for periodic diagnostic logging without
// repeating the same line every flush cycle.
type errorSummary struct {
	Count   int
	Example error
}

// aggregateErrors groups errs by their concrete %T type into
// map[string]errorSummary, recording one example per type and a running
// count, for periodic summary logging instead of one line per error.
func aggregateErrors(errs []error) map[string]errorSummary {
	out := make(map[string]errorSummary)
	for _, err := range errs {
		if err == nil {
			continue
		}
		key := fmt.Sprintf("%T", err)
		s := out[key]
		s.Count++
		if s.Example == nil {
			s.Example = err
		}
		out[key] = s
	}
	return out
}

// dropCounter is an atomic-via-mutex counter exposing BufferFull drops,
// since the taxonomy treats a full buffer as "not an error" — observable
// only through Recorder.Dropped().
type dropCounter struct {
	mu    sync.Mutex
	count uint64
}

func (d *dropCounter) inc() {
	d.mu.Lock()
	d.count++
	d.mu.Unlock()
}

func (d *dropCounter) value() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}
