// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"regexp"
	"strings"
)

// baggageKeyPattern is the canonical-key grammar: lower-case alphanumerics
// and hyphens, must start with an alphanumeric.
var baggageKeyPattern = regexp.MustCompile(`^[a-z0-9][-a-z0-9]*$`)

// canonicalizeBaggageKey lower-cases key and reports whether the result
// matches the canonical grammar. Non-matching keys are returned lower-cased
// with ok=false: SpanContext storage is permissive (callers may still read
// back what they wrote), only wire formats that mandate the canonical form
// reject or skip non-canonical keys.
func canonicalizeBaggageKey(key string) (canon string, ok bool) {
	lower := strings.ToLower(key)
	return lower, baggageKeyPattern.MatchString(lower)
}

// SpanContext is the identity carried across process boundaries: a 128-bit
// trace id (as two halves; some legacy wire formats only carry the low 64
// bits), a 64-bit span id, the sampling decision, and string baggage.
type SpanContext struct {
	TraceIDHigh uint64
	TraceIDLow  uint64
	SpanID      uint64
	Sampled     bool
	Baggage     map[string]string
}

// NewSpanContext constructs a context with a freshly generated 128-bit
// trace id and span id, sampled by default — the "fresh random-rooted
// context" propagator extract falls back to on malformed input.
func NewSpanContext() SpanContext {
	high, low := generateTraceID()
	return SpanContext{
		TraceIDHigh: high,
		TraceIDLow:  low,
		SpanID:      generateSpanID(),
		Sampled:     true,
		Baggage:     map[string]string{},
	}
}

// Valid reports whether the context has a non-zero trace id and span id.
func (c SpanContext) Valid() bool {
	return (c.TraceIDHigh != 0 || c.TraceIDLow != 0) && c.SpanID != 0
}

// WithBaggageItem returns a copy of c with key/value set. key is
// canonicalized when it matches the baggage grammar; otherwise it is
// stored as given.
func (c SpanContext) WithBaggageItem(key, value string) SpanContext {
	canon, ok := canonicalizeBaggageKey(key)
	if !ok {
		canon = key
	}
	next := make(map[string]string, len(c.Baggage)+1)
	for k, v := range c.Baggage {
		next[k] = v
	}
	next[canon] = value
	c.Baggage = next
	return c
}

// BaggageItem returns the value stored for key, matched case-insensitively
// against canonical keys; a non-canonical key is looked up as given, the
// way WithBaggageItem stored it.
func (c SpanContext) BaggageItem(key string) (string, bool) {
	canon, ok := canonicalizeBaggageKey(key)
	if !ok {
		canon = key
	}
	v, ok := c.Baggage[canon]
	return v, ok
}

// ForeachBaggageItem iterates baggage in unspecified order; handler
// returning false stops iteration early.
func (c SpanContext) ForeachBaggageItem(handler func(k, v string) bool) {
	for k, v := range c.Baggage {
		if !handler(k, v) {
			return
		}
	}
}

// traceID64 returns the low 64 bits of the trace id, the representation the
// Thrift wire variant and legacy text-map propagators carry.
func (c SpanContext) traceID64() uint64 {
	return c.TraceIDLow
}
