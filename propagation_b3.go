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
	b3TraceIDKey      = "x-b3-traceid"
	b3SpanIDKey       = "x-b3-spanid"
	b3ParentSpanIDKey = "x-b3-parentspanid"
	b3SampledKey      = "x-b3-sampled"
	b3FlagsKey        = "x-b3-flags"
)

// b3MultiPropagator implements the B3 multi-header format.
type b3MultiPropagator struct{}

func (b3MultiPropagator) Inject(sc SpanContext, carrier interface{}) error {
	writer, ok := carrier.(opentracing.TextMapWriter)
	if !ok {
		return ErrInvalidCarrier
	}
	writer.Set(b3TraceIDKey, idToHex(sc.traceID64()))
	writer.Set(b3SpanIDKey, idToHex(sc.SpanID))

	flags, hasFlags := sc.Baggage["x-b3-flags"]
	if hasFlags && flags == "1" {
		writer.Set(b3FlagsKey, "1")
	} else if sc.Sampled {
		writer.Set(b3SampledKey, "1")
	} else {
		writer.Set(b3SampledKey, "0")
	}
	for k, v := range sc.Baggage {
		if k == "x-b3-flags" {
			continue
		}
		writer.Set(k, v)
	}
	return nil
}

func (b3MultiPropagator) Extract(carrier interface{}) (SpanContext, error) {
	reader, ok := carrier.(opentracing.TextMapReader)
	if !ok {
		return SpanContext{}, ErrInvalidCarrier
	}

	var traceID, spanID string
	haveTrace, haveSpan := false, false
	var sampled, flags string
	haveSampled, haveFlags := false, false
	baggage := map[string]string{}

	err := reader.ForeachKey(func(key, val string) error {
		lower := strings.ToLower(key)
		switch lower {
		case b3TraceIDKey:
			traceID, haveTrace = val, true
		case b3SpanIDKey:
			spanID, haveSpan = val, true
		case b3SampledKey:
			sampled, haveSampled = val, true
		case b3FlagsKey:
			flags, haveFlags = val, true
		case b3ParentSpanIDKey:
			baggage[b3ParentSpanIDKey] = val
		default:
			baggage[lower] = val
		}
		return nil
	})
	if err != nil {
		return SpanContext{}, fmt.Errorf("b3 multi: %w", err)
	}

	if !(haveTrace && haveSpan) && !haveSampled && !haveFlags {
		return SpanContext{}, fmt.Errorf("b3 multi missing required fields: %w", ErrSpanContextCorrupted)
	}

	sc := SpanContext{Baggage: baggage}
	if haveTrace {
		v, err := hexToUint64(traceID)
		if err != nil {
			return SpanContext{}, fmt.Errorf("b3 multi trace id: %w", ErrSpanContextCorrupted)
		}
		sc.TraceIDLow = v
	}
	if haveSpan {
		v, err := hexToUint64(spanID)
		if err != nil {
			return SpanContext{}, fmt.Errorf("b3 multi span id: %w", ErrSpanContextCorrupted)
		}
		sc.SpanID = v
	}
	if haveFlags && flags == "1" {
		sc.Sampled = true
	} else if haveSampled {
		sc.Sampled = sampled == "1" || strings.EqualFold(sampled, "true")
	}
	return sc, nil
}

// b3SinglePropagator implements the B3 single-header format:
// traceid-spanid-sampled[-parentspanid], or the short forms sampled,
// traceid-spanid, traceid-spanid-sampled.
type b3SinglePropagator struct{}

const b3SingleHeaderKey = "b3"

func (b3SinglePropagator) Inject(sc SpanContext, carrier interface{}) error {
	writer, ok := carrier.(opentracing.TextMapWriter)
	if !ok {
		return ErrInvalidCarrier
	}
	sampled := "0"
	if sc.Sampled {
		sampled = "1"
	}
	value := fmt.Sprintf("%s-%s-%s", idToHex(sc.traceID64()), idToHex(sc.SpanID), sampled)
	if parent, ok := sc.Baggage[b3ParentSpanIDKey]; ok {
		value += "-" + parent
	}
	writer.Set(b3SingleHeaderKey, value)
	return nil
}

func (b3SinglePropagator) Extract(carrier interface{}) (SpanContext, error) {
	reader, ok := carrier.(opentracing.TextMapReader)
	if !ok {
		return SpanContext{}, ErrInvalidCarrier
	}

	var raw string
	found := false
	baggage := map[string]string{}
	err := reader.ForeachKey(func(key, val string) error {
		if strings.ToLower(key) == b3SingleHeaderKey {
			raw, found = val, true
			return nil
		}
		baggage[strings.ToLower(key)] = val
		return nil
	})
	if err != nil {
		return SpanContext{}, fmt.Errorf("b3 single: %w", err)
	}
	if !found {
		return SpanContext{}, fmt.Errorf("b3 single missing header: %w", ErrSpanContextCorrupted)
	}

	parts := strings.Split(raw, "-")
	sc := SpanContext{Baggage: baggage}

	switch len(parts) {
	case 1:
		// bare "sampled" short form
		if err := applyB3SingleSampled(&sc, parts[0]); err != nil {
			return SpanContext{}, err
		}
		return sc, nil
	case 2, 3, 4:
		traceID, err := hexToUint64(parts[0])
		if err != nil {
			return SpanContext{}, fmt.Errorf("b3 single trace id: %w", ErrSpanContextCorrupted)
		}
		spanID, err := hexToUint64(parts[1])
		if err != nil {
			return SpanContext{}, fmt.Errorf("b3 single span id: %w", ErrSpanContextCorrupted)
		}
		sc.TraceIDLow = traceID
		sc.SpanID = spanID
		if len(parts) >= 3 {
			if err := applyB3SingleSampled(&sc, parts[2]); err != nil {
				return SpanContext{}, err
			}
		}
		if len(parts) == 4 {
			parentID, err := hexToUint64(parts[3])
			if err != nil {
				return SpanContext{}, fmt.Errorf("b3 single parent id: %w", ErrSpanContextCorrupted)
			}
			sc.Baggage[b3ParentSpanIDKey] = strconv.FormatUint(parentID, 10)
		}
		return sc, nil
	default:
		return SpanContext{}, fmt.Errorf("b3 single malformed header: %w", ErrSpanContextCorrupted)
	}
}

// applyB3SingleSampled applies the sampled/flags token: "d" means
// flags=1 (debug, implies sampled); any other hex digit value becomes
// sampled=int(value,16) != 0, with the parsed value recorded in decimal in
// baggage as x-b3-sampled.
func applyB3SingleSampled(sc *SpanContext, token string) error {
	if token == "d" {
		sc.Sampled = true
		sc.Baggage[b3FlagsKey] = "1"
		return nil
	}
	v, err := strconv.ParseUint(token, 16, 64)
	if err != nil {
		return fmt.Errorf("b3 single sampled token: %w", ErrSpanContextCorrupted)
	}
	sc.Sampled = v != 0
	sc.Baggage[b3SampledKey] = strconv.FormatUint(v, 10)
	return nil
}
