// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/opentracing/opentracing-go"
)

const (
	textMapTraceIDKey = "ot-tracer-traceid"
	textMapSpanIDKey  = "ot-tracer-spanid"
	textMapSampledKey = "ot-tracer-sampled"
	textMapBaggagePfx = "ot-baggage-"
)

// textMapPropagator implements the legacy text-map/HTTP-headers format
// unpadded lowercase hex ids, a literal "true"/"false" sampled
// flag, and URL-escaped baggage values under an ot-baggage- prefix. It
// operates on any carrier satisfying opentracing's TextMapWriter/Reader,
// which both TextMapCarrier and HTTPHeadersCarrier do — reusing the
// corpus's carrier types rather than inventing a parallel one.
type textMapPropagator struct{}

func (textMapPropagator) Inject(sc SpanContext, carrier interface{}) error {
	writer, ok := carrier.(opentracing.TextMapWriter)
	if !ok {
		return ErrInvalidCarrier
	}
	writer.Set(textMapTraceIDKey, idToHex(sc.traceID64()))
	writer.Set(textMapSpanIDKey, idToHex(sc.SpanID))
	if sc.Sampled {
		writer.Set(textMapSampledKey, "true")
	} else {
		writer.Set(textMapSampledKey, "false")
	}
	for k, v := range sc.Baggage {
		writer.Set(textMapBaggagePfx+k, url.QueryEscape(v))
	}
	return nil
}

func (textMapPropagator) Extract(carrier interface{}) (SpanContext, error) {
	reader, ok := carrier.(opentracing.TextMapReader)
	if !ok {
		return SpanContext{}, ErrInvalidCarrier
	}

	var traceID, spanID, sampled string
	haveTrace, haveSpan, haveSampled := false, false, false
	baggage := map[string]string{}

	err := reader.ForeachKey(func(key, val string) error {
		lower := strings.ToLower(key)
		switch lower {
		case textMapTraceIDKey:
			traceID, haveTrace = val, true
		case textMapSpanIDKey:
			spanID, haveSpan = val, true
		case textMapSampledKey:
			sampled, haveSampled = val, true
		default:
			if strings.HasPrefix(lower, textMapBaggagePfx) {
				bk := strings.TrimPrefix(lower, textMapBaggagePfx)
				if unescaped, uerr := url.QueryUnescape(val); uerr == nil {
					baggage[bk] = unescaped
				} else {
					baggage[bk] = val
				}
			}
		}
		return nil
	})
	if err != nil {
		return SpanContext{}, fmt.Errorf("text map: %w", err)
	}
	if !haveTrace || !haveSpan || !haveSampled {
		return SpanContext{}, fmt.Errorf("text map missing tracer-state field: %w", ErrSpanContextCorrupted)
	}

	traceLow, err := hexToUint64(traceID)
	if err != nil {
		return SpanContext{}, fmt.Errorf("text map trace id: %w", ErrSpanContextCorrupted)
	}
	spanVal, err := hexToUint64(spanID)
	if err != nil {
		return SpanContext{}, fmt.Errorf("text map span id: %w", ErrSpanContextCorrupted)
	}

	return SpanContext{
		TraceIDLow: traceLow,
		SpanID:     spanVal,
		Sampled:    sampled == "true",
		Baggage:    baggage,
	}, nil
}
