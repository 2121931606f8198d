// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextMapRoundTrip(t *testing.T) {
	sc := SpanContext{
		TraceIDLow: 0xaef5705a09004083,
		SpanID:     0xb341,
		Sampled:    true,
		Baggage:    map[string]string{"checked": "a value with spaces"},
	}

	carrier := opentracing.TextMapCarrier{}
	p := textMapPropagator{}
	require.NoError(t, p.Inject(sc, carrier))

	assert.Equal(t, "aef5705a09004083", carrier[textMapTraceIDKey])
	assert.Equal(t, "b341", carrier[textMapSpanIDKey])
	assert.Equal(t, "true", carrier[textMapSampledKey])

	got, err := p.Extract(carrier)
	require.NoError(t, err)
	assert.Equal(t, sc.TraceIDLow, got.TraceIDLow)
	assert.Equal(t, sc.SpanID, got.SpanID)
	assert.Equal(t, sc.Sampled, got.Sampled)
	assert.Equal(t, "a value with spaces", got.Baggage["checked"])
}

func TestTextMapExtractMissingFieldsFails(t *testing.T) {
	p := textMapPropagator{}
	_, err := p.Extract(opentracing.TextMapCarrier{textMapTraceIDKey: "abc"})
	assert.ErrorIs(t, err, ErrSpanContextCorrupted)
}

func TestTextMapInvalidCarrier(t *testing.T) {
	p := textMapPropagator{}
	_, err := p.Extract(42)
	assert.ErrorIs(t, err, ErrInvalidCarrier)
	assert.ErrorIs(t, p.Inject(SpanContext{}, 42), ErrInvalidCarrier)
}
