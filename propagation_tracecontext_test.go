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

func TestTraceContextForbiddenParentIDYieldsFreshContext(t *testing.T) {
	carrier := opentracing.TextMapCarrier{
		traceParentKey: "00-0af7651916cd43dd8448eb211c80319c-0000000000000000-01",
	}
	sc, err := traceContextPropagator{}.Extract(carrier)
	require.NoError(t, err)
	assert.True(t, sc.Valid())
}

func TestTraceContextForbiddenVersionFFYieldsFreshContext(t *testing.T) {
	carrier := opentracing.TextMapCarrier{
		traceParentKey: "ff-0af7651916cd43dd8448eb211c80319c-00f067aa0ba902b7-01",
	}
	sc, err := traceContextPropagator{}.Extract(carrier)
	require.NoError(t, err)
	assert.True(t, sc.Valid())
}

func TestTraceContextAllZeroTraceIDYieldsFreshContext(t *testing.T) {
	carrier := opentracing.TextMapCarrier{
		traceParentKey: "00-00000000000000000000000000000000-00f067aa0ba902b7-01",
	}
	sc, err := traceContextPropagator{}.Extract(carrier)
	require.NoError(t, err)
	assert.True(t, sc.Valid())
}

func TestTraceContextMissingHeaderYieldsFreshContext(t *testing.T) {
	sc, err := traceContextPropagator{}.Extract(opentracing.TextMapCarrier{})
	require.NoError(t, err)
	assert.True(t, sc.Valid())
}

func TestTraceContextDuplicateHeaderIsHardFailure(t *testing.T) {
	_, err := traceContextPropagator{}.Extract(opentracing.HTTPHeadersCarrier{
		"Traceparent": []string{"v1", "v2"},
	})
	assert.ErrorIs(t, err, ErrSpanContextCorrupted)
}

func TestTraceContextRoundTrip(t *testing.T) {
	sc := SpanContext{
		TraceIDHigh: 0x0af7651916cd43dd,
		TraceIDLow:  0x8448eb211c80319c,
		SpanID:      0x00f067aa0ba902b7,
		Sampled:     true,
		Baggage:     map[string]string{"trace-flags": "1"},
	}
	carrier := opentracing.TextMapCarrier{}
	p := traceContextPropagator{}
	require.NoError(t, p.Inject(sc, carrier))
	assert.Equal(t, "00-0af7651916cd43dd8448eb211c80319c-00f067aa0ba902b7-01", carrier[traceParentKey])

	got, err := p.Extract(carrier)
	require.NoError(t, err)
	assert.Equal(t, sc.TraceIDHigh, got.TraceIDHigh)
	assert.Equal(t, sc.TraceIDLow, got.TraceIDLow)
	assert.Equal(t, sc.SpanID, got.SpanID)
	assert.True(t, got.Sampled)
}

func TestTraceContextInjectFlagsIgnoreSampledWithoutBaggageKey(t *testing.T) {
	sc := SpanContext{
		TraceIDHigh: 0x0af7651916cd43dd,
		TraceIDLow:  0x8448eb211c80319c,
		SpanID:      0x00f067aa0ba902b7,
		Sampled:     true,
		Baggage:     map[string]string{},
	}
	carrier := opentracing.TextMapCarrier{}
	require.NoError(t, traceContextPropagator{}.Inject(sc, carrier))
	assert.Equal(t, "00-0af7651916cd43dd8448eb211c80319c-00f067aa0ba902b7-00", carrier[traceParentKey])
}

func TestTraceStateRoundTrip(t *testing.T) {
	v, ok := parseTraceState("vendor1=value1,vendor2=value2")
	require.True(t, ok)
	assert.Equal(t, "vendor1=value1,vendor2=value2", v)
}

func TestTraceStateDuplicateKeyFails(t *testing.T) {
	_, ok := parseTraceState("vendor1=a,vendor1=b")
	assert.False(t, ok)
}
