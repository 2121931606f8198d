// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvoyBinaryRoundTrip(t *testing.T) {
	sc := SpanContext{
		TraceIDLow: 506100417967962170,
		SpanID:     6397081719746291766,
		Sampled:    true,
		Baggage:    map[string]string{"checked": "baggage"},
	}
	var buf []byte
	p := envoyBinaryPropagator{}
	require.NoError(t, p.Inject(sc, &buf))

	got, err := p.Extract(&buf)
	require.NoError(t, err)
	assert.Equal(t, sc.TraceIDLow, got.TraceIDLow)
	assert.Equal(t, sc.SpanID, got.SpanID)
	assert.True(t, got.Sampled)
	assert.Equal(t, "baggage", got.Baggage["checked"])
}

func TestLightStepBinaryRoundTrip(t *testing.T) {
	sc := SpanContext{
		TraceIDLow: 506100417967962170,
		SpanID:     6397081719746291766,
		Sampled:    true,
		Baggage:    map[string]string{"checked": "baggage"},
	}
	var buf []byte
	p := lightstepBinaryPropagator{}
	require.NoError(t, p.Inject(sc, &buf))

	got, err := p.Extract(&buf)
	require.NoError(t, err)
	assert.Equal(t, sc.TraceIDLow, got.TraceIDLow)
	assert.Equal(t, sc.SpanID, got.SpanID)
	assert.True(t, got.Sampled)
	assert.Equal(t, "baggage", got.Baggage["checked"])
}

func TestLightStepBinaryExtractKnownVector(t *testing.T) {
	buf := []byte("EigJOjioEaYHBgcRNmifUO7/xlgYASISCgdjaGVja2VkEgdiYWdnYWdl")
	got, err := lightstepBinaryPropagator{}.Extract(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(506100417967962170), got.TraceIDLow)
	assert.Equal(t, uint64(6397081719746291766), got.SpanID)
	assert.True(t, got.Sampled)
	assert.Equal(t, "baggage", got.Baggage["checked"])
}

func TestBinaryInvalidCarrier(t *testing.T) {
	assert.ErrorIs(t, envoyBinaryPropagator{}.Inject(SpanContext{}, "not a buffer"), ErrInvalidCarrier)
	assert.ErrorIs(t, lightstepBinaryPropagator{}.Inject(SpanContext{}, "not a buffer"), ErrInvalidCarrier)
}

func TestEnvoyBinaryTruncatedCarrier(t *testing.T) {
	buf := []byte{0, 0}
	_, err := envoyBinaryPropagator{}.Extract(&buf)
	assert.ErrorIs(t, err, ErrSpanContextCorrupted)
}
