// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThriftConverterEncode(t *testing.T) {
	conv := newThriftConverter()
	identity := newReporterIdentity("svc", map[string]string{"team": "tracing"})

	parent := uint64(7)
	span := Span{
		Context:       SpanContext{TraceIDHigh: 0xFF, TraceIDLow: 42, SpanID: 99, Sampled: true},
		OperationName: "thrift-op",
		Start:         time.Unix(1700000000, 0),
		Duration:      2 * time.Millisecond,
		ParentSpanID:  &parent,
		Tags:          map[string]interface{}{"join:order_id": "o-1"},
	}

	rec := recordFromSpan(conv, span)
	spanRec := rec.(*thriftSpanRecord)
	// trace id is truncated to 64 bits at Thrift-serialization time.
	assert.Equal(t, idToHex(42), spanRec.TraceGUID)
	assert.Equal(t, idToHex(parent), spanRecAttr(spanRec, parentGUIDAttr))

	runtime := conv.CreateRuntime(identity)
	report := conv.CreateReport(runtime, []interface{}{rec})
	auth := conv.CreateAuth("tok")

	body, err := conv.Encode(auth, report)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}

func spanRecAttr(rec *thriftSpanRecord, key string) string {
	for _, kv := range rec.Attrs {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}
