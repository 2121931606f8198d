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

func TestProtobufConverterBuildAndEncode(t *testing.T) {
	conv := newProtobufConverter()
	identity := newReporterIdentity("svc", map[string]string{"team": "tracing"})

	parent := uint64(99)
	span := Span{
		Context:       SpanContext{TraceIDLow: 1, SpanID: 2, Sampled: true},
		OperationName: "op",
		Start:         time.Unix(1700000000, 500),
		Duration:      3 * time.Millisecond,
		ParentSpanID:  &parent,
		Tags: map[string]interface{}{
			"join:customer_id": "c-123",
			"http.status_code": 200,
		},
		Logs: []LogRecord{
			{Timestamp: time.Now(), Fields: map[string]interface{}{"event": "retry"}},
		},
	}

	rec := recordFromSpan(conv, span)
	assert.Equal(t, "op", conv.GetSpanName(rec))

	runtime := conv.CreateRuntime(identity)
	report := conv.CreateReport(runtime, []interface{}{rec})
	assert.Equal(t, 1, conv.NumSpanRecords(report))
	assert.Len(t, conv.GetSpanRecords(report), 1)

	auth := conv.CreateAuth("tok")
	body, err := conv.Encode(auth, report)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}

func TestProtobufDecodeResponseDisable(t *testing.T) {
	conv := newProtobufConverter()
	// hand-encode a ReportResponse carrying one command with disable=true
	cmd := []byte{}
	cmd = append(cmd, 0x08, 0x01) // field 1 varint true
	var resp []byte
	resp = append(resp, 0x0a, byte(len(cmd)))
	resp = append(resp, cmd...)

	disable, err := conv.DecodeResponse(resp)
	require.NoError(t, err)
	assert.True(t, disable)
}

func TestProtobufDecodeResponseEmpty(t *testing.T) {
	conv := newProtobufConverter()
	disable, err := conv.DecodeResponse(nil)
	require.NoError(t, err)
	assert.False(t, disable)
}
