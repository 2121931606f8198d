// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConnection struct {
	ready      bool
	openErr    error
	reportErr  error
	disable    bool
	reports    int
	lastReport interface{}
}

func (m *mockConnection) Open() error {
	if m.openErr != nil {
		return m.openErr
	}
	m.ready = true
	return nil
}

func (m *mockConnection) Ready() bool { return m.ready }

func (m *mockConnection) Close() { m.ready = false }

func (m *mockConnection) Report(ctx context.Context, auth interface{}, report interface{}) (reportResponse, error) {
	m.reports++
	m.lastReport = report
	if m.reportErr != nil {
		return reportResponse{}, m.reportErr
	}
	return reportResponse{Disable: m.disable}, nil
}

func newTestSpan(name string) Span {
	return Span{
		Context:       NewSpanContext(),
		OperationName: name,
		Start:         time.Now(),
		Duration:      time.Millisecond,
		Tags:          map[string]interface{}{},
	}
}

func newTestRecorder(t *testing.T, cap int) *Recorder {
	t.Helper()
	r, err := New(
		WithAccessToken("test-token"),
		WithMaxSpanRecords(cap),
		WithPeriodicFlush(0), // no background flusher; tests drive Flush directly
	)
	require.NoError(t, err)
	return r
}

func TestRecordAdmissionAndOverflow(t *testing.T) {
	r := newTestRecorder(t, 3)

	for _, name := range []string{"A", "B", "C", "D"} {
		r.Record(newTestSpan(name))
	}
	assert.Len(t, r.buffer, 3)
	assert.Equal(t, uint64(1), r.Dropped())
}

func TestFlushAndRestoreOnFailure(t *testing.T) {
	r := newTestRecorder(t, 3)
	for _, name := range []string{"A", "B", "C"} {
		r.Record(newTestSpan(name))
	}
	require.Len(t, r.buffer, 3)

	failing := &mockConnection{ready: true, reportErr: errors.New("network down")}
	ok := r.Flush(failing)
	assert.False(t, ok)
	// restore-on-failure put the batch back; buffer still holds 3 records
	assert.Len(t, r.buffer, 3)

	r.Record(newTestSpan("D"))
	r.Record(newTestSpan("E"))
	// cap is 3 and the restored A, B, C fill it: D and E are dropped at admission
	assert.Len(t, r.buffer, 3)
}

func TestFlushEmptyReturnsFalse(t *testing.T) {
	r := newTestRecorder(t, 3)
	conn := &mockConnection{ready: true}
	assert.False(t, r.Flush(conn))
	assert.Equal(t, 0, conn.reports)
}

func TestFlushSuccessDrainsBuffer(t *testing.T) {
	r := newTestRecorder(t, 3)
	r.Record(newTestSpan("A"))
	conn := &mockConnection{ready: true}
	assert.True(t, r.Flush(conn))
	assert.Len(t, r.buffer, 0)
	assert.Equal(t, 1, conn.reports)
}

func TestRemoteDisableStopsFutureRecording(t *testing.T) {
	r := newTestRecorder(t, 3)
	r.Record(newTestSpan("A"))

	conn := &mockConnection{ready: true, disable: true}
	sent, disable := r.flushWorker(context.Background(), conn)
	assert.True(t, sent)
	assert.True(t, disable)
	r.Shutdown(false)
	assert.True(t, r.Disabled())

	r.Record(newTestSpan("B"))
	assert.Len(t, r.buffer, 0)
	assert.False(t, r.Flush(conn))
}

func TestShutdownIdempotent(t *testing.T) {
	r := newTestRecorder(t, 3)
	r.Record(newTestSpan("A"))
	conn := &mockConnection{ready: true}
	r.connOnce.Do(func() { r.conn = conn })

	first := r.Shutdown(true)
	assert.True(t, first)
	assert.True(t, r.Disabled())

	second := r.Shutdown(true)
	assert.False(t, second)
	// only one Report call total, from the first Shutdown's flush
	assert.Equal(t, 1, conn.reports)
}

func TestRecordNoOpAfterShutdown(t *testing.T) {
	r := newTestRecorder(t, 3)
	r.Shutdown(false)
	r.Record(newTestSpan("A"))
	assert.Len(t, r.buffer, 0)
	assert.Equal(t, uint64(0), r.Dropped())
}
