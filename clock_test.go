// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeToSecondsNanos(t *testing.T) {
	tm := time.Unix(1700000000, 123456789)
	sec, nanos := timeToSecondsNanos(tm)
	assert.Equal(t, int64(1700000000), sec)
	assert.Equal(t, int32(123456789), nanos)
}

func TestNowMicrosIsMonotonicallyIncreasing(t *testing.T) {
	a := nowMicros()
	time.Sleep(time.Millisecond)
	b := nowMicros()
	assert.Greater(t, b, a)
}

func TestGenerateGUIDNonZero(t *testing.T) {
	assert.NotZero(t, generateGUID())
}

func TestGenerateTraceIDLowNonZero(t *testing.T) {
	_, low := generateTraceID()
	assert.NotZero(t, low)
}

func TestGenerateSpanIDNonZero(t *testing.T) {
	assert.NotZero(t, generateSpanID())
}
