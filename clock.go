// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"time"

	"github.com/google/uuid"
)

const microsPerSecond = 1_000_000
const nanosPerSecond = 1_000_000_000

// nowMicros returns the current wall time as microseconds since the Unix
// epoch, matching the source's floor(round(time.time() * 1e6)).
func nowMicros() int64 {
	return timeToMicros(time.Now().Round(time.Microsecond))
}

// timeToMicros converts a wall-clock time to microseconds since the epoch.
func timeToMicros(t time.Time) int64 {
	return t.UnixNano() / 1000
}

// timeToSecondsNanos splits a wall-clock time into (seconds, nanos) since
// the epoch, the representation the protobuf Timestamp wire message uses.
func timeToSecondsNanos(t time.Time) (int64, int32) {
	sec := t.Unix()
	nsec := int32(t.UnixNano() - sec*nanosPerSecond)
	return sec, nsec
}

// generateGUID returns a random 64-bit process/runtime identifier, derived
// from a random 128-bit UUID by masking down to the low 64 bits.
func generateGUID() uint64 {
	id := uuid.New()
	var v uint64
	for _, b := range id[8:16] {
		v = v<<8 | uint64(b)
	}
	return v
}

// generateTraceID returns a random 128-bit trace identifier as two halves,
// (high, low), with low never zero.
func generateTraceID() (high, low uint64) {
	id := uuid.New()
	high = beUint64(id[0:8])
	low = beUint64(id[8:16])
	if low == 0 {
		low = 1
	}
	return
}

// beUint64 interprets an 8-byte slice as a big-endian unsigned integer.
func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// generateSpanID returns a random, non-zero 64-bit span identifier.
func generateSpanID() uint64 {
	for {
		if id := generateGUID(); id != 0 {
			return id
		}
	}
}
