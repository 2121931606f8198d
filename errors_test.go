// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateErrors(t *testing.T) {
	errs := []error{
		&errBufferFull{name: "r1", size: 10},
		&errBufferFull{name: "r1", size: 11},
		&errLostData{name: "spans", count: 3},
	}
	agg := aggregateErrors(errs)
	assert.Len(t, agg, 2)

	full := agg["*lightstep.errBufferFull"]
	assert.Equal(t, 2, full.Count)
	assert.Equal(t, errs[0], full.Example)

	lost := agg["*lightstep.errLostData"]
	assert.Equal(t, 1, lost.Count)
}

func TestDropCounter(t *testing.T) {
	var d dropCounter
	assert.Equal(t, uint64(0), d.value())
	d.inc()
	d.inc()
	assert.Equal(t, uint64(2), d.value())
}

func TestConfigErrorMessage(t *testing.T) {
	err := &ConfigError{Reason: "missing token"}
	assert.True(t, errors.Is(error(err), err))
	assert.Contains(t, err.Error(), "missing token")
}
