// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReporterIdentityMandatoryTagCount(t *testing.T) {
	id := newReporterIdentity("svc", nil)
	mandatory := []string{
		"lightstep.tracer_platform",
		"lightstep.tracer_platform_version",
		"lightstep.tracer_version",
		"lightstep.component_name",
		"lightstep.guid",
		"lightstep.hostname",
	}
	assert.Len(t, id.Tags, len(mandatory))
	for _, k := range mandatory {
		assert.Contains(t, id.Tags, k)
	}
	assert.Equal(t, "svc", id.Tags["lightstep.component_name"])
}

func TestReporterIdentityMergesCallerTags(t *testing.T) {
	id := newReporterIdentity("svc", map[string]string{"team": "tracing"})
	assert.Equal(t, "tracing", id.Tags["team"])
	assert.Len(t, id.Tags, 7)
}
