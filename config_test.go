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

func TestDefaults(t *testing.T) {
	c := &config{}
	defaults(c)
	assert.Equal(t, defaultCollectorHost, c.collectorHost)
	assert.Equal(t, defaultCollectorPort, c.collectorPort)
	assert.Equal(t, EncryptionTLS, c.collectorEncrypt)
	assert.Equal(t, defaultMaxSpanRecords, c.maxSpanRecords)
	assert.Equal(t, defaultFlushPeriod, c.periodicFlush)
	assert.Equal(t, UseHTTP, c.transport)
	assert.Equal(t, defaultTimeout, c.timeout)
}

func TestNewRequiresAccessToken(t *testing.T) {
	_, err := New()
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewAppliesOptions(t *testing.T) {
	r, err := New(
		WithAccessToken("tok"),
		WithComponentName("svc"),
		WithMaxSpanRecords(42),
		WithPeriodicFlush(time.Second),
		WithTransport(UseThrift),
	)
	require.NoError(t, err)
	assert.Equal(t, "svc", r.Identity().ComponentName)
	assert.Equal(t, 42, r.cap)
	assert.Equal(t, UseThrift, r.cfg.transport)
}

func TestCollectorURLDerivation(t *testing.T) {
	c := &config{}
	defaults(c)
	c.accessToken = "tok"
	assert.Equal(t, "https", c.scheme())
	assert.Equal(t, "/api/v2/reports", c.collectorPath())

	c.collectorEncrypt = EncryptionNone
	c.transport = UseThrift
	assert.Equal(t, "http", c.scheme())
	assert.Equal(t, "/_rpc/v1/reports/binary", c.collectorPath())
}
