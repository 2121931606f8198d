// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import "time"

// Transport selects the wire protocol a recorder's connection speaks.
type Transport int

const (
	// UseHTTP selects the HTTP+protobuf connection variant (default).
	UseHTTP Transport = iota
	// UseThrift selects the HTTP+Thrift connection variant.
	UseThrift
)

// Encryption selects whether the collector connection uses TLS.
type Encryption int

const (
	EncryptionTLS Encryption = iota
	EncryptionNone
)

const (
	defaultCollectorHost  = "collector.lightstep.com"
	defaultCollectorPort  = 443
	defaultMaxSpanRecords = 1000
	defaultFlushPeriod    = 2500 * time.Millisecond
	defaultTimeout        = 30 * time.Second
)

// config holds a recorder's fully-defaulted configuration, built via
// functional Options over New and a defaults(&c) pass.
type config struct {
	componentName     string
	accessToken       string
	collectorHost     string
	collectorPort     int
	collectorEncrypt  Encryption
	tags              map[string]string
	maxSpanRecords    int
	periodicFlush     time.Duration
	verbosity         int
	insecureSkipTLS   bool
	transport         Transport
	timeout           time.Duration
}

// Option configures a recorder at construction time.
type Option func(*config)

func defaults(c *config) {
	c.componentName = defaultComponentName()
	c.collectorHost = defaultCollectorHost
	c.collectorPort = defaultCollectorPort
	c.collectorEncrypt = EncryptionTLS
	c.tags = map[string]string{}
	c.maxSpanRecords = defaultMaxSpanRecords
	c.periodicFlush = defaultFlushPeriod
	c.transport = UseHTTP
	c.timeout = defaultTimeout
}

// WithComponentName overrides the reporter identity's component name.
func WithComponentName(name string) Option {
	return func(c *config) { c.componentName = name }
}

// WithAccessToken sets the bearer token sent with every report. Required;
// New returns a *ConfigError if it is left empty.
func WithAccessToken(token string) Option {
	return func(c *config) { c.accessToken = token }
}

// WithCollector sets the collector host, port, and encryption mode.
func WithCollector(host string, port int, encryption Encryption) Option {
	return func(c *config) {
		c.collectorHost = host
		c.collectorPort = port
		c.collectorEncrypt = encryption
	}
}

// WithTags merges tags into the reporter identity, over the mandatory
// defaults (callers cannot override the lightstep.* identity fields).
func WithTags(tags map[string]string) Option {
	return func(c *config) {
		for k, v := range tags {
			c.tags[k] = v
		}
	}
}

// WithMaxSpanRecords sets the buffer cap.
func WithMaxSpanRecords(n int) Option {
	return func(c *config) { c.maxSpanRecords = n }
}

// WithPeriodicFlush sets the background flush cadence. A value ≤0 disables
// the background flusher; flush remains available synchronously.
func WithPeriodicFlush(d time.Duration) Option {
	return func(c *config) { c.periodicFlush = d }
}

// WithVerbosity sets diagnostic log verbosity: 0 maps to log.LevelWarn, 1
// to log.LevelInfo, 2 (or more) to log.LevelDebug. Report payloads are not
// logged at any level.
func WithVerbosity(v int) Option {
	return func(c *config) { c.verbosity = v }
}

// WithInsecureSkipVerify disables TLS certificate verification on this
// recorder's connection only (never a process-global mutation). Debug use
// only.
func WithInsecureSkipVerify() Option {
	return func(c *config) { c.insecureSkipTLS = true }
}

// WithTransport selects the wire transport (UseHTTP or UseThrift).
func WithTransport(t Transport) Option {
	return func(c *config) { c.transport = t }
}

// WithTimeout sets the per-HTTP-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// validate returns a *ConfigError if c cannot produce a usable recorder.
func (c *config) validate() error {
	if c.accessToken == "" {
		return &ConfigError{Reason: "access_token is required"}
	}
	if c.maxSpanRecords <= 0 {
		return &ConfigError{Reason: "max_span_records must be positive"}
	}
	return nil
}

func (c *config) scheme() string {
	if c.collectorEncrypt == EncryptionNone {
		return "http"
	}
	return "https"
}

// collectorPath returns the report endpoint path for the configured
// transport, per the collector URL derivation rule.
func (c *config) collectorPath() string {
	if c.transport == UseThrift {
		return "/_rpc/v1/reports/binary"
	}
	return "/api/v2/reports"
}
