// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lightstep-go/tracer/internal/log"
)

// consecutiveErrorsBeforeReconnect is the Thrift variant's threshold: after
// this many reports fail in a row, the connection marks itself not-ready
// so the next flush cycle reopens the transport.
const consecutiveErrorsBeforeReconnect = 200

// reportResponse is the decoded collector reply: whether any command asked
// the client to disable itself.
type reportResponse struct {
	Disable bool
}

// Connection is the transport abstraction the recorder's flush worker uses
// to ship a converted report to the collector. Two variants exist: HTTP
// with a protobuf body and HTTP with a Thrift body; both share this
// contract, though the consecutive-error counter is only tracked for the
// Thrift variant.
type Connection interface {
	Open() error
	Report(ctx context.Context, auth interface{}, report interface{}) (reportResponse, error)
	Close()
	Ready() bool
}

// httpConnection is shared plumbing for both wire variants: a URL, an
// *http.Client honoring the configured timeout and TLS policy, and a
// mutex guarding the ready flag and consecutive-error counter. Open and
// Close run under that mutex; Report does not hold it while encoding or
// while the request is in flight, so concurrent Reports are not serialized.
type httpConnection struct {
	mu        sync.Mutex
	url       string
	token     string
	client    *http.Client
	converter Converter
	ready     bool

	consecutiveErrors int
	trackReconnect    bool
}

func newHTTPConnection(c *config, converter Converter, trackReconnect bool) *httpConnection {
	tlsConf := &tls.Config{InsecureSkipVerify: c.insecureSkipTLS} //nolint:gosec // opt-in via WithInsecureSkipVerify
	return &httpConnection{
		url:   fmt.Sprintf("%s://%s:%d%s", c.scheme(), c.collectorHost, c.collectorPort, c.collectorPath()),
		token: c.accessToken,
		client: &http.Client{
			Timeout:   c.timeout,
			Transport: &http.Transport{TLSClientConfig: tlsConf},
		},
		converter:      converter,
		trackReconnect: trackReconnect,
	}
}

func (c *httpConnection) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Open marks the connection ready to send. The HTTP client itself is
// stateless (no persistent socket to establish), so Open is effectively a
// readiness flag flip — matching the source's lazy, tolerant-of-forks
// connection lifecycle.
func (c *httpConnection) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = true
	c.consecutiveErrors = 0
	return nil
}

func (c *httpConnection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = false
	c.client.CloseIdleConnections()
}

func (c *httpConnection) Report(ctx context.Context, auth interface{}, report interface{}) (reportResponse, error) {
	body, err := c.converter.Encode(auth, report)
	if err != nil {
		return reportResponse{}, fmt.Errorf("lightstep: encoding report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return reportResponse{}, fmt.Errorf("lightstep: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "application/octet-stream")
	req.Header.Set("Lightstep-Access-Token", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		c.noteError()
		return reportResponse{}, fmt.Errorf("lightstep: sending report: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.noteError()
		return reportResponse{}, fmt.Errorf("lightstep: reading response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		c.noteError()
		return reportResponse{}, fmt.Errorf("lightstep: collector returned status %d", resp.StatusCode)
	}

	disable, err := c.converter.DecodeResponse(data)
	if err != nil {
		c.noteError()
		return reportResponse{}, fmt.Errorf("lightstep: decoding response: %w", err)
	}

	c.mu.Lock()
	c.consecutiveErrors = 0
	c.mu.Unlock()
	return reportResponse{Disable: disable}, nil
}

// noteError increments the consecutive-error counter; once it crosses the
// threshold, the connection marks itself not-ready (Thrift variant only)
// so the next flush cycle reopens the transport, per the
// UnrecoverableTransport error kind.
func (c *httpConnection) noteError() {
	if !c.trackReconnect {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveErrors++
	if c.consecutiveErrors >= consecutiveErrorsBeforeReconnect {
		c.ready = false
		c.consecutiveErrors = 0
		log.Warn("collector connection exceeded %d consecutive errors, will reopen", consecutiveErrorsBeforeReconnect)
	}
}

// newConnection builds the configured transport variant: HTTP+protobuf
// (default) or HTTP+Thrift (which additionally tracks consecutive errors).
func newConnection(c *config) Connection {
	switch c.transport {
	case UseThrift:
		return newHTTPConnection(c, newThriftConverter(), true)
	default:
		return newHTTPConnection(c, newProtobufConverter(), false)
	}
}

// connectionTimeout bounds a single flush worker's report attempt, used by
// the recorder when building the context passed to Report.
func connectionTimeout(c *config) time.Duration {
	return c.timeout
}
