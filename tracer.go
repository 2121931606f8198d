// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import "fmt"

// Tracer wires a Recorder with a registry of Propagators behind a narrow
// instrumentation-facing surface: inject/extract dispatch by format tag,
// and flush delegates to the recorder. Span lifecycle (start/finish,
// tag/log setters, scope activation) is an upstream concern, out of scope
// here.
type Tracer struct {
	recorder    *Recorder
	propagators map[Format]Propagator
}

// NewTracer constructs a Recorder from opts and a Tracer wired with the
// full set of supported propagator formats.
func NewTracer(opts ...Option) (*Tracer, error) {
	rec, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return &Tracer{
		recorder: rec,
		propagators: map[Format]Propagator{
			FormatTextMap:        textMapPropagator{},
			FormatHTTPHeaders:    textMapPropagator{},
			FormatB3Multi:        b3MultiPropagator{},
			FormatB3Single:       b3SinglePropagator{},
			FormatTraceContext:   traceContextPropagator{},
			FormatBinary:         envoyBinaryPropagator{},
			FormatLightStepBinary: lightstepBinaryPropagator{},
		},
	}, nil
}

// Recorder returns the tracer's underlying recorder, for callers needing
// direct access to Record/Dropped/Disabled.
func (t *Tracer) Recorder() *Recorder { return t.recorder }

// Inject serializes sc into carrier using the propagator registered for
// format. Returns an unsupported-format error if none is registered.
func (t *Tracer) Inject(sc SpanContext, format Format, carrier interface{}) error {
	p, ok := t.propagators[format]
	if !ok {
		return fmt.Errorf("lightstep: unsupported propagation format %q", format)
	}
	return p.Inject(sc, carrier)
}

// Extract reconstructs a SpanContext from carrier using the propagator
// registered for format.
func (t *Tracer) Extract(format Format, carrier interface{}) (SpanContext, error) {
	p, ok := t.propagators[format]
	if !ok {
		return SpanContext{}, fmt.Errorf("lightstep: unsupported propagation format %q", format)
	}
	return p.Extract(carrier)
}

// Flush delegates to the recorder's synchronous flush over its background
// connection.
func (t *Tracer) Flush() bool {
	return t.recorder.Flush(nil)
}

// Close flushes and shuts down the underlying recorder. An entry/exit
// style caller (e.g. `defer tr.Close()`) gets deterministic drain-on-exit.
func (t *Tracer) Close() {
	t.recorder.Shutdown(true)
}
