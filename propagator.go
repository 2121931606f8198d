// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

// Format tags select a registered Propagator in the tracer facade.
type Format string

const (
	FormatTextMap         Format = "text_map"
	FormatHTTPHeaders      Format = "http_headers"
	FormatBinary           Format = "binary"
	FormatLightStepBinary  Format = "lightstep_binary"
	FormatB3Multi          Format = "b3_multi"
	FormatB3Single         Format = "b3_single"
	FormatTraceContext     Format = "trace_context"
)

// Propagator injects/extracts a SpanContext across one wire format. Model
// the propagator set as a tagged variant — one constructor per format —
// behind this narrow two-method interface; the tracer facade dispatches at
// call time through a {format tag → propagator} registry.
type Propagator interface {
	Inject(sc SpanContext, carrier interface{}) error
	Extract(carrier interface{}) (SpanContext, error)
}
