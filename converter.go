// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

// Converter translates in-memory span records to one of the two supported
// wire schemas. Two concrete implementations (protobuf, Thrift) satisfy
// this contract; the recorder and connection are written against the
// interface only, per the "converter polymorphism without inheritance"
// design note. auth/runtime/record/report values are opaque to callers —
// each variant defines its own concrete types behind interface{}.
type Converter interface {
	CreateAuth(token string) interface{}
	CreateRuntime(identity ReporterIdentity) interface{}
	CreateSpanRecord(span Span) interface{}
	AppendAttribute(rec interface{}, key, value string)
	AppendJoinID(rec interface{}, key, value string)
	AppendLog(rec interface{}, log LogRecord)
	CreateReport(runtime interface{}, records []interface{}) interface{}
	CombineSpanRecords(report interface{}, records []interface{})
	NumSpanRecords(report interface{}) int
	GetSpanRecords(report interface{}) []interface{}
	GetSpanName(rec interface{}) string

	// Encode serializes auth+report into the wire body POSTed to the
	// collector.
	Encode(auth interface{}, report interface{}) ([]byte, error)
	// DecodeResponse parses a collector reply, reporting whether any
	// command in it carries disable=true.
	DecodeResponse(data []byte) (disable bool, err error)
}

// recordFromSpan builds the generic (non-wire-specific) view of a span
// used by both converter variants: tag coercion, join-id separation, and
// log appending are identical across wire schemas. The parent reference is
// added by each variant's CreateSpanRecord (a CHILD_OF reference for
// protobuf, a parent_span_guid attribute for Thrift).
func recordFromSpan(conv Converter, span Span) interface{} {
	rec := conv.CreateSpanRecord(span)
	for k, v := range span.Tags {
		sv := coerceStr(v)
		if k == "error.kind" {
			sv = formatExcType(v)
		}
		if isJoinKey(k) {
			conv.AppendJoinID(rec, joinKeyName(k), sv)
			continue
		}
		conv.AppendAttribute(rec, k, sv)
	}
	for _, lg := range span.Logs {
		conv.AppendLog(rec, lg)
	}
	return rec
}
