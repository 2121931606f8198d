// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers for the protobuf variant's wire schema, reproduced from the
// collector.proto field layout implied by the original http_converter.py
// (Auth, ReportRequest, Reporter, Span, SpanContext, Reference, KeyValue,
// Log, ReportResponse, Command). The schema itself is a fixed external
// contract; only these numbers/wire types are reproduced here.
const (
	fieldAuthAccessToken = 1

	fieldReporterGUID = 1
	fieldReporterTags = 2

	fieldSpanCtxTraceID     = 1
	fieldSpanCtxSpanID      = 2
	fieldSpanCtxTraceIDHigh = 3

	fieldKVKey         = 1
	fieldKVStringValue = 2

	fieldRefRelationship = 1
	fieldRefSpanContext  = 2
	relationshipChildOf  = 0

	fieldLogSeconds = 1
	fieldLogNanos   = 2
	fieldLogFields  = 3

	fieldSpanContext    = 1
	fieldSpanOpName     = 2
	fieldSpanStartSec   = 3
	fieldSpanStartNanos = 4
	fieldSpanDuration   = 5
	fieldSpanTags       = 6
	fieldSpanLogs       = 7
	fieldSpanRefs       = 8
	fieldSpanJoinIDs    = 9

	fieldReportReporter = 1
	fieldReportSpans    = 2
	fieldReportAuth     = 3

	fieldCommandDisable  = 1
	fieldResponseCommand = 1
)

type pbKeyValue struct {
	Key, Value string
}

type pbSpanContext struct {
	TraceID, TraceIDHigh, SpanID uint64
}

type pbLogRecord struct {
	Seconds int64
	Nanos   int32
	Fields  []pbKeyValue
}

type pbSpanRecord struct {
	Context       pbSpanContext
	OperationName string
	StartSeconds  int64
	StartNanos    int32
	DurationMicro int64
	Tags          []pbKeyValue
	JoinIDs       []pbKeyValue
	Logs          []pbLogRecord
	ParentSpanID  *uint64
}

type pbRuntime struct {
	GUID uint64
	Tags []pbKeyValue
}

type pbReport struct {
	Runtime pbRuntime
	Spans   []*pbSpanRecord
}

type pbAuth struct {
	AccessToken string
}

// protobufConverter is the Converter implementation targeting the binary
// protobuf collector wire schema, encoded/decoded by hand with protowire
// primitives (no generated/compiled .proto code).
type protobufConverter struct{}

func newProtobufConverter() Converter { return protobufConverter{} }

func (protobufConverter) CreateAuth(token string) interface{} {
	return &pbAuth{AccessToken: token}
}

func (protobufConverter) CreateRuntime(identity ReporterIdentity) interface{} {
	rt := pbRuntime{GUID: identity.GUID}
	for k, v := range identity.Tags {
		rt.Tags = append(rt.Tags, pbKeyValue{Key: k, Value: v})
	}
	return rt
}

func (protobufConverter) CreateSpanRecord(span Span) interface{} {
	sec, nanos := timeToSecondsNanos(span.Start)
	rec := &pbSpanRecord{
		Context: pbSpanContext{
			TraceID:     span.Context.TraceIDLow,
			TraceIDHigh: span.Context.TraceIDHigh,
			SpanID:      span.Context.SpanID,
		},
		OperationName: span.OperationName,
		StartSeconds:  sec,
		StartNanos:    nanos,
		DurationMicro: span.Duration.Microseconds(),
		ParentSpanID:  span.ParentSpanID,
	}
	return rec
}

func (protobufConverter) AppendAttribute(rec interface{}, key, value string) {
	r := rec.(*pbSpanRecord)
	r.Tags = append(r.Tags, pbKeyValue{Key: key, Value: value})
}

func (protobufConverter) AppendJoinID(rec interface{}, key, value string) {
	r := rec.(*pbSpanRecord)
	r.JoinIDs = append(r.JoinIDs, pbKeyValue{Key: key, Value: value})
}

func (protobufConverter) AppendLog(rec interface{}, log LogRecord) {
	r := rec.(*pbSpanRecord)
	sec, nanos := timeToSecondsNanos(log.Timestamp)
	lg := pbLogRecord{Seconds: sec, Nanos: nanos}
	for k, v := range log.Fields {
		sv := coerceStr(v)
		switch k {
		case "error.kind":
			sv = formatExcType(v)
		case "stack":
			sv = formatExcTB(v)
		}
		lg.Fields = append(lg.Fields, pbKeyValue{Key: k, Value: sv})
	}
	r.Logs = append(r.Logs, lg)
}

func (protobufConverter) CreateReport(runtime interface{}, records []interface{}) interface{} {
	rep := &pbReport{Runtime: runtime.(pbRuntime)}
	for _, r := range records {
		rep.Spans = append(rep.Spans, r.(*pbSpanRecord))
	}
	return rep
}

func (protobufConverter) CombineSpanRecords(report interface{}, records []interface{}) {
	rep := report.(*pbReport)
	for _, r := range records {
		rep.Spans = append(rep.Spans, r.(*pbSpanRecord))
	}
}

func (protobufConverter) NumSpanRecords(report interface{}) int {
	return len(report.(*pbReport).Spans)
}

func (protobufConverter) GetSpanRecords(report interface{}) []interface{} {
	rep := report.(*pbReport)
	out := make([]interface{}, len(rep.Spans))
	for i, s := range rep.Spans {
		out[i] = s
	}
	return out
}

func (protobufConverter) GetSpanName(rec interface{}) string {
	return rec.(*pbSpanRecord).OperationName
}

func appendKeyValue(b []byte, field int32, kv pbKeyValue) []byte {
	var inner []byte
	inner = protowire.AppendTag(inner, fieldKVKey, protowire.BytesType)
	inner = protowire.AppendString(inner, kv.Key)
	inner = protowire.AppendTag(inner, fieldKVStringValue, protowire.BytesType)
	inner = protowire.AppendString(inner, kv.Value)
	b = protowire.AppendTag(b, protowire.Number(field), protowire.BytesType)
	b = protowire.AppendBytes(b, inner)
	return b
}

func encodeSpanContext(sc pbSpanContext) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldSpanCtxTraceID, protowire.VarintType)
	b = protowire.AppendVarint(b, sc.TraceID)
	b = protowire.AppendTag(b, fieldSpanCtxSpanID, protowire.VarintType)
	b = protowire.AppendVarint(b, sc.SpanID)
	if sc.TraceIDHigh != 0 {
		b = protowire.AppendTag(b, fieldSpanCtxTraceIDHigh, protowire.VarintType)
		b = protowire.AppendVarint(b, sc.TraceIDHigh)
	}
	return b
}

func encodeSpanRecord(s *pbSpanRecord) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldSpanContext, protowire.BytesType)
	b = protowire.AppendBytes(b, encodeSpanContext(s.Context))
	b = protowire.AppendTag(b, fieldSpanOpName, protowire.BytesType)
	b = protowire.AppendString(b, s.OperationName)
	b = protowire.AppendTag(b, fieldSpanStartSec, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.StartSeconds))
	b = protowire.AppendTag(b, fieldSpanStartNanos, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(uint32(s.StartNanos)))
	b = protowire.AppendTag(b, fieldSpanDuration, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.DurationMicro))
	for _, kv := range s.Tags {
		b = appendKeyValue(b, fieldSpanTags, kv)
	}
	for _, kv := range s.JoinIDs {
		b = appendKeyValue(b, fieldSpanJoinIDs, kv)
	}
	for _, lg := range s.Logs {
		var inner []byte
		inner = protowire.AppendTag(inner, fieldLogSeconds, protowire.VarintType)
		inner = protowire.AppendVarint(inner, uint64(lg.Seconds))
		inner = protowire.AppendTag(inner, fieldLogNanos, protowire.VarintType)
		inner = protowire.AppendVarint(inner, uint64(uint32(lg.Nanos)))
		for _, kv := range lg.Fields {
			inner = appendKeyValue(inner, fieldLogFields, kv)
		}
		b = protowire.AppendTag(b, fieldSpanLogs, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	}
	if s.ParentSpanID != nil {
		var ref []byte
		ref = protowire.AppendTag(ref, fieldRefRelationship, protowire.VarintType)
		ref = protowire.AppendVarint(ref, relationshipChildOf)
		parentCtx := encodeSpanContext(pbSpanContext{SpanID: *s.ParentSpanID})
		ref = protowire.AppendTag(ref, fieldRefSpanContext, protowire.BytesType)
		ref = protowire.AppendBytes(ref, parentCtx)
		b = protowire.AppendTag(b, fieldSpanRefs, protowire.BytesType)
		b = protowire.AppendBytes(b, ref)
	}
	return b
}

// Encode serializes {auth, report} into the report-request wire body.
func (protobufConverter) Encode(auth interface{}, report interface{}) ([]byte, error) {
	a := auth.(*pbAuth)
	rep := report.(*pbReport)

	var reporter []byte
	reporter = protowire.AppendTag(reporter, fieldReporterGUID, protowire.VarintType)
	reporter = protowire.AppendVarint(reporter, rep.Runtime.GUID)
	for _, kv := range rep.Runtime.Tags {
		reporter = appendKeyValue(reporter, fieldReporterTags, kv)
	}

	var authBytes []byte
	authBytes = protowire.AppendTag(authBytes, fieldAuthAccessToken, protowire.BytesType)
	authBytes = protowire.AppendString(authBytes, a.AccessToken)

	var b []byte
	b = protowire.AppendTag(b, fieldReportReporter, protowire.BytesType)
	b = protowire.AppendBytes(b, reporter)
	b = protowire.AppendTag(b, fieldReportAuth, protowire.BytesType)
	b = protowire.AppendBytes(b, authBytes)
	for _, s := range rep.Spans {
		b = protowire.AppendTag(b, fieldReportSpans, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeSpanRecord(s))
	}
	return b, nil
}

// DecodeResponse parses a ReportResponse, looking for any Command with
// disable=true.
func (protobufConverter) DecodeResponse(data []byte) (bool, error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return false, fmt.Errorf("lightstep: malformed report response")
		}
		data = data[n:]
		if num != fieldResponseCommand || typ != protowire.BytesType {
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return false, fmt.Errorf("lightstep: malformed report response field")
			}
			data = data[m:]
			continue
		}
		cmdBytes, m := protowire.ConsumeBytes(data)
		if m < 0 {
			return false, fmt.Errorf("lightstep: malformed command")
		}
		data = data[m:]
		if disable, err := decodeCommand(cmdBytes); err != nil {
			return false, err
		} else if disable {
			return true, nil
		}
	}
	return false, nil
}

func decodeCommand(data []byte) (bool, error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return false, fmt.Errorf("lightstep: malformed command field")
		}
		data = data[n:]
		if num == fieldCommandDisable && typ == protowire.VarintType {
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return false, fmt.Errorf("lightstep: malformed disable field")
			}
			data = data[m:]
			if v != 0 {
				return true, nil
			}
			continue
		}
		m := protowire.ConsumeFieldValue(num, typ, data)
		if m < 0 {
			return false, fmt.Errorf("lightstep: malformed command field value")
		}
		data = data[m:]
	}
	return false, nil
}
