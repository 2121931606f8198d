// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"context"
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
)

// Field IDs for the legacy Thrift variant, reproduced from the schema
// implied by original_source/lightstep/thrift_converter.py's ttypes usage
// (Runtime, SpanRecord, LogRecord, KeyValue, TraceJoinId, ReportRequest,
// ReportResponse). Fixed external contract; only IDs/types reproduced.
const (
	tFieldRuntimeGUID       = 1
	tFieldRuntimeGroupName  = 2
	tFieldRuntimeAttrs      = 3

	tFieldKVKey   = 1
	tFieldKVValue = 2

	tFieldJoinKey   = 1
	tFieldJoinValue = 2

	tFieldLogTimestamp = 1
	tFieldLogFields    = 2

	tFieldSpanName         = 1
	tFieldSpanGUID         = 2
	tFieldSpanTraceGUID    = 3
	tFieldSpanAttrs        = 4
	tFieldSpanOldestMicros = 6
	tFieldSpanYoungest     = 7
	tFieldSpanLogs         = 8
	tFieldSpanJoinIDs      = 9

	tFieldReqRuntime = 1
	tFieldReqSpans   = 2

	tFieldRespCommands  = 3
	tFieldCommandDisable = 1

	parentGUIDAttr = "parent_span_guid"
)

type thriftKeyValue struct{ Key, Value string }

type thriftSpanRecord struct {
	SpanName      string
	SpanGUID      string
	TraceGUID     string
	Attrs         []thriftKeyValue
	OldestMicros  int64
	YoungestDelta int64 // duration in micros, stored as the "youngest" offset
	Logs          []thriftLogRecord
	JoinIDs       []thriftKeyValue
}

type thriftLogRecord struct {
	TimestampMicros int64
	Fields          []thriftKeyValue
}

type thriftRuntime struct {
	GUID      string
	GroupName string
	Attrs     []thriftKeyValue
}

type thriftReport struct {
	Runtime thriftRuntime
	Spans   []*thriftSpanRecord
}

type thriftAuth struct {
	AccessToken string
}

// thriftConverter is the Converter implementation targeting the legacy
// binary Thrift collector wire schema.
type thriftConverter struct{}

func newThriftConverter() Converter { return thriftConverter{} }

func (thriftConverter) CreateAuth(token string) interface{} {
	return &thriftAuth{AccessToken: token}
}

func (thriftConverter) CreateRuntime(identity ReporterIdentity) interface{} {
	rt := thriftRuntime{GUID: idToHex(identity.GUID), GroupName: identity.ComponentName}
	for k, v := range identity.Tags {
		rt.Attrs = append(rt.Attrs, thriftKeyValue{Key: k, Value: v})
	}
	return rt
}

func (thriftConverter) CreateSpanRecord(span Span) interface{} {
	// trace_id is truncated to 64 bits here, at Thrift-serialization time:
	// the Thrift schema predates 128-bit trace ids and has no field for the
	// high half. This is the only report path that truncates; the text-map,
	// B3 and binary propagators likewise carry only the low 64 bits.
	rec := &thriftSpanRecord{
		SpanName:      span.OperationName,
		SpanGUID:      idToHex(span.Context.SpanID),
		TraceGUID:     idToHex(span.Context.traceID64()),
		OldestMicros:  timeToMicros(span.Start),
		YoungestDelta: span.Duration.Microseconds(),
	}
	if span.ParentSpanID != nil {
		rec.Attrs = append(rec.Attrs, thriftKeyValue{Key: parentGUIDAttr, Value: idToHex(*span.ParentSpanID)})
	}
	return rec
}

func (thriftConverter) AppendAttribute(rec interface{}, key, value string) {
	r := rec.(*thriftSpanRecord)
	r.Attrs = append(r.Attrs, thriftKeyValue{Key: key, Value: value})
}

func (thriftConverter) AppendJoinID(rec interface{}, key, value string) {
	r := rec.(*thriftSpanRecord)
	r.JoinIDs = append(r.JoinIDs, thriftKeyValue{Key: key, Value: value})
}

func (thriftConverter) AppendLog(rec interface{}, log LogRecord) {
	r := rec.(*thriftSpanRecord)
	lg := thriftLogRecord{TimestampMicros: timeToMicros(log.Timestamp)}
	for k, v := range log.Fields {
		sv := coerceStr(v)
		switch k {
		case "error.kind":
			sv = formatExcType(v)
		case "stack":
			sv = formatExcTB(v)
		}
		lg.Fields = append(lg.Fields, thriftKeyValue{Key: k, Value: sv})
	}
	r.Logs = append(r.Logs, lg)
}

func (thriftConverter) CreateReport(runtime interface{}, records []interface{}) interface{} {
	rep := &thriftReport{Runtime: runtime.(thriftRuntime)}
	for _, r := range records {
		rep.Spans = append(rep.Spans, r.(*thriftSpanRecord))
	}
	return rep
}

func (thriftConverter) CombineSpanRecords(report interface{}, records []interface{}) {
	rep := report.(*thriftReport)
	for _, r := range records {
		rep.Spans = append(rep.Spans, r.(*thriftSpanRecord))
	}
}

func (thriftConverter) NumSpanRecords(report interface{}) int {
	return len(report.(*thriftReport).Spans)
}

func (thriftConverter) GetSpanRecords(report interface{}) []interface{} {
	rep := report.(*thriftReport)
	out := make([]interface{}, len(rep.Spans))
	for i, s := range rep.Spans {
		out[i] = s
	}
	return out
}

func (thriftConverter) GetSpanName(rec interface{}) string {
	return rec.(*thriftSpanRecord).SpanName
}

func writeKVList(ctx context.Context, p thrift.TProtocol, items []thriftKeyValue) error {
	if err := p.WriteListBegin(ctx, thrift.STRUCT, len(items)); err != nil {
		return err
	}
	for _, kv := range items {
		if err := p.WriteStructBegin(ctx, "KeyValue"); err != nil {
			return err
		}
		if err := p.WriteFieldBegin(ctx, "Key", thrift.STRING, tFieldKVKey); err != nil {
			return err
		}
		if err := p.WriteString(ctx, kv.Key); err != nil {
			return err
		}
		if err := p.WriteFieldEnd(ctx); err != nil {
			return err
		}
		if err := p.WriteFieldBegin(ctx, "Value", thrift.STRING, tFieldKVValue); err != nil {
			return err
		}
		if err := p.WriteString(ctx, kv.Value); err != nil {
			return err
		}
		if err := p.WriteFieldEnd(ctx); err != nil {
			return err
		}
		if err := p.WriteFieldStop(ctx); err != nil {
			return err
		}
		if err := p.WriteStructEnd(ctx); err != nil {
			return err
		}
	}
	return p.WriteListEnd(ctx)
}

func writeSpanRecord(ctx context.Context, p thrift.TProtocol, s *thriftSpanRecord) error {
	if err := p.WriteStructBegin(ctx, "SpanRecord"); err != nil {
		return err
	}
	p.WriteFieldBegin(ctx, "span_name", thrift.STRING, tFieldSpanName)
	p.WriteString(ctx, s.SpanName)
	p.WriteFieldEnd(ctx)

	p.WriteFieldBegin(ctx, "span_guid", thrift.STRING, tFieldSpanGUID)
	p.WriteString(ctx, s.SpanGUID)
	p.WriteFieldEnd(ctx)

	p.WriteFieldBegin(ctx, "trace_guid", thrift.STRING, tFieldSpanTraceGUID)
	p.WriteString(ctx, s.TraceGUID)
	p.WriteFieldEnd(ctx)

	p.WriteFieldBegin(ctx, "attributes", thrift.LIST, tFieldSpanAttrs)
	writeKVList(ctx, p, s.Attrs)
	p.WriteFieldEnd(ctx)

	p.WriteFieldBegin(ctx, "oldest_micros", thrift.I64, tFieldSpanOldestMicros)
	p.WriteI64(ctx, s.OldestMicros)
	p.WriteFieldEnd(ctx)

	p.WriteFieldBegin(ctx, "youngest_micros", thrift.I64, tFieldSpanYoungest)
	p.WriteI64(ctx, s.OldestMicros+s.YoungestDelta)
	p.WriteFieldEnd(ctx)

	p.WriteFieldBegin(ctx, "log_records", thrift.LIST, tFieldSpanLogs)
	p.WriteListBegin(ctx, thrift.STRUCT, len(s.Logs))
	for _, lg := range s.Logs {
		p.WriteStructBegin(ctx, "LogRecord")
		p.WriteFieldBegin(ctx, "timestamp_micros", thrift.I64, tFieldLogTimestamp)
		p.WriteI64(ctx, lg.TimestampMicros)
		p.WriteFieldEnd(ctx)
		p.WriteFieldBegin(ctx, "fields", thrift.LIST, tFieldLogFields)
		writeKVList(ctx, p, lg.Fields)
		p.WriteFieldEnd(ctx)
		p.WriteFieldStop(ctx)
		p.WriteStructEnd(ctx)
	}
	p.WriteListEnd(ctx)
	p.WriteFieldEnd(ctx)

	p.WriteFieldBegin(ctx, "join_ids", thrift.LIST, tFieldSpanJoinIDs)
	p.WriteListBegin(ctx, thrift.STRUCT, len(s.JoinIDs))
	for _, j := range s.JoinIDs {
		p.WriteStructBegin(ctx, "TraceJoinId")
		p.WriteFieldBegin(ctx, "TraceKey", thrift.STRING, tFieldJoinKey)
		p.WriteString(ctx, j.Key)
		p.WriteFieldEnd(ctx)
		p.WriteFieldBegin(ctx, "Value", thrift.STRING, tFieldJoinValue)
		p.WriteString(ctx, j.Value)
		p.WriteFieldEnd(ctx)
		p.WriteFieldStop(ctx)
		p.WriteStructEnd(ctx)
	}
	p.WriteListEnd(ctx)
	p.WriteFieldEnd(ctx)

	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

// Encode serializes {auth, report} as a Thrift ReportRequest struct using
// TBinaryProtocol.
func (thriftConverter) Encode(auth interface{}, report interface{}) ([]byte, error) {
	a := auth.(*thriftAuth)
	rep := report.(*thriftReport)

	trans := thrift.NewTMemoryBuffer()
	p := thrift.NewTBinaryProtocolConf(trans, &thrift.TConfiguration{})
	ctx := context.Background()

	if err := p.WriteStructBegin(ctx, "ReportRequest"); err != nil {
		return nil, err
	}
	p.WriteFieldBegin(ctx, "auth", thrift.STRING, 3)
	p.WriteString(ctx, a.AccessToken)
	p.WriteFieldEnd(ctx)

	p.WriteFieldBegin(ctx, "runtime", thrift.STRUCT, tFieldReqRuntime)
	p.WriteStructBegin(ctx, "Runtime")
	p.WriteFieldBegin(ctx, "guid", thrift.STRING, tFieldRuntimeGUID)
	p.WriteString(ctx, rep.Runtime.GUID)
	p.WriteFieldEnd(ctx)
	p.WriteFieldBegin(ctx, "group_name", thrift.STRING, tFieldRuntimeGroupName)
	p.WriteString(ctx, rep.Runtime.GroupName)
	p.WriteFieldEnd(ctx)
	p.WriteFieldBegin(ctx, "attrs", thrift.LIST, tFieldRuntimeAttrs)
	writeKVList(ctx, p, rep.Runtime.Attrs)
	p.WriteFieldEnd(ctx)
	p.WriteFieldStop(ctx)
	p.WriteStructEnd(ctx)
	p.WriteFieldEnd(ctx)

	p.WriteFieldBegin(ctx, "span_records", thrift.LIST, tFieldReqSpans)
	p.WriteListBegin(ctx, thrift.STRUCT, len(rep.Spans))
	for _, s := range rep.Spans {
		if err := writeSpanRecord(ctx, p, s); err != nil {
			return nil, err
		}
	}
	p.WriteListEnd(ctx)
	p.WriteFieldEnd(ctx)

	if err := p.WriteFieldStop(ctx); err != nil {
		return nil, err
	}
	if err := p.WriteStructEnd(ctx); err != nil {
		return nil, err
	}
	if err := p.Flush(ctx); err != nil {
		return nil, err
	}
	return trans.Bytes(), nil
}

// DecodeResponse parses a Thrift ReportResponse, looking for any command
// with disable=true.
func (thriftConverter) DecodeResponse(data []byte) (bool, error) {
	trans := thrift.NewTMemoryBufferLen(len(data))
	if _, err := trans.Write(data); err != nil {
		return false, err
	}
	p := thrift.NewTBinaryProtocolConf(trans, &thrift.TConfiguration{})
	ctx := context.Background()

	if _, err := p.ReadStructBegin(ctx); err != nil {
		return false, fmt.Errorf("lightstep: malformed thrift response: %w", err)
	}
	disable := false
	for {
		_, fieldType, id, err := p.ReadFieldBegin(ctx)
		if err != nil {
			return false, err
		}
		if fieldType == thrift.STOP {
			break
		}
		if id == tFieldRespCommands && fieldType == thrift.LIST {
			_, size, err := p.ReadListBegin(ctx)
			if err != nil {
				return false, err
			}
			for i := 0; i < size; i++ {
				if d, err := readCommand(ctx, p); err != nil {
					return false, err
				} else if d {
					disable = true
				}
			}
			p.ReadListEnd(ctx)
		} else {
			thrift.SkipDefaultDepth(ctx, p, fieldType)
		}
		p.ReadFieldEnd(ctx)
	}
	p.ReadStructEnd(ctx)
	return disable, nil
}

func readCommand(ctx context.Context, p thrift.TProtocol) (bool, error) {
	if _, err := p.ReadStructBegin(ctx); err != nil {
		return false, err
	}
	disable := false
	for {
		_, fieldType, id, err := p.ReadFieldBegin(ctx)
		if err != nil {
			return false, err
		}
		if fieldType == thrift.STOP {
			break
		}
		if id == tFieldCommandDisable && fieldType == thrift.BOOL {
			v, err := p.ReadBool(ctx)
			if err != nil {
				return false, err
			}
			disable = v
		} else {
			thrift.SkipDefaultDepth(ctx, p, fieldType)
		}
		p.ReadFieldEnd(ctx)
	}
	p.ReadStructEnd(ctx)
	return disable, nil
}
