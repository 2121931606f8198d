// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers for the small BasicTracerCarrier message shared by both
// binary envelopes: trace_id, span_id, sampled, baggage_items. trace_id and
// span_id are wire type fixed64 (not varint), and basic_ctx sits at field 2
// of the enclosing BinaryCarrier — both confirmed against the literal
// base64 LightStep binary vector (spec.md scenario 5), which decodes
// cleanly only under this layout.
const (
	fieldBasicTraceID = 1
	fieldBasicSpanID  = 2
	fieldBasicSampled = 3
	fieldBasicBaggage = 4

	fieldBinaryCarrierBasicCtx = 2
)

func encodeBasicTracerCarrier(sc SpanContext) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldBasicTraceID, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, sc.traceID64())
	b = protowire.AppendTag(b, fieldBasicSpanID, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, sc.SpanID)
	b = protowire.AppendTag(b, fieldBasicSampled, protowire.VarintType)
	b = protowire.AppendVarint(b, boolToVarint(sc.Sampled))
	for k, v := range sc.Baggage {
		var entry []byte
		entry = protowire.AppendTag(entry, 1, protowire.BytesType)
		entry = protowire.AppendString(entry, k)
		entry = protowire.AppendTag(entry, 2, protowire.BytesType)
		entry = protowire.AppendString(entry, v)
		b = protowire.AppendTag(b, fieldBasicBaggage, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

func boolToVarint(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func decodeBasicTracerCarrier(data []byte) (SpanContext, error) {
	sc := SpanContext{Baggage: map[string]string{}}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return SpanContext{}, fmt.Errorf("malformed basic carrier: %w", ErrSpanContextCorrupted)
		}
		data = data[n:]
		switch {
		case num == fieldBasicTraceID && typ == protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(data)
			if m < 0 {
				return SpanContext{}, fmt.Errorf("malformed trace id: %w", ErrSpanContextCorrupted)
			}
			sc.TraceIDLow = v
			data = data[m:]
		case num == fieldBasicSpanID && typ == protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(data)
			if m < 0 {
				return SpanContext{}, fmt.Errorf("malformed span id: %w", ErrSpanContextCorrupted)
			}
			sc.SpanID = v
			data = data[m:]
		case num == fieldBasicSampled && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return SpanContext{}, fmt.Errorf("malformed sampled: %w", ErrSpanContextCorrupted)
			}
			sc.Sampled = v != 0
			data = data[m:]
		case num == fieldBasicBaggage && typ == protowire.BytesType:
			entry, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return SpanContext{}, fmt.Errorf("malformed baggage entry: %w", ErrSpanContextCorrupted)
			}
			data = data[m:]
			k, v, err := decodeKVEntry(entry)
			if err != nil {
				return SpanContext{}, err
			}
			sc.Baggage[k] = v
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return SpanContext{}, fmt.Errorf("malformed field: %w", ErrSpanContextCorrupted)
			}
			data = data[m:]
		}
	}
	return sc, nil
}

func decodeKVEntry(data []byte) (string, string, error) {
	var key, value string
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", "", fmt.Errorf("malformed kv entry: %w", ErrSpanContextCorrupted)
		}
		data = data[n:]
		if typ != protowire.BytesType {
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return "", "", fmt.Errorf("malformed kv field: %w", ErrSpanContextCorrupted)
			}
			data = data[m:]
			continue
		}
		s, m := protowire.ConsumeString(data)
		if m < 0 {
			return "", "", fmt.Errorf("malformed kv string: %w", ErrSpanContextCorrupted)
		}
		data = data[m:]
		if num == 1 {
			key = s
		} else if num == 2 {
			value = s
		}
	}
	return key, value, nil
}

// envoyBinaryPropagator implements the Envoy/legacy binary envelope
// a 4-byte big-endian length prefix followed by the protobuf
// BasicTracerCarrier message, operating on a *[]byte carrier.
type envoyBinaryPropagator struct{}

func (envoyBinaryPropagator) Inject(sc SpanContext, carrier interface{}) error {
	buf, ok := carrier.(*[]byte)
	if !ok {
		return ErrInvalidCarrier
	}
	payload := encodeBasicTracerCarrier(sc)
	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	copy(out[4:], payload)
	*buf = out
	return nil
}

func (envoyBinaryPropagator) Extract(carrier interface{}) (SpanContext, error) {
	buf, ok := carrier.(*[]byte)
	if !ok {
		return SpanContext{}, ErrInvalidCarrier
	}
	data := *buf
	if len(data) < 4 {
		return SpanContext{}, fmt.Errorf("envoy binary carrier too short: %w", ErrSpanContextCorrupted)
	}
	length := binary.BigEndian.Uint32(data[:4])
	payload := data[4:]
	if uint32(len(payload)) < length {
		return SpanContext{}, fmt.Errorf("envoy binary carrier truncated: %w", ErrSpanContextCorrupted)
	}
	return decodeBasicTracerCarrier(payload[:length])
}

// lightstepBinaryPropagator implements the LightStep binary envelope
// a BinaryCarrier{basic_ctx} protobuf wrapper, base64-encoded on
// inject and base64-decoded on extract, operating on a *[]byte carrier.
type lightstepBinaryPropagator struct{}

func (lightstepBinaryPropagator) Inject(sc SpanContext, carrier interface{}) error {
	buf, ok := carrier.(*[]byte)
	if !ok {
		return ErrInvalidCarrier
	}
	inner := encodeBasicTracerCarrier(sc)
	var wrapper []byte
	wrapper = protowire.AppendTag(wrapper, fieldBinaryCarrierBasicCtx, protowire.BytesType)
	wrapper = protowire.AppendBytes(wrapper, inner)

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(wrapper)))
	base64.StdEncoding.Encode(encoded, wrapper)
	*buf = encoded
	return nil
}

func (lightstepBinaryPropagator) Extract(carrier interface{}) (SpanContext, error) {
	buf, ok := carrier.(*[]byte)
	if !ok {
		return SpanContext{}, ErrInvalidCarrier
	}
	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(*buf)))
	n, err := base64.StdEncoding.Decode(decoded, *buf)
	if err != nil {
		return SpanContext{}, fmt.Errorf("lightstep binary base64: %w", ErrSpanContextCorrupted)
	}
	decoded = decoded[:n]

	for len(decoded) > 0 {
		num, typ, tn := protowire.ConsumeTag(decoded)
		if tn < 0 {
			return SpanContext{}, fmt.Errorf("malformed binary carrier: %w", ErrSpanContextCorrupted)
		}
		decoded = decoded[tn:]
		if num == fieldBinaryCarrierBasicCtx && typ == protowire.BytesType {
			inner, m := protowire.ConsumeBytes(decoded)
			if m < 0 {
				return SpanContext{}, fmt.Errorf("malformed basic_ctx: %w", ErrSpanContextCorrupted)
			}
			return decodeBasicTracerCarrier(inner)
		}
		m := protowire.ConsumeFieldValue(num, typ, decoded)
		if m < 0 {
			return SpanContext{}, fmt.Errorf("malformed binary carrier field: %w", ErrSpanContextCorrupted)
		}
		decoded = decoded[m:]
	}
	return SpanContext{}, fmt.Errorf("binary carrier missing basic_ctx: %w", ErrSpanContextCorrupted)
}
