// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// idToHex formats a 64-bit identifier as lowercase, unpadded hex.
func idToHex(id uint64) string {
	return strconv.FormatUint(id, 16)
}

// idToHexPadded formats a 64-bit identifier as lowercase hex, zero-padded
// to width hex digits (used by formats like W3C that require fixed width).
func idToHexPadded(id uint64, width int) string {
	s := strconv.FormatUint(id, 16)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

// hexToUint64 parses a (possibly unpadded) lowercase hex string into a
// uint64, tolerating upper case on input.
func hexToUint64(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}

// coerceStr converts an arbitrary tag or log-field value to a string,
// guaranteed never to panic. Non-string values go through fmt.Sprint
// (which uses Error/String methods and recovers from panics in them), and
// the result is forced to valid UTF-8.
func coerceStr(v interface{}) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	default:
		s = fmt.Sprint(v)
	}
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}

// formatExcType returns the simple type name of an error/type value for
// the error.kind log field, falling back to coerceStr for anything that
// isn't a recognizable type descriptor.
func formatExcType(v interface{}) string {
	if t, ok := v.(reflect.Type); ok {
		return t.Name()
	}
	if _, ok := v.(error); !ok {
		return coerceStr(v)
	}
	rt := reflect.TypeOf(v)
	if rt == nil {
		return coerceStr(v)
	}
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Name() != "" {
		return rt.Name()
	}
	return coerceStr(v)
}

// formatExcTB renders a stack value for the "stack" log field: a []string
// traceback becomes a multi-line string (one element per line), anything
// else, including a []uintptr of program counters, is passed through
// coerceStr; program counters are not resolved to frames.
func formatExcTB(v interface{}) string {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, "\n")
	case string:
		return t
	default:
		return coerceStr(v)
	}
}
