// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

// Command lightstep-tracer-go-demo wires a recorder against a collector
// and emits a single span, a minimal end-to-end usage example.
package main

import (
	"flag"
	"log"
	"time"

	lightstep "github.com/lightstep-go/tracer"
)

func main() {
	token := flag.String("access-token", "", "LightStep access token")
	host := flag.String("collector-host", "collector.lightstep.com", "collector host")
	flag.Parse()

	if *token == "" {
		log.Fatal("an -access-token is required")
	}

	tr, err := lightstep.NewTracer(
		lightstep.WithAccessToken(*token),
		lightstep.WithCollector(*host, 443, lightstep.EncryptionTLS),
		lightstep.WithComponentName("lightstep-tracer-go-demo"),
	)
	if err != nil {
		log.Fatalf("constructing tracer: %v", err)
	}
	defer tr.Close()

	sc := lightstep.NewSpanContext()
	start := time.Now()
	tr.Recorder().Record(lightstep.Span{
		Context:       sc,
		OperationName: "demo-span",
		Start:         start,
		Duration:      5 * time.Millisecond,
		Tags: map[string]interface{}{
			"demo": true,
		},
	})

	if !tr.Flush() {
		log.Println("flush reported no records transmitted")
	}
}
