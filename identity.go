// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import "os"

// TracerPlatformVersion and TracerVersion identify this implementation in
// every reporter identity, matching the mandatory reporter tags.
const (
	TracerPlatform        = "go"
	TracerPlatformVersion = "go1.21"
	TracerVersion         = "1.0.0"
)

// ReporterIdentity is the immutable, process-wide descriptor attached to
// every report: a random 64-bit GUID, the component name, and a merged tag
// set carrying the six mandatory defaults (hostname included).
type ReporterIdentity struct {
	GUID          uint64
	ComponentName string
	Tags          map[string]string
}

// newReporterIdentity builds a ReporterIdentity from a component name and
// caller-supplied tags, merging in the mandatory defaults. Caller tags
// never override the five lightstep.* identity fields; the hostname tag
// is always observed fresh at construction.
func newReporterIdentity(componentName string, tags map[string]string) ReporterIdentity {
	guid := generateGUID()
	merged := make(map[string]string, len(tags)+6)
	for k, v := range tags {
		merged[k] = v
	}
	merged["lightstep.tracer_platform"] = TracerPlatform
	merged["lightstep.tracer_platform_version"] = TracerPlatformVersion
	merged["lightstep.tracer_version"] = TracerVersion
	merged["lightstep.component_name"] = componentName
	merged["lightstep.guid"] = idToHex(guid)
	if host, err := os.Hostname(); err == nil {
		merged["lightstep.hostname"] = host
	} else {
		merged["lightstep.hostname"] = "unknown"
	}
	return ReporterIdentity{GUID: guid, ComponentName: componentName, Tags: merged}
}
