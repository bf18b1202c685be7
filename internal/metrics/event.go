// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package metrics routes finished profiling data to consumers. The
// profiling layer publishes events through a Router; consumers (such as
// the OpenTelemetry exporter) receive them via direct method calls and
// handle their own buffering and batching.
package metrics

import (
	"time"
)

// MetricType identifies what kind of payload an event carries.
type MetricType string

const (
	// MetricTypeProfileReport is a complete profiling session report.
	// Payload: *profiling.Report.
	MetricTypeProfileReport MetricType = "profile_report"
)

// EventType indicates how consumers should interpret the payload's
// values.
type EventType string

const (
	EventTypeCounter  EventType = "counter"  // monotonic event counts
	EventTypeGauge    EventType = "gauge"    // point-in-time values
	EventTypeSnapshot EventType = "snapshot" // complete state capture
)

// MetricEvent is one event flowing through the pipeline.
type MetricEvent struct {
	// Event metadata
	Timestamp time.Time
	Source    string // e.g. "likwid-collector"
	NodeName  string
	SessionID string

	// Metric identification
	MetricType MetricType
	EventType  EventType

	// Payload; the concrete type is determined by MetricType.
	Data any
}

// Router routes metric events to registered consumers.
type Router interface {
	// Publish emits an event to all registered consumers.
	Publish(event MetricEvent) error

	// PublishBatch emits multiple events.
	PublishBatch(events []MetricEvent) error
}
