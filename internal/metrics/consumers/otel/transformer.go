// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package otel

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tensorprof/likwid-collector/internal/metrics"
	"github.com/tensorprof/likwid-collector/pkg/profiling"
)

// Instrument names used for exported report entries.
const (
	eventCountInstrument   = "likwid.event.count"
	overflowInstrument     = "likwid.event.overflows"
	derivedInstrument      = "likwid.metric.value"
	callDurationInstrument = "likwid.call.duration"
)

// Transformer converts profiling reports into OpenTelemetry instruments.
// Raw event deltas feed a counter, derived metrics a gauge, and call
// durations a histogram; overflow sentinels are counted separately since
// a counter cannot absorb -1.
type Transformer struct {
	logger logr.Logger

	eventCount   metric.Int64Counter
	overflows    metric.Int64Counter
	derivedValue metric.Float64Gauge
	callDuration metric.Float64Histogram
}

func NewTransformer(meter metric.Meter, logger logr.Logger) (*Transformer, error) {
	eventCount, err := meter.Int64Counter(eventCountInstrument,
		metric.WithDescription("Raw hardware event deltas per profiled call"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", eventCountInstrument, err)
	}
	overflows, err := meter.Int64Counter(overflowInstrument,
		metric.WithDescription("Report entries invalidated by counter overflow"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", overflowInstrument, err)
	}
	derivedValue, err := meter.Float64Gauge(derivedInstrument,
		metric.WithDescription("Derived perfmon metric values"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", derivedInstrument, err)
	}
	callDuration, err := meter.Float64Histogram(callDurationInstrument,
		metric.WithDescription("Wall-clock duration of profiled calls"),
		metric.WithUnit("us"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", callDurationInstrument, err)
	}

	return &Transformer{
		logger:       logger.WithName("transformer"),
		eventCount:   eventCount,
		overflows:    overflows,
		derivedValue: derivedValue,
		callDuration: callDuration,
	}, nil
}

// TransformAndRecord records one metric event on the transformer's
// instruments.
func (t *Transformer) TransformAndRecord(ctx context.Context, event metrics.MetricEvent) error {
	switch event.MetricType {
	case metrics.MetricTypeProfileReport:
		report, ok := event.Data.(*profiling.Report)
		if !ok {
			return fmt.Errorf("%s event carries %T, expected *profiling.Report", event.MetricType, event.Data)
		}
		t.recordReport(ctx, event, report)
		return nil
	default:
		return fmt.Errorf("unsupported metric type %q", event.MetricType)
	}
}

func (t *Transformer) recordReport(ctx context.Context, event metrics.MetricEvent, report *profiling.Report) {
	base := []attribute.KeyValue{
		attribute.String("session.id", report.SessionID),
		attribute.String("source", event.Source),
	}
	if event.NodeName != "" {
		base = append(base, attribute.String("node.name", event.NodeName))
	}

	for _, call := range report.Calls {
		callAttrs := append([]attribute.KeyValue{
			attribute.String("call.name", call.Name),
			attribute.String("call.device", call.Device),
		}, base...)

		for label, value := range call.Metrics {
			name, thread, threaded := profiling.ParseLabel(label)
			var attrs []attribute.KeyValue
			if threaded {
				attrs = append([]attribute.KeyValue{
					attribute.String("metric.name", name),
					attribute.Int("thread", thread),
				}, callAttrs...)
			} else {
				attrs = append([]attribute.KeyValue{
					attribute.String("metric.name", label),
				}, callAttrs...)
			}
			set := metric.WithAttributeSet(attribute.NewSet(attrs...))

			switch v := value.(type) {
			case profiling.Count:
				if v.Value < 0 {
					t.overflows.Add(ctx, 1, set)
					continue
				}
				t.eventCount.Add(ctx, v.Value, set)
			case profiling.Ratio:
				t.derivedValue.Record(ctx, v.Value, set)
			case profiling.Duration:
				t.callDuration.Record(ctx, v.Microseconds, set)
			default:
				t.logger.V(1).Info("Skipping metric value of unknown shape",
					"label", label, "type", fmt.Sprintf("%T", value))
			}
		}
	}
}
