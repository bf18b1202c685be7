// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package otel

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricSDK "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/tensorprof/likwid-collector/internal/metrics"
	"github.com/tensorprof/likwid-collector/pkg/profiling"
)

func reportEvent(report *profiling.Report) metrics.MetricEvent {
	return metrics.MetricEvent{
		Timestamp:  time.Now(),
		Source:     "likwid-collector",
		SessionID:  report.SessionID,
		MetricType: metrics.MetricTypeProfileReport,
		EventType:  metrics.EventTypeSnapshot,
		Data:       report,
	}
}

func collect(t *testing.T, reader *metricSDK.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestTransformerRecordsReportEntries(t *testing.T) {
	reader := metricSDK.NewManualReader()
	provider := metricSDK.NewMeterProvider(metricSDK.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	tr, err := NewTransformer(provider.Meter("test"), logr.Discard())
	require.NoError(t, err)

	report := &profiling.Report{
		SessionID: "s1",
		Calls: []profiling.CallRecord{{
			Name:   "matmul",
			Device: "cpu(0)",
			Metrics: map[string]profiling.MetricValue{
				"L2_MISSES [Thread 0]":  profiling.Count{Value: 50},
				"CYCLES [Thread 1]":     profiling.Count{Value: -1},
				"IPC [Thread 0]":        profiling.Ratio{Value: 0.5},
				profiling.DurationLabel: profiling.Duration{Microseconds: 123.0},
			},
		}},
	}
	require.NoError(t, tr.TransformAndRecord(context.Background(), reportEvent(report)))

	collected := collect(t, reader)

	counts, ok := collected[eventCountInstrument].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, counts.DataPoints, 1)
	assert.Equal(t, int64(50), counts.DataPoints[0].Value)

	overflows, ok := collected[overflowInstrument].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, overflows.DataPoints, 1)
	assert.Equal(t, int64(1), overflows.DataPoints[0].Value,
		"overflow sentinel must be counted, not added")

	derived, ok := collected[derivedInstrument].Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, derived.DataPoints, 1)
	assert.Equal(t, 0.5, derived.DataPoints[0].Value)

	durations, ok := collected[callDurationInstrument].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, durations.DataPoints, 1)
	assert.Equal(t, uint64(1), durations.DataPoints[0].Count)
}

func TestTransformerRejectsForeignPayload(t *testing.T) {
	reader := metricSDK.NewManualReader()
	provider := metricSDK.NewMeterProvider(metricSDK.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	tr, err := NewTransformer(provider.Meter("test"), logr.Discard())
	require.NoError(t, err)

	event := reportEvent(&profiling.Report{SessionID: "s1"})
	event.Data = "not a report"
	assert.Error(t, tr.TransformAndRecord(context.Background(), event))

	event.MetricType = "unknown"
	assert.Error(t, tr.TransformAndRecord(context.Background(), event))
}
