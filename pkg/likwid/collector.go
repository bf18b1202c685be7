// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package likwid

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/tensorprof/likwid-collector/pkg/profiling"
)

// EventSet is the baseline snapshot taken by Start and consumed by the
// matching Stop. Baseline maps each event name of the active group to its
// per-thread accumulated counts, indexed by thread ordinal.
type EventSet struct {
	Baseline map[string][]float64
	Device   profiling.Device
}

// MetricCollector reads CPU hardware counters through the LIKWID perfmon
// API around each profiled call.
//
// Start records the accumulated per-thread counts of the active event
// group; Stop re-reads them and reports the per-invocation deltas under
// labels of the form "EVENT [Thread N]". Counters are differenced rather
// than reset because perfmon accumulates across the process lifetime;
// fresh baselines per invocation yield per-invocation deltas without
// touching hardware counter state. Derived metrics, when enabled, are
// reported as absolute values: perfmon computes them from the currently
// accumulated counts and subtracting two ratios is ill-defined.
//
// The process must run under the likwid-perfctr wrapper so the counters
// are programmed and an event group is active before Init runs. A single
// collector instance owns the process-wide marker session; do not hold two
// open at once.
type MetricCollector struct {
	logger  logr.Logger
	lib     Library
	adapter *Adapter

	collectDerivedMetrics bool
	opened                bool
	closed                bool
}

var _ profiling.MetricCollector = (*MetricCollector)(nil)

// NewMetricCollector builds a collector on the platform LIKWID binding.
// When collectDerivedMetrics is set, Stop additionally reports the derived
// metrics of the active event group.
func NewMetricCollector(collectDerivedMetrics bool, logger logr.Logger) *MetricCollector {
	return NewMetricCollectorWithLibrary(NewLibrary(), collectDerivedMetrics, logger)
}

// NewMetricCollectorWithLibrary is NewMetricCollector with an explicit
// library binding. Tests use it to substitute a mock.
func NewMetricCollectorWithLibrary(lib Library, collectDerivedMetrics bool, logger logr.Logger) *MetricCollector {
	logger = logger.WithName("likwid-collector")
	return &MetricCollector{
		logger:                logger,
		lib:                   lib,
		adapter:               NewAdapter(lib, logger),
		collectDerivedMetrics: collectDerivedMetrics,
	}
}

// Init opens the process-wide marker session. The device list is accepted
// for contract compatibility and ignored; LIKWID samples CPU counters
// regardless of which device the host schedules work on.
func (c *MetricCollector) Init(devices []profiling.Device) error {
	if !c.lib.Available() {
		c.logger.Info("LIKWID support is not compiled in; reports will contain no counter data")
	}
	env := DetectEnvironment()
	if !env.UnderWrapper {
		c.logger.Info("Process does not appear to be running under likwid-perfctr; no event group will be active",
			"kernel", env.Kernel)
	}
	c.lib.MarkerInit()
	c.lib.MarkerThreadInit()
	c.opened = true
	return nil
}

// Start reads the active group's counters and returns the baseline
// snapshot for the matching Stop. A failed read yields an empty baseline,
// in which case Stop computes no differences.
func (c *MetricCollector) Start(device profiling.Device) (any, error) {
	group := c.lib.ActiveGroup()
	c.adapter.ReadGroup(group)
	return &EventSet{
		Baseline: c.adapter.EnumerateResults(group),
		Device:   device,
	}, nil
}

// Stop re-reads the active group's counters and reports the per-thread
// deltas against the snapshot. A negative delta means the hardware counter
// overflowed during the invocation; the entry is reported as Count(-1) and
// a warning is logged. When derived metrics are enabled the current metric
// values are appended un-differenced as Ratio entries.
func (c *MetricCollector) Stop(snapshot any) (map[string]profiling.MetricValue, error) {
	eventSet, ok := snapshot.(*EventSet)
	if !ok {
		return nil, fmt.Errorf("expected *likwid.EventSet snapshot, got %T", snapshot)
	}

	group := c.lib.ActiveGroup()
	c.adapter.ReadGroup(group)
	endValues := c.adapter.EnumerateResults(group)

	reported := make(map[string]profiling.MetricValue, len(endValues))
	for event, end := range endValues {
		baseline, ok := eventSet.Baseline[event]
		if !ok {
			// The event list only changes if the group was
			// reconfigured mid-run, which violates the session
			// preconditions.
			continue
		}
		for thread, value := range end {
			if thread >= len(baseline) {
				break
			}
			label := profiling.FormatLabel(event, thread)
			diff := value - baseline[thread]
			if diff < 0 {
				c.logger.Info(overflowWarning, "event", event, "thread", thread)
				reported[label] = profiling.Count{Value: -1}
				continue
			}
			reported[label] = profiling.Count{Value: int64(diff)}
		}
	}

	if c.lib.NumberOfThreads() <= 0 {
		c.logger.Error(nil, threadCountError)
		return reported, nil
	}
	if !c.collectDerivedMetrics {
		return reported, nil
	}
	if c.lib.NumberOfMetrics(group) == 0 {
		c.logger.Info(noMetricsWarning)
		return reported, nil
	}
	for metric, values := range c.adapter.EnumerateMetrics(group) {
		for thread, value := range values {
			reported[profiling.FormatLabel(metric, thread)] = profiling.Ratio{Value: value}
		}
	}
	return reported, nil
}

// Close tears down the marker session. Closing twice is a no-op; the
// perfmon session is process-wide and must be released exactly once.
func (c *MetricCollector) Close() error {
	if c.opened && !c.closed {
		c.lib.MarkerClose()
	}
	c.closed = true
	return nil
}
