// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package likwid collects CPU hardware performance counters through the
// LIKWID perfmon API and reports them as per-thread profiling metrics.
//
// The package has three layers: Library mirrors the consumed C surface of
// liblikwid, Adapter wraps it with status checking and diagnostics, and
// MetricCollector implements the host profiling contract on top of the
// adapter. Counter data only appears when the process runs under the
// likwid-perfctr wrapper tool, which programs the counters and selects the
// active event group before the process starts.
package likwid

// RegionName is the marker region tag this package registers when the
// marker API is used directly.
const RegionName = "LikwidMetricCollector"

// Diagnostic messages shared between the adapter and the collector.
const (
	overflowWarning  = "Detected overflow while reading performance counter, setting value to -1"
	noMetricsWarning = "Current event group does not have any derived metrics! Maybe consider disabling collection of derived metrics?"
	threadCountError = "No threads are known to LIKWID perfmon!"
)

// RegionReading is one snapshot of a marker region's accumulated state.
type RegionReading struct {
	// Events holds the accumulated per-event counts, indexed by the
	// event's position in the active group.
	Events []float64
	// Elapsed is the measurement time in seconds since the region was
	// first started.
	Elapsed float64
	// CallCount is the number of times the region was entered.
	CallCount int
}

// Library is the consumed surface of liblikwid. Methods map one-to-one
// onto the C entry points; calls that return a status in C return the raw
// status here and the caller decides how to surface failures.
//
// The real implementation binds against liblikwid via cgo and is selected
// with the "likwid" build tag; without it every call is a no-op that
// reports failure, so binaries built without LIKWID support still run.
type Library interface {
	// Available reports whether real LIKWID support is compiled in.
	Available() bool

	MarkerInit()
	MarkerThreadInit()
	MarkerClose()

	MarkerRegisterRegion(region string) int
	MarkerStartRegion(region string) int
	MarkerStopRegion(region string) int
	MarkerGetRegion(region string) RegionReading

	// ActiveGroup returns the id of the event group selected by the
	// wrapper tool. Only one group is active at a time.
	ActiveGroup() int
	// ReadGroupCounters triggers a counter update for the group and
	// returns the perfmon status.
	ReadGroupCounters(group int) int

	NumberOfEvents(group int) int
	NumberOfMetrics(group int) int
	NumberOfThreads() int

	EventName(group, event int) string
	MetricName(group, metric int) string

	// Result returns the accumulated raw count for one event on one
	// thread.
	Result(group, event, thread int) float64
	// Metric returns the derived metric value computed by perfmon from
	// the currently accumulated counts.
	Metric(group, metric, thread int) float64
}

// NewLibrary returns the platform LIKWID binding: the cgo-backed library
// when compiled with the "likwid" build tag on Linux, an unavailable stub
// otherwise.
func NewLibrary() Library {
	return newPlatformLibrary()
}
