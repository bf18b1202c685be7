// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package likwid

import (
	"github.com/go-logr/logr"
)

// Adapter wraps the raw Library calls with status checking. Failures are
// never propagated: structural calls (registering and switching marker
// regions) log at error level, read calls at warning level, and execution
// continues either way. The perfmon API is best-effort, so the adapter is
// too.
type Adapter struct {
	lib    Library
	logger logr.Logger
}

func NewAdapter(lib Library, logger logr.Logger) *Adapter {
	return &Adapter{
		lib:    lib,
		logger: logger.WithName("likwid"),
	}
}

// RegisterRegion declares a named marker region.
func (a *Adapter) RegisterRegion(region string) {
	if status := a.lib.MarkerRegisterRegion(region); status != 0 {
		a.logger.Error(nil, "Could not register marker region", "region", region, "status", status)
	}
}

// StartRegion begins or resumes counting inside a marker region.
func (a *Adapter) StartRegion(region string) {
	if status := a.lib.MarkerStartRegion(region); status != 0 {
		a.logger.Error(nil, "Could not start marker region", "region", region, "status", status)
	}
}

// StopRegion pauses counting inside a marker region.
func (a *Adapter) StopRegion(region string) {
	if status := a.lib.MarkerStopRegion(region); status != 0 {
		a.logger.Error(nil, "Could not stop marker region", "region", region, "status", status)
	}
}

// GetRegion fetches the current accumulated counters of a marker region.
func (a *Adapter) GetRegion(region string) RegionReading {
	reading := a.lib.MarkerGetRegion(region)
	if len(reading.Events) == 0 {
		a.logger.Info("Marker region event count is zero", "region", region)
	}
	return reading
}

// ReadGroup triggers a counter update for the given event group.
func (a *Adapter) ReadGroup(group int) {
	if status := a.lib.ReadGroupCounters(group); status != 0 {
		a.logger.Info("Could not read group counters", "group", group, "status", status)
	}
}

// EnumerateResults reads the raw event counts of the group for every
// thread perfmon knows about. The returned slices are indexed by thread
// ordinal, contiguous from zero. A group without threads yields nil.
func (a *Adapter) EnumerateResults(group int) map[string][]float64 {
	return a.enumerate(group, a.lib.NumberOfEvents(group), a.lib.EventName, a.lib.Result)
}

// EnumerateMetrics reads the derived metric values of the group for every
// thread. Values reflect the currently accumulated counts; perfmon
// computes them on read.
func (a *Adapter) EnumerateMetrics(group int) map[string][]float64 {
	return a.enumerate(group, a.lib.NumberOfMetrics(group), a.lib.MetricName, a.lib.Metric)
}

func (a *Adapter) enumerate(group, n int, name func(int, int) string, value func(int, int, int) float64) map[string][]float64 {
	threads := a.lib.NumberOfThreads()
	if threads <= 0 || n <= 0 {
		return nil
	}
	out := make(map[string][]float64, n)
	for id := 0; id < n; id++ {
		values := make([]float64, threads)
		for t := 0; t < threads; t++ {
			values[t] = value(group, id, t)
		}
		out[name(group, id)] = values
	}
	return out
}
