// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package likwid_test

import (
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/tensorprof/likwid-collector/pkg/likwid"
)

// mockLibrary is a scripted in-memory stand-in for liblikwid. Tests mutate
// eventValues and metricValues between collector calls to simulate counter
// progress.
type mockLibrary struct {
	group   int
	threads int

	eventNames   []string
	eventValues  map[string][]float64
	metricNames  []string
	metricValues map[string][]float64

	regionStatus int // returned by all marker region calls
	readStatus   int // returned by ReadGroupCounters
	region       likwid.RegionReading

	markerInits  int
	threadInits  int
	markerCloses int
	groupReads   int
	resultReads  int

	closed         bool
	readAfterClose bool
}

func newMockLibrary(threads int) *mockLibrary {
	return &mockLibrary{
		group:        1,
		threads:      threads,
		eventValues:  make(map[string][]float64),
		metricValues: make(map[string][]float64),
	}
}

func (m *mockLibrary) setEvent(name string, values ...float64) {
	if _, ok := m.eventValues[name]; !ok {
		m.eventNames = append(m.eventNames, name)
	}
	m.eventValues[name] = values
}

func (m *mockLibrary) setMetric(name string, values ...float64) {
	if _, ok := m.metricValues[name]; !ok {
		m.metricNames = append(m.metricNames, name)
	}
	m.metricValues[name] = values
}

func (m *mockLibrary) Available() bool { return true }

func (m *mockLibrary) MarkerInit()       { m.markerInits++ }
func (m *mockLibrary) MarkerThreadInit() { m.threadInits++ }
func (m *mockLibrary) MarkerClose() {
	m.markerCloses++
	m.closed = true
}

func (m *mockLibrary) MarkerRegisterRegion(string) int { return m.regionStatus }
func (m *mockLibrary) MarkerStartRegion(string) int    { return m.regionStatus }
func (m *mockLibrary) MarkerStopRegion(string) int     { return m.regionStatus }

func (m *mockLibrary) MarkerGetRegion(string) likwid.RegionReading { return m.region }

func (m *mockLibrary) ActiveGroup() int { return m.group }

func (m *mockLibrary) ReadGroupCounters(int) int {
	m.noteRead()
	m.groupReads++
	return m.readStatus
}

func (m *mockLibrary) NumberOfEvents(int) int  { return len(m.eventNames) }
func (m *mockLibrary) NumberOfMetrics(int) int { return len(m.metricNames) }
func (m *mockLibrary) NumberOfThreads() int    { return m.threads }

func (m *mockLibrary) EventName(_, event int) string   { return m.eventNames[event] }
func (m *mockLibrary) MetricName(_, metric int) string { return m.metricNames[metric] }

func (m *mockLibrary) Result(_, event, thread int) float64 {
	m.noteRead()
	m.resultReads++
	return m.eventValues[m.eventNames[event]][thread]
}

func (m *mockLibrary) Metric(_, metric, thread int) float64 {
	m.noteRead()
	return m.metricValues[m.metricNames[metric]][thread]
}

func (m *mockLibrary) noteRead() {
	if m.closed {
		m.readAfterClose = true
	}
}

// newTestLogger returns a logger whose output lines are appended to the
// returned slice, one entry per log call.
func newTestLogger() (logr.Logger, *[]string) {
	lines := &[]string{}
	logger := funcr.New(func(prefix, args string) {
		*lines = append(*lines, args)
	}, funcr.Options{})
	return logger, lines
}

func countLines(lines []string, substr string) int {
	n := 0
	for _, line := range lines {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}
