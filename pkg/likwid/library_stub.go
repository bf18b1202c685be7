// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build !linux || !cgo || !likwid

package likwid

// stubStatus is the status reported by every stub call that returns one.
const stubStatus = -1

// stubLibrary stands in for liblikwid when the binary is built without the
// "likwid" tag. Marker calls are no-ops and every perfmon query reports an
// empty system, so the collector degrades to empty baselines as the
// failure semantics require.
type stubLibrary struct{}

func newPlatformLibrary() Library {
	return stubLibrary{}
}

func (stubLibrary) Available() bool { return false }

func (stubLibrary) MarkerInit()       {}
func (stubLibrary) MarkerThreadInit() {}
func (stubLibrary) MarkerClose()      {}

func (stubLibrary) MarkerRegisterRegion(string) int { return stubStatus }
func (stubLibrary) MarkerStartRegion(string) int    { return stubStatus }
func (stubLibrary) MarkerStopRegion(string) int     { return stubStatus }

func (stubLibrary) MarkerGetRegion(string) RegionReading { return RegionReading{} }

func (stubLibrary) ActiveGroup() int            { return -1 }
func (stubLibrary) ReadGroupCounters(int) int   { return stubStatus }
func (stubLibrary) NumberOfEvents(int) int      { return 0 }
func (stubLibrary) NumberOfMetrics(int) int     { return 0 }
func (stubLibrary) NumberOfThreads() int        { return 0 }
func (stubLibrary) EventName(int, int) string   { return "" }
func (stubLibrary) MetricName(int, int) string  { return "" }
func (stubLibrary) Result(int, int, int) float64 { return 0 }
func (stubLibrary) Metric(int, int, int) float64 { return 0 }
