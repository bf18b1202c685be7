// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build linux && cgo && likwid

package likwid

/*
#cgo LDFLAGS: -llikwid
#include <stdlib.h>
#include <likwid.h>
*/
import "C"

import (
	"unsafe"
)

// maxRegionEvents bounds the marker-region read buffer when perfmon does
// not report an event count for the active group.
const maxRegionEvents = 64

type cgoLibrary struct{}

func newPlatformLibrary() Library {
	return &cgoLibrary{}
}

func (*cgoLibrary) Available() bool { return true }

func (*cgoLibrary) MarkerInit() {
	C.likwid_markerInit()
}

func (*cgoLibrary) MarkerThreadInit() {
	C.likwid_markerThreadInit()
}

func (*cgoLibrary) MarkerClose() {
	C.likwid_markerClose()
}

func (*cgoLibrary) MarkerRegisterRegion(region string) int {
	tag := C.CString(region)
	defer C.free(unsafe.Pointer(tag))
	return int(C.likwid_markerRegisterRegion(tag))
}

func (*cgoLibrary) MarkerStartRegion(region string) int {
	tag := C.CString(region)
	defer C.free(unsafe.Pointer(tag))
	return int(C.likwid_markerStartRegion(tag))
}

func (*cgoLibrary) MarkerStopRegion(region string) int {
	tag := C.CString(region)
	defer C.free(unsafe.Pointer(tag))
	return int(C.likwid_markerStopRegion(tag))
}

func (l *cgoLibrary) MarkerGetRegion(region string) RegionReading {
	tag := C.CString(region)
	defer C.free(unsafe.Pointer(tag))

	nevents := l.NumberOfEvents(l.ActiveGroup())
	if nevents <= 0 {
		nevents = maxRegionEvents
	}
	events := make([]C.double, nevents)
	cn := C.int(nevents)
	var elapsed C.double
	var count C.int
	C.likwid_markerGetRegion(tag, &cn, &events[0], &elapsed, &count)

	if int(cn) < nevents {
		nevents = int(cn)
	}
	reading := RegionReading{
		Events:    make([]float64, nevents),
		Elapsed:   float64(elapsed),
		CallCount: int(count),
	}
	for i := 0; i < nevents; i++ {
		reading.Events[i] = float64(events[i])
	}
	return reading
}

func (*cgoLibrary) ActiveGroup() int {
	return int(C.perfmon_getIdOfActiveGroup())
}

func (*cgoLibrary) ReadGroupCounters(group int) int {
	return int(C.perfmon_readGroupCounters(C.int(group)))
}

func (*cgoLibrary) NumberOfEvents(group int) int {
	return int(C.perfmon_getNumberOfEvents(C.int(group)))
}

func (*cgoLibrary) NumberOfMetrics(group int) int {
	return int(C.perfmon_getNumberOfMetrics(C.int(group)))
}

func (*cgoLibrary) NumberOfThreads() int {
	return int(C.perfmon_getNumberOfThreads())
}

func (*cgoLibrary) EventName(group, event int) string {
	return C.GoString(C.perfmon_getEventName(C.int(group), C.int(event)))
}

func (*cgoLibrary) MetricName(group, metric int) string {
	return C.GoString(C.perfmon_getMetricName(C.int(group), C.int(metric)))
}

func (*cgoLibrary) Result(group, event, thread int) float64 {
	return float64(C.perfmon_getResult(C.int(group), C.int(event), C.int(thread)))
}

func (*cgoLibrary) Metric(group, metric, thread int) float64 {
	return float64(C.perfmon_getMetric(C.int(group), C.int(metric), C.int(thread)))
}
