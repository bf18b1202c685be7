// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package profiling implements the host-side profiling contract: metric
// collectors, per-call sessions, and serializable reports. Collectors plug
// into a Profiler which brackets every profiled invocation with matching
// Start/Stop calls and merges whatever each collector reports into a
// labeled call record.
package profiling

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Device identifies the device a profiled call ran on. It is carried
// through to collectors for informational purposes; collectors that only
// sample process-wide state may ignore it.
type Device struct {
	Type string
	ID   int
}

func (d Device) String() string {
	if d.Type == "" {
		return fmt.Sprintf("device(%d)", d.ID)
	}
	return fmt.Sprintf("%s(%d)", d.Type, d.ID)
}

// MetricValue is a single value in a profiling report. Exactly three shapes
// exist: Count for integer event deltas, Ratio for derived floating-point
// metrics, and Duration for wall-clock timings. The JSON encoding tags each
// shape so consumers can tell them apart.
type MetricValue interface {
	fmt.Stringer
	json.Marshaler
	metricValue()
}

// Count is an integer-like event difference. A value of -1 marks an entry
// that was invalidated by counter overflow.
type Count struct {
	Value int64
}

func (Count) metricValue() {}

func (c Count) String() string {
	return strconv.FormatInt(c.Value, 10)
}

func (c Count) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]int64{"count": c.Value})
}

// Ratio is a floating-point derived metric, reported as-is without
// differencing.
type Ratio struct {
	Value float64
}

func (Ratio) metricValue() {}

func (r Ratio) String() string {
	return strconv.FormatFloat(r.Value, 'g', -1, 64)
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{"ratio": r.Value})
}

// Duration is a wall-clock timing in microseconds.
type Duration struct {
	Microseconds float64
}

func (Duration) metricValue() {}

func (d Duration) String() string {
	return strconv.FormatFloat(d.Microseconds, 'g', -1, 64) + "us"
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{"microseconds": d.Microseconds})
}

const (
	labelThreadPrefix = " [Thread "
	labelThreadSuffix = "]"
)

// FormatLabel builds the per-thread report label for a metric name, in the
// form "NAME [Thread N]".
func FormatLabel(name string, thread int) string {
	return fmt.Sprintf("%s%s%d%s", name, labelThreadPrefix, thread, labelThreadSuffix)
}

// ParseLabel splits a per-thread report label back into its metric name and
// thread ordinal. ok is false for labels that do not carry a thread suffix.
func ParseLabel(label string) (name string, thread int, ok bool) {
	if !strings.HasSuffix(label, labelThreadSuffix) {
		return "", 0, false
	}
	idx := strings.LastIndex(label, labelThreadPrefix)
	if idx < 0 {
		return "", 0, false
	}
	ordinal := label[idx+len(labelThreadPrefix) : len(label)-len(labelThreadSuffix)]
	thread, err := strconv.Atoi(ordinal)
	if err != nil || thread < 0 {
		return "", 0, false
	}
	return label[:idx], thread, true
}
