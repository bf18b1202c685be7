// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package profiling_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorprof/likwid-collector/pkg/profiling"
)

func TestMetricValueJSONShapes(t *testing.T) {
	tests := []struct {
		name  string
		value profiling.MetricValue
		want  string
	}{
		{"count", profiling.Count{Value: 42}, `{"count":42}`},
		{"overflow sentinel", profiling.Count{Value: -1}, `{"count":-1}`},
		{"ratio", profiling.Ratio{Value: 0.5}, `{"ratio":0.5}`},
		{"duration", profiling.Duration{Microseconds: 12.25}, `{"microseconds":12.25}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "L2_MISSES [Thread 0]", profiling.FormatLabel("L2_MISSES", 0))
	assert.Equal(t, "IPC [Thread 12]", profiling.FormatLabel("IPC", 12))
}

func TestParseLabelRoundTrip(t *testing.T) {
	for _, name := range []string{"CYCLES", "Memory bandwidth [MBytes/s]", "IPC"} {
		for _, thread := range []int{0, 1, 63} {
			label := profiling.FormatLabel(name, thread)
			gotName, gotThread, ok := profiling.ParseLabel(label)
			require.True(t, ok, "label %q", label)
			assert.Equal(t, name, gotName)
			assert.Equal(t, thread, gotThread)
		}
	}
}

func TestParseLabelRejectsPlainNames(t *testing.T) {
	tests := []string{
		"Duration (us)",
		"CYCLES",
		"CYCLES [Thread x]",
		"CYCLES [Thread -1]",
	}
	for _, label := range tests {
		_, _, ok := profiling.ParseLabel(label)
		assert.False(t, ok, "label %q should not parse", label)
	}
}

func TestDeviceString(t *testing.T) {
	assert.Equal(t, "cpu(0)", profiling.Device{Type: "cpu", ID: 0}.String())
	assert.Equal(t, "device(3)", profiling.Device{ID: 3}.String())
}
