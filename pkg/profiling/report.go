// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package profiling

import (
	"encoding/json"
	"fmt"
)

// CallRecord holds the merged metrics for a single profiled invocation.
type CallRecord struct {
	Name    string                 `json:"name"`
	Device  string                 `json:"device"`
	Metrics map[string]MetricValue `json:"metrics"`
}

// Report is the result of one profiling session. Calls appear in the order
// the session recorded them.
type Report struct {
	SessionID string            `json:"session_id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Calls     []CallRecord      `json:"calls"`
}

// AsJSON serializes the report. Map keys are emitted in sorted order, so
// the output is deterministic for a given report.
func (r *Report) AsJSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to serialize report: %w", err)
	}
	return string(data), nil
}
