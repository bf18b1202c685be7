// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package profiling

// MetricCollector gathers metrics around each profiled invocation.
//
// The Profiler drives the lifecycle serially on one goroutine: Init is
// called exactly once before any Start, every Start is followed by its
// matching Stop before the next Start, and Close is called exactly once
// when the session ends. Implementations may rely on that ordering and do
// not need to defend against out-of-order calls.
type MetricCollector interface {
	// Init prepares the collector for a profiling session. The device
	// list is informational; collectors that sample process-wide state
	// may ignore it.
	Init(devices []Device) error

	// Start is called immediately before a profiled invocation and
	// returns an opaque snapshot of the collector's baseline state. The
	// snapshot is handed back untouched to the matching Stop call.
	Start(device Device) (any, error)

	// Stop is called immediately after the profiled invocation returns.
	// It receives the snapshot produced by the matching Start and yields
	// the labeled metrics for this invocation. Labels must be unique
	// within one result.
	Stop(snapshot any) (map[string]MetricValue, error)

	// Close releases any resources held by the collector. It must be
	// safe to call after a failed Init and must not be called twice.
	Close() error
}
