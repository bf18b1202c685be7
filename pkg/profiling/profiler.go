// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package profiling

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// DurationLabel is the label under which the Profiler reports the
// wall-clock time of each call.
const DurationLabel = "Duration (us)"

// Profiler runs a profiling session over a set of metric collectors.
//
// A session is single-threaded: StartCall and StopCall must be invoked
// serially from one goroutine, with every StartCall matched by a StopCall
// before the next StartCall begins. The Profiler initializes all collectors
// at construction time and closes them in Close.
type Profiler struct {
	logger     logr.Logger
	devs       []Device
	collectors []MetricCollector
	metadata   map[string]string
	sessionID  uuid.UUID

	inflight *callFrame
	calls    []CallRecord
}

type callFrame struct {
	name      string
	dev       Device
	begin     time.Time
	snapshots []any
	extra     map[string]MetricValue
}

// NewProfiler creates a session and initializes every collector with the
// device list. A collector whose Init fails is kept in the session but
// logged; per the collector contract its subsequent Start calls yield
// empty baselines rather than hard failures.
func NewProfiler(devs []Device, collectors []MetricCollector, metadata map[string]string, logger logr.Logger) *Profiler {
	p := &Profiler{
		logger:     logger.WithName("profiler"),
		devs:       devs,
		collectors: collectors,
		metadata:   metadata,
		sessionID:  uuid.New(),
	}
	for _, c := range collectors {
		if err := c.Init(devs); err != nil {
			p.logger.Error(err, "collector initialization failed")
		}
	}
	return p
}

// SessionID returns the unique identifier of this profiling session.
func (p *Profiler) SessionID() string {
	return p.sessionID.String()
}

// StartCall begins profiling one invocation. extra carries caller-supplied
// metrics that are merged into the call record as-is.
func (p *Profiler) StartCall(name string, dev Device, extra map[string]MetricValue) {
	if p.inflight != nil {
		p.logger.Error(nil, "StartCall while a call is already in flight; previous call discarded",
			"name", name, "inflight", p.inflight.name)
	}
	frame := &callFrame{
		name:      name,
		dev:       dev,
		extra:     extra,
		snapshots: make([]any, len(p.collectors)),
	}
	for i, c := range p.collectors {
		snapshot, err := c.Start(dev)
		if err != nil {
			p.logger.Error(err, "collector Start failed", "call", name)
			continue
		}
		frame.snapshots[i] = snapshot
	}
	frame.begin = time.Now()
	p.inflight = frame
}

// StopCall ends the in-flight invocation, collects every collector's
// metrics, and appends the merged call record to the session.
func (p *Profiler) StopCall() {
	frame := p.inflight
	if frame == nil {
		p.logger.Error(nil, "StopCall without a matching StartCall")
		return
	}
	elapsed := time.Since(frame.begin)
	p.inflight = nil

	metrics := map[string]MetricValue{
		DurationLabel: Duration{Microseconds: float64(elapsed) / float64(time.Microsecond)},
	}
	for label, v := range frame.extra {
		metrics[label] = v
	}
	for i, c := range p.collectors {
		if frame.snapshots[i] == nil {
			continue
		}
		collected, err := c.Stop(frame.snapshots[i])
		if err != nil {
			p.logger.Error(err, "collector Stop failed", "call", frame.name)
			continue
		}
		for label, v := range collected {
			metrics[label] = v
		}
	}
	p.calls = append(p.calls, CallRecord{
		Name:    frame.name,
		Device:  frame.dev.String(),
		Metrics: metrics,
	})
}

// Report returns the session's report. It may be called repeatedly; each
// call reflects the records accumulated so far.
func (p *Profiler) Report() *Report {
	return &Report{
		SessionID: p.sessionID.String(),
		Metadata:  p.metadata,
		Calls:     p.calls,
	}
}

// Close shuts down every collector. The first close error is returned
// after all collectors have been given the chance to clean up.
func (p *Profiler) Close() error {
	var firstErr error
	for _, c := range p.collectors {
		if err := c.Close(); err != nil {
			p.logger.Error(err, "collector close failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// ProfileFunction runs fn once under a fresh session and returns the
// finished report. Collectors are initialized before the call and closed
// before the report is returned.
func ProfileFunction(name string, fn func() error, devs []Device, collectors []MetricCollector, metadata map[string]string, logger logr.Logger) (*Report, error) {
	if len(devs) == 0 {
		devs = []Device{{Type: "cpu", ID: 0}}
	}
	p := NewProfiler(devs, collectors, metadata, logger)
	defer func() {
		if err := p.Close(); err != nil {
			logger.Error(err, "failed to close profiling session")
		}
	}()

	p.StartCall(name, devs[0], nil)
	err := fn()
	p.StopCall()
	if err != nil {
		return nil, fmt.Errorf("profiled function %q failed: %w", name, err)
	}
	return p.Report(), nil
}
