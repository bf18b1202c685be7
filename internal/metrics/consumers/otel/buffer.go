// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package otel

import (
	"sync"

	"github.com/tensorprof/likwid-collector/internal/metrics"
	"github.com/tensorprof/likwid-collector/pkg/ringbuffer"
)

// MetricsBuffer is a thread-safe ring buffer for metric events. It
// overwrites the oldest event when capacity is reached, giving the
// consumer a natural drop-oldest policy under load.
type MetricsBuffer struct {
	rb *ringbuffer.RingBuffer[metrics.MetricEvent]
	mu sync.Mutex

	notify chan struct{}
}

func NewMetricsBuffer(capacity int) (*MetricsBuffer, error) {
	rb, err := ringbuffer.New[metrics.MetricEvent](capacity)
	if err != nil {
		return nil, err
	}
	return &MetricsBuffer{
		rb:     rb,
		notify: make(chan struct{}, 1),
	}, nil
}

// Push adds an event, overwriting the oldest if full. Never blocks.
func (b *MetricsBuffer) Push(event metrics.MetricEvent) {
	b.mu.Lock()
	b.rb.Push(event)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
		// A notification is already pending.
	}
}

// Drain removes and returns all buffered events, oldest first. Returns
// nil when the buffer is empty.
func (b *MetricsBuffer) Drain() []metrics.MetricEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rb.Len() == 0 {
		return nil
	}
	all := b.rb.GetAll()
	b.rb.Clear()
	return all
}

// NotifyChannel signals when new events arrive.
func (b *MetricsBuffer) NotifyChannel() <-chan struct{} {
	return b.notify
}

// Len returns the current number of buffered events.
func (b *MetricsBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rb.Len()
}
