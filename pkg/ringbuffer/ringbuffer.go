// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package ringbuffer provides a fixed-capacity generic ring buffer that
// overwrites its oldest element when full. It is not safe for concurrent
// use; callers that share a buffer across goroutines must synchronize.
package ringbuffer

import "fmt"

type RingBuffer[T any] struct {
	items []T
	head  int
	size  int
}

// New creates a ring buffer with the given capacity.
func New[T any](capacity int) (*RingBuffer[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	return &RingBuffer[T]{
		items: make([]T, capacity),
	}, nil
}

// Push appends an item, overwriting the oldest one when the buffer is
// full.
func (rb *RingBuffer[T]) Push(item T) {
	tail := (rb.head + rb.size) % len(rb.items)
	rb.items[tail] = item
	if rb.size < len(rb.items) {
		rb.size++
		return
	}
	rb.head = (rb.head + 1) % len(rb.items)
}

// GetAll returns the buffered items oldest-first. The returned slice is a
// copy; mutating it does not affect the buffer.
func (rb *RingBuffer[T]) GetAll() []T {
	if rb.size == 0 {
		return nil
	}
	out := make([]T, rb.size)
	for i := 0; i < rb.size; i++ {
		out[i] = rb.items[(rb.head+i)%len(rb.items)]
	}
	return out
}

// Clear removes all items.
func (rb *RingBuffer[T]) Clear() {
	var zero T
	for i := range rb.items {
		rb.items[i] = zero
	}
	rb.head = 0
	rb.size = 0
}

// Len returns the number of buffered items.
func (rb *RingBuffer[T]) Len() int {
	return rb.size
}

// Cap returns the buffer capacity.
func (rb *RingBuffer[T]) Cap() int {
	return len(rb.items)
}
