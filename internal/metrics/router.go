// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
)

// Compile-time check
var _ Router = (*MetricsRouter)(nil)

// ErrRouterClosed is returned when publishing to a closed router.
var ErrRouterClosed = errors.New("metrics router is closed")

// MetricsRouter is a registry that fans metric events out to multiple
// consumers. A consumer failure is logged and does not stop delivery to
// the remaining consumers.
type MetricsRouter struct {
	logger    logr.Logger
	mu        sync.RWMutex
	consumers map[string]Consumer
	closed    bool
}

func NewMetricsRouter(logger logr.Logger) *MetricsRouter {
	return &MetricsRouter{
		logger:    logger.WithName("metrics-router"),
		consumers: make(map[string]Consumer),
	}
}

// Start blocks until ctx is cancelled, then marks the router closed so
// late publishers get ErrRouterClosed instead of delivering to consumers
// that are shutting down.
func (r *MetricsRouter) Start(ctx context.Context) error {
	r.logger.Info("Starting metrics router")

	<-ctx.Done()

	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.logger.Info("Metrics router shutdown")
	return nil
}

// RegisterConsumer adds a consumer to receive events. The consumer must
// already be started by the caller.
func (r *MetricsRouter) RegisterConsumer(consumer Consumer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := consumer.Name()
	if _, exists := r.consumers[name]; exists {
		return fmt.Errorf("consumer %s already registered", name)
	}

	r.consumers[name] = consumer
	r.logger.Info("Consumer registered", "consumer", name)
	return nil
}

// UnregisterConsumer removes a consumer.
func (r *MetricsRouter) UnregisterConsumer(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.consumers[name]; !exists {
		return fmt.Errorf("consumer %s not found", name)
	}

	delete(r.consumers, name)
	r.logger.Info("Consumer unregistered", "consumer", name)
	return nil
}

// Publish emits a single event to all registered consumers.
func (r *MetricsRouter) Publish(event MetricEvent) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrRouterClosed
	}

	var lastErr error
	for name, consumer := range r.consumers {
		if err := consumer.HandleEvent(event); err != nil {
			// Other consumers should still get the event.
			r.logger.V(1).Info("Failed to handle event in consumer",
				"consumer", name, "error", err)
			lastErr = err
		}
	}
	return lastErr
}

// PublishBatch emits multiple events.
func (r *MetricsRouter) PublishBatch(events []MetricEvent) error {
	for _, event := range events {
		if err := r.Publish(event); err != nil {
			return err
		}
	}
	return nil
}

// GetStats returns per-consumer health statistics.
func (r *MetricsRouter) GetStats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	consumerStats := make(map[string]ConsumerHealth, len(r.consumers))
	for name, consumer := range r.consumers {
		consumerStats[name] = consumer.Health()
	}
	return RouterStats{
		ConsumerCount: len(r.consumers),
		Consumers:     consumerStats,
	}
}

// RouterStats contains metrics about the event router.
type RouterStats struct {
	ConsumerCount int
	Consumers     map[string]ConsumerHealth
}
