// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package otel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	metricSDK "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/tensorprof/likwid-collector/internal/metrics"
)

// Compile-time check
var _ metrics.Consumer = (*Consumer)(nil)

const (
	consumerName = "opentelemetry"

	// errorThresholdForHealthCheck controls how often a high error rate
	// is reported.
	errorThresholdForHealthCheck = 10
)

// Consumer ships profiling reports to an OTLP collector. Events are
// buffered in a drop-oldest ring buffer so HandleEvent never blocks the
// publisher; a background goroutine drains the buffer and records the
// entries on OpenTelemetry instruments, which a periodic reader exports.
type Consumer struct {
	config Config
	logger logr.Logger

	// OpenTelemetry components, initialized in Start
	provider    *metricSDK.MeterProvider
	meter       metric.Meter
	transformer *Transformer

	buffer *MetricsBuffer

	wg        sync.WaitGroup
	healthy   atomic.Bool
	lastError atomic.Pointer[error]

	eventsProcessed atomic.Uint64
	errorsCount     atomic.Uint64
	startTime       time.Time
}

// NewConsumer creates an OpenTelemetry metrics consumer. The OTLP
// connection is not established until Start.
func NewConsumer(config Config, logger logr.Logger) (*Consumer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	buffer, err := NewMetricsBuffer(config.MaxQueueSize)
	if err != nil {
		return nil, err
	}
	consumer := &Consumer{
		config:    config,
		logger:    logger.WithName("otel-consumer"),
		startTime: time.Now(),
		buffer:    buffer,
	}
	consumer.healthy.Store(true)
	return consumer, nil
}

func (c *Consumer) initOpenTelemetry(ctx context.Context) error {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(c.config.Endpoint),
		otlpmetricgrpc.WithTimeout(c.config.Timeout),
	}
	if c.config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	if len(c.config.Headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(c.config.Headers))
	}

	// Exporter construction resolves the endpoint; retry transient
	// failures before giving up on the session.
	exporter, err := backoff.Retry(ctx, func() (metricSDK.Exporter, error) {
		return otlpmetricgrpc.New(ctx, opts...)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(c.config.InitRetries+1)),
	)
	if err != nil {
		return err
	}

	res := resource.NewWithAttributes(
		"",
		semconv.ServiceName(c.config.ServiceName),
		semconv.ServiceVersion(c.config.ServiceVersion),
		attribute.String("collector", "likwid"),
	)
	c.provider = metricSDK.NewMeterProvider(
		metricSDK.WithReader(metricSDK.NewPeriodicReader(
			exporter,
			metricSDK.WithInterval(c.config.BatchTimeout),
		)),
		metricSDK.WithResource(res),
	)
	c.meter = c.provider.Meter("github.com/tensorprof/likwid-collector")

	transformer, err := NewTransformer(c.meter, c.logger)
	if err != nil {
		return err
	}
	c.transformer = transformer
	return nil
}

// Name returns the consumer name identifier.
func (c *Consumer) Name() string {
	return consumerName
}

// HandleEvent adds an event to the internal buffer. Non-blocking; when
// the buffer is full the oldest event is dropped.
func (c *Consumer) HandleEvent(event metrics.MetricEvent) error {
	c.buffer.Push(event)
	return nil
}

// Start connects to the OTLP endpoint and launches the processing
// goroutine. It returns promptly; processing stops when ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Starting OpenTelemetry consumer",
		"endpoint", c.config.Endpoint,
		"service_name", c.config.ServiceName)

	if err := c.initOpenTelemetry(ctx); err != nil {
		return err
	}

	c.wg.Add(1)
	go c.processEvents(ctx)
	return nil
}

func (c *Consumer) shutdown(ctx context.Context) {
	if c.provider != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := c.provider.Shutdown(shutdownCtx); err != nil {
			c.logger.Error(err, "Error shutting down meter provider")
		}
	}
	c.logger.Info("OpenTelemetry consumer stopped",
		"events_processed", c.eventsProcessed.Load(),
		"errors", c.errorsCount.Load(),
		"uptime", time.Since(c.startTime))
}

// Wait blocks until the processing goroutine has exited. Only meaningful
// after the Start context has been cancelled.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

// Health returns the consumer's health state and processing counters.
func (c *Consumer) Health() metrics.ConsumerHealth {
	var lastErr error
	if errPtr := c.lastError.Load(); errPtr != nil {
		lastErr = *errPtr
	}
	return metrics.ConsumerHealth{
		Healthy:     c.healthy.Load(),
		LastError:   lastErr,
		EventsCount: c.eventsProcessed.Load(),
		ErrorsCount: c.errorsCount.Load(),
	}
}

func (c *Consumer) processEvents(ctx context.Context) {
	defer c.wg.Done()
	defer c.shutdown(ctx)

	ticker := time.NewTicker(c.config.BatchTimeout)
	defer ticker.Stop()

	notify := c.buffer.NotifyChannel()
	for {
		select {
		case <-notify:
			c.drainAndProcess(ctx)
		case <-ticker.C:
			c.drainAndProcess(ctx)
		case <-ctx.Done():
			// Flush whatever is still buffered.
			c.drainAndProcess(context.WithoutCancel(ctx))
			return
		}
	}
}

func (c *Consumer) drainAndProcess(ctx context.Context) {
	events := c.buffer.Drain()
	for start := 0; start < len(events); start += c.config.ExportBatchSize {
		end := start + c.config.ExportBatchSize
		if end > len(events) {
			end = len(events)
		}
		c.processBatch(ctx, events[start:end])
	}
}

func (c *Consumer) processBatch(ctx context.Context, batch []metrics.MetricEvent) {
	for _, event := range batch {
		if err := c.transformer.TransformAndRecord(ctx, event); err != nil {
			c.logger.Error(err, "Failed to process metrics event",
				"metric_type", event.MetricType,
				"source", event.Source)
			c.lastError.Store(&err)
			if c.errorsCount.Add(1)%errorThresholdForHealthCheck == 0 {
				c.logger.Error(nil, "High error rate in OpenTelemetry consumer",
					"errors", c.errorsCount.Load(),
					"events", c.eventsProcessed.Load())
			}
			continue
		}
		c.eventsProcessed.Add(1)
	}
}
