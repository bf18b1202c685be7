// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package otel exports profiling reports to an OpenTelemetry collector
// over OTLP/gRPC. Reports published on the metrics router are buffered,
// transformed into OTLP instruments, and shipped by a periodic reader.
package otel

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Safety limits to prevent OOM from misconfiguration.
const (
	MaxSafeBatchSize = 10000
	MaxSafeQueueSize = 100000
)

type Config struct {
	// OTLP gRPC configuration
	Endpoint string // host:port of the OTLP gRPC endpoint
	Insecure bool   // disable TLS
	Headers  map[string]string

	// Timeout for export operations
	Timeout time.Duration

	// Resource attributes
	ServiceName    string
	ServiceVersion string

	// InitRetries bounds the connection attempts made when the
	// consumer starts. Zero means a single attempt.
	InitRetries int

	// Advanced options
	BatchTimeout    time.Duration // max time between exports
	ExportBatchSize int           // events processed per batch
	MaxQueueSize    int           // ring buffer capacity
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Endpoint:        "localhost:4317",
		Insecure:        false,
		Headers:         make(map[string]string),
		Timeout:         30 * time.Second,
		ServiceName:     "likwid-collector",
		InitRetries:     3,
		BatchTimeout:    10 * time.Second,
		ExportBatchSize: 500,
		MaxQueueSize:    1000,
	}
}

// ApplyEnvironmentVariables applies the standard OTLP environment
// variables, which take precedence over values already set.
func (c *Config) ApplyEnvironmentVariables() {
	if endpoint := getEnvVar("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		// OTel defines the endpoint as a URL; the exporter wants host:port.
		endpoint = strings.TrimPrefix(endpoint, "https://")
		if rest, ok := strings.CutPrefix(endpoint, "http://"); ok {
			endpoint = rest
			c.Insecure = true
		}
		c.Endpoint = strings.TrimSuffix(endpoint, "/")
	}
	if insecure := os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"); insecure != "" {
		if v, err := strconv.ParseBool(insecure); err == nil {
			c.Insecure = v
		}
	}
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		c.ServiceName = name
	}
	if headers := getEnvVar("OTEL_EXPORTER_OTLP_METRICS_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS"); headers != "" {
		for _, pair := range strings.Split(headers, ",") {
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			c.Headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	if interval := os.Getenv("OTEL_METRIC_EXPORT_INTERVAL"); interval != "" {
		// Value is milliseconds per the OTel SDK specification.
		if ms, err := strconv.Atoi(interval); err == nil && ms > 0 {
			c.BatchTimeout = time.Duration(ms) * time.Millisecond
		}
	}
}

// Validate checks the configuration for values the consumer cannot run
// with.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	if c.ExportBatchSize <= 0 || c.ExportBatchSize > MaxSafeBatchSize {
		return fmt.Errorf("export batch size must be in (0, %d], got %d", MaxSafeBatchSize, c.ExportBatchSize)
	}
	if c.MaxQueueSize <= 0 || c.MaxQueueSize > MaxSafeQueueSize {
		return fmt.Errorf("max queue size must be in (0, %d], got %d", MaxSafeQueueSize, c.MaxQueueSize)
	}
	if c.BatchTimeout <= 0 {
		return fmt.Errorf("batch timeout must be positive, got %v", c.BatchTimeout)
	}
	return nil
}

func getEnvVar(names ...string) string {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}
