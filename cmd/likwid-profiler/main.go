// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"github.com/tensorprof/likwid-collector/internal/metrics"
	"github.com/tensorprof/likwid-collector/internal/metrics/consumers/otel"
	"github.com/tensorprof/likwid-collector/pkg/likwid"
	"github.com/tensorprof/likwid-collector/pkg/profiling"
	"github.com/tensorprof/likwid-collector/pkg/registry"
	"github.com/tensorprof/likwid-collector/pkg/rpcprof"
	"github.com/tensorprof/likwid-collector/pkg/vm"
)

var (
	workloadName   string
	matrixSize     int
	iterations     int
	derivedMetrics bool
	outputFile     string
	verbose        bool
	listWorkloads  bool
	enableOTel     bool
	otelEndpoint   string
	nodeName       string
)

func init() {
	flag.StringVar(&workloadName, "workload", "matmul", "Workload to profile (matmul, triad)")
	flag.IntVar(&matrixSize, "size", 256, "Problem size (matrix dimension for matmul, vector length for triad)")
	flag.IntVar(&iterations, "iterations", 1, "Number of profiled calls")
	flag.BoolVar(&derivedMetrics, "derived-metrics", true, "Collect derived metrics in addition to raw counters")
	flag.StringVar(&outputFile, "output", "", "Output file for the report JSON (stdout if empty)")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&listWorkloads, "list-workloads", false, "List built-in workloads and exit")
	flag.BoolVar(&enableOTel, "enable-otel", false, "Export the report over OTLP gRPC")
	flag.StringVar(&otelEndpoint, "otel-endpoint", "", "OTLP gRPC endpoint (overrides OTEL_EXPORTER_OTLP_ENDPOINT)")
	flag.StringVar(&nodeName, "node-name", "", "Node name attached to exported metrics (defaults to hostname)")
}

func main() {
	flag.Parse()

	var logger logr.Logger
	if verbose {
		zapLog, _ := zap.NewDevelopment()
		logger = zapr.NewLogger(zapLog)
	} else {
		logger = logr.Discard()
	}
	registry.SetLogger(logger)
	rpcprof.SetLogger(logger)

	workloads := builtinWorkloads()
	if listWorkloads {
		fmt.Println("Built-in workloads:")
		for name := range workloads {
			fmt.Printf("  %s\n", name)
		}
		return
	}
	if _, ok := workloads[workloadName]; !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown workload %q, run with --list-workloads\n", workloadName)
		os.Exit(1)
	}
	if iterations < 1 {
		iterations = 1
	}

	env := likwid.DetectEnvironment()
	if !env.UnderWrapper {
		fmt.Fprintf(os.Stderr, "Warning: not running under likwid-perfctr; counters will read as empty\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintf(os.Stderr, "\nReceived interrupt, shutting down...\n")
		cancel()
	}()

	var (
		otelConsumer *otel.Consumer
		router       *metrics.MetricsRouter
	)
	if enableOTel {
		config := otel.DefaultConfig()
		config.ApplyEnvironmentVariables()
		if otelEndpoint != "" {
			config.Endpoint = otelEndpoint
		}
		var err error
		otelConsumer, err = otel.NewConsumer(config, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating OTel consumer: %v\n", err)
			os.Exit(1)
		}
		if err := otelConsumer.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting OTel consumer: %v\n", err)
			os.Exit(1)
		}

		router = metrics.NewMetricsRouter(logger)
		if err := router.RegisterConsumer(otelConsumer); err != nil {
			fmt.Fprintf(os.Stderr, "Error registering OTel consumer: %v\n", err)
			os.Exit(1)
		}
		go func() {
			if err := router.Start(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error running metrics router: %v\n", err)
			}
		}()
	}

	mod := vm.NewProfilingModule(workloads, nil, logger)
	report, err := runSession(mod)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error profiling %q: %v\n", workloadName, err)
		os.Exit(1)
	}

	out, err := report.AsJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error serializing report: %v\n", err)
		os.Exit(1)
	}
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(out+"\n"), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Println(out)
	}

	if router != nil {
		if host := hostName(); host != "" && nodeName == "" {
			nodeName = host
		}
		event := metrics.MetricEvent{
			Timestamp:  time.Now(),
			Source:     "likwid-profiler",
			NodeName:   nodeName,
			SessionID:  report.SessionID,
			MetricType: metrics.MetricTypeProfileReport,
			EventType:  metrics.EventTypeSnapshot,
			Data:       report,
		}
		if err := router.Publish(event); err != nil {
			fmt.Fprintf(os.Stderr, "Error publishing report: %v\n", err)
		}
		cancel()
		otelConsumer.Wait()
	}
}

// runSession builds the collector through its registry entry and drives
// the module's profile entry, the same dispatch path a remote host uses.
func runSession(mod vm.Module) (*profiling.Report, error) {
	makeCollector, err := registry.Get(rpcprof.CollectorEntryName)
	if err != nil {
		return nil, err
	}
	profile, err := mod.GetFunction(vm.ProfileFuncName)
	if err != nil {
		return nil, err
	}

	var report *profiling.Report
	for i := 0; i < iterations; i++ {
		c, err := makeCollector(derivedMetrics)
		if err != nil {
			return nil, err
		}
		collector, ok := c.(profiling.MetricCollector)
		if !ok {
			return nil, fmt.Errorf("collector entry returned %T", c)
		}
		result, err := profile(workloadName, []profiling.MetricCollector{collector})
		if err != nil {
			return nil, err
		}
		report, ok = result.(*profiling.Report)
		if !ok {
			return nil, fmt.Errorf("profile entry returned %T, expected *profiling.Report", result)
		}
	}
	return report, nil
}

func builtinWorkloads() map[string]vm.Workload {
	return map[string]vm.Workload{
		"matmul": func() error {
			n := matrixSize
			a := make([]float64, n*n)
			b := make([]float64, n*n)
			c := make([]float64, n*n)
			for i := range a {
				a[i] = float64(i % 7)
				b[i] = float64(i % 5)
			}
			for i := 0; i < n; i++ {
				for k := 0; k < n; k++ {
					aik := a[i*n+k]
					for j := 0; j < n; j++ {
						c[i*n+j] += aik * b[k*n+j]
					}
				}
			}
			sink = c[0]
			return nil
		},
		"triad": func() error {
			n := matrixSize * matrixSize
			a := make([]float64, n)
			b := make([]float64, n)
			c := make([]float64, n)
			for i := range b {
				b[i] = float64(i)
				c[i] = float64(n - i)
			}
			for i := 0; i < n; i++ {
				a[i] = b[i] + 3.0*c[i]
			}
			sink = a[n-1]
			return nil
		},
	}
}

// sink keeps workload results observable so the loops are not optimized
// away.
var sink float64

func hostName() string {
	host, err := os.Hostname()
	if err != nil {
		return ""
	}
	return host
}
