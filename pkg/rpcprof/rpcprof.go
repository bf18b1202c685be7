// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package rpcprof exposes LIKWID profiling to remote callers: given a VM
// module and a function name it runs a profiling session with a fresh
// collector and returns the serialized report. The entry points are
// published in the global registry under their runtime names so host RPC
// plumbing can dispatch to them without importing this package.
package rpcprof

import (
	"fmt"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"github.com/tensorprof/likwid-collector/pkg/likwid"
	"github.com/tensorprof/likwid-collector/pkg/profiling"
	"github.com/tensorprof/likwid-collector/pkg/registry"
	"github.com/tensorprof/likwid-collector/pkg/vm"
)

// Registered entry point names.
const (
	CollectorEntryName = "runtime.profiling.LikwidMetricCollector"
	ProfileEntryName   = "runtime.rpc_likwid_profile_func"
)

var logger = stdr.New(log.New(os.Stderr, "[rpcprof] ", log.LstdFlags))

// SetLogger replaces the package logger used by the registered entry
// points.
func SetLogger(l logr.Logger) {
	logger = l
}

// RPCLikwidProfileFunc runs a profiling session of funcName on the given
// VM module using a freshly built LIKWID collector and returns the
// report as a JSON string.
//
// An empty or partial report is a valid outcome: the collector never fails
// hard on perfmon errors, so the report is returned regardless of LIKWID
// health.
func RPCLikwidProfileFunc(mod vm.Module, funcName string, collectDerivedMetrics bool) (string, error) {
	logger.Info("Received profiling request", "function", funcName)

	profile, err := mod.GetFunction(vm.ProfileFuncName)
	if err != nil {
		return "", fmt.Errorf("failed to look up profile entry: %w", err)
	}
	collectors := []profiling.MetricCollector{
		likwid.NewMetricCollector(collectDerivedMetrics, logger),
	}

	logger.Info("Beginning profiling", "function", funcName)
	result, err := profile(funcName, collectors)
	if err != nil {
		return "", fmt.Errorf("profiling run failed: %w", err)
	}
	report, ok := result.(*profiling.Report)
	if !ok {
		return "", fmt.Errorf("profile entry returned %T, expected *profiling.Report", result)
	}

	logger.Info("Done, sending serialized report", "function", funcName)
	return report.AsJSON()
}

func init() {
	registry.Register(CollectorEntryName, func(args ...any) (any, error) {
		collectDerivedMetrics := false
		if len(args) > 0 {
			b, ok := args[0].(bool)
			if !ok {
				return nil, fmt.Errorf("%s: collect_derived_metrics must be a bool, got %T", CollectorEntryName, args[0])
			}
			collectDerivedMetrics = b
		}
		return likwid.NewMetricCollector(collectDerivedMetrics, logger), nil
	})

	registry.Register(ProfileEntryName, func(args ...any) (any, error) {
		if len(args) < 2 || len(args) > 3 {
			return nil, fmt.Errorf("%s expects (vm_module, func_name[, collect_derived_metrics]), got %d arguments", ProfileEntryName, len(args))
		}
		mod, ok := args[0].(vm.Module)
		if !ok {
			return nil, fmt.Errorf("%s: vm_module must be a vm.Module, got %T", ProfileEntryName, args[0])
		}
		funcName, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("%s: func_name must be a string, got %T", ProfileEntryName, args[1])
		}
		collectDerivedMetrics := false
		if len(args) == 3 {
			b, ok := args[2].(bool)
			if !ok {
				return nil, fmt.Errorf("%s: collect_derived_metrics must be a bool, got %T", ProfileEntryName, args[2])
			}
			collectDerivedMetrics = b
		}
		return RPCLikwidProfileFunc(mod, funcName, collectDerivedMetrics)
	})
}
