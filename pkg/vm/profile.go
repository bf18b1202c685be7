// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package vm

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/tensorprof/likwid-collector/pkg/profiling"
)

// ProfileFuncName is the module entry the profiling layer looks up to run
// a profiled execution.
const ProfileFuncName = "profile"

// Workload is a callable the in-process module can execute and profile.
type Workload func() error

// NewProfilingModule builds a Module whose "profile" entry runs one of the
// given workloads under a profiling session.
//
// The profile entry takes (funcName string, collectors
// []profiling.MetricCollector) and returns *profiling.Report, matching the
// signature the host executor exposes on profiler-enabled VM modules. The
// workloads themselves are also exposed as module functions under their
// own names.
func NewProfilingModule(workloads map[string]Workload, devs []profiling.Device, logger logr.Logger) Module {
	funcs := make(map[string]Func, len(workloads)+1)
	for name, w := range workloads {
		workload := w
		funcs[name] = func(args ...any) (any, error) {
			return nil, workload()
		}
	}
	funcs[ProfileFuncName] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("profile expects (func_name, collectors), got %d arguments", len(args))
		}
		funcName, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("profile: func_name must be a string, got %T", args[0])
		}
		collectors, ok := args[1].([]profiling.MetricCollector)
		if !ok {
			return nil, fmt.Errorf("profile: collectors must be []profiling.MetricCollector, got %T", args[1])
		}
		workload, ok := workloads[funcName]
		if !ok {
			return nil, fmt.Errorf("module has no function %q", funcName)
		}
		return profiling.ProfileFunction(funcName, workload, devs, collectors, nil, logger)
	}
	return NewModule(funcs)
}
