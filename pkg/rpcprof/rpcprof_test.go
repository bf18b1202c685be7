// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package rpcprof_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorprof/likwid-collector/pkg/likwid"
	"github.com/tensorprof/likwid-collector/pkg/profiling"
	"github.com/tensorprof/likwid-collector/pkg/registry"
	"github.com/tensorprof/likwid-collector/pkg/rpcprof"
	"github.com/tensorprof/likwid-collector/pkg/vm"
)

// profileModule is a mocked VM module whose profile entry hands back a
// fixed report and records what it was called with.
type profileModule struct {
	report     *profiling.Report
	err        error
	funcName   string
	collectors []profiling.MetricCollector
}

func (m *profileModule) GetFunction(name string) (vm.Func, error) {
	if name != vm.ProfileFuncName {
		return nil, fmt.Errorf("module has no function %q", name)
	}
	return func(args ...any) (any, error) {
		m.funcName = args[0].(string)
		m.collectors = args[1].([]profiling.MetricCollector)
		if m.err != nil {
			return nil, m.err
		}
		return m.report, nil
	}, nil
}

func fixedReport() *profiling.Report {
	return &profiling.Report{
		SessionID: "00000000-0000-0000-0000-000000000000",
		Calls: []profiling.CallRecord{{
			Name:   "f",
			Device: "cpu(0)",
			Metrics: map[string]profiling.MetricValue{
				"L2_MISSES [Thread 0]": profiling.Count{Value: 50},
				"IPC [Thread 0]":       profiling.Ratio{Value: 0.5},
			},
		}},
	}
}

func TestRPCProfileFuncReturnsReportJSON(t *testing.T) {
	mod := &profileModule{report: fixedReport()}

	got, err := rpcprof.RPCLikwidProfileFunc(mod, "f", false)
	require.NoError(t, err)

	want, err := mod.report.AsJSON()
	require.NoError(t, err)
	assert.Equal(t, want, got, "RPC entry must return the report's exact serialization")

	// The per-label values survive the round trip.
	var decoded profilingReportJSON
	require.NoError(t, json.Unmarshal([]byte(got), &decoded))
	require.Len(t, decoded.Calls, 1)
	assert.Equal(t, map[string]any{"count": float64(50)}, decoded.Calls[0].Metrics["L2_MISSES [Thread 0]"])
	assert.Equal(t, map[string]any{"ratio": 0.5}, decoded.Calls[0].Metrics["IPC [Thread 0]"])
}

type profilingReportJSON struct {
	SessionID string `json:"session_id"`
	Calls     []struct {
		Name    string                    `json:"name"`
		Device  string                    `json:"device"`
		Metrics map[string]map[string]any `json:"metrics"`
	} `json:"calls"`
}

func TestRPCProfileFuncBuildsOneCollector(t *testing.T) {
	mod := &profileModule{report: fixedReport()}

	_, err := rpcprof.RPCLikwidProfileFunc(mod, "f", true)
	require.NoError(t, err)

	assert.Equal(t, "f", mod.funcName)
	require.Len(t, mod.collectors, 1)
	_, ok := mod.collectors[0].(*likwid.MetricCollector)
	assert.True(t, ok)
}

func TestRPCProfileFuncErrors(t *testing.T) {
	t.Run("missing profile entry", func(t *testing.T) {
		mod := vm.NewModule(nil)
		_, err := rpcprof.RPCLikwidProfileFunc(mod, "f", false)
		assert.Error(t, err)
	})

	t.Run("profile run fails", func(t *testing.T) {
		mod := &profileModule{err: errors.New("vm exploded")}
		_, err := rpcprof.RPCLikwidProfileFunc(mod, "f", false)
		assert.Error(t, err)
	})
}

func TestEntryPointsRegistered(t *testing.T) {
	names := registry.Names()
	assert.Contains(t, names, rpcprof.CollectorEntryName)
	assert.Contains(t, names, rpcprof.ProfileEntryName)
}

func TestCollectorEntryPoint(t *testing.T) {
	fn, err := registry.Get(rpcprof.CollectorEntryName)
	require.NoError(t, err)

	result, err := fn(true)
	require.NoError(t, err)
	_, ok := result.(*likwid.MetricCollector)
	assert.True(t, ok)

	_, err = fn("not a bool")
	assert.Error(t, err)
}

func TestProfileEntryPointDispatch(t *testing.T) {
	fn, err := registry.Get(rpcprof.ProfileEntryName)
	require.NoError(t, err)

	mod := &profileModule{report: fixedReport()}
	result, err := fn(mod, "f", true)
	require.NoError(t, err)

	want, err := mod.report.AsJSON()
	require.NoError(t, err)
	assert.Equal(t, want, result)

	// The derived-metrics flag is optional.
	mod = &profileModule{report: fixedReport()}
	_, err = fn(mod, "f")
	require.NoError(t, err)

	_, err = fn(mod)
	assert.Error(t, err)
	_, err = fn("not a module", "f")
	assert.Error(t, err)
}
