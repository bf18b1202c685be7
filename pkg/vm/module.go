// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package vm models the host virtual machine surface the profiling layer
// consumes: named functions grouped into modules. The real executor lives
// in the host runtime; this package supplies the contract plus an
// in-process implementation used by the CLI and tests.
package vm

import (
	"fmt"
)

// Func is a dynamically typed module function, the unit of dispatch in the
// host runtime.
type Func func(args ...any) (any, error)

// Module exposes named functions for lookup.
type Module interface {
	// GetFunction returns the function registered under name, or an
	// error when the module has no such entry.
	GetFunction(name string) (Func, error)
}

type mapModule struct {
	funcs map[string]Func
}

// NewModule builds an in-process Module from a set of named functions.
func NewModule(funcs map[string]Func) Module {
	m := make(map[string]Func, len(funcs))
	for name, fn := range funcs {
		m[name] = fn
	}
	return &mapModule{funcs: m}
}

func (m *mapModule) GetFunction(name string) (Func, error) {
	fn, ok := m.funcs[name]
	if !ok {
		return nil, fmt.Errorf("module has no function %q", name)
	}
	return fn, nil
}
