// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package registry holds the process-global table of named entry points.
// Packages register their functions during initialization (typically in
// init() functions); hosts and remote callers look them up by name.
package registry

import (
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"github.com/tensorprof/likwid-collector/pkg/vm"
)

var (
	mu             sync.RWMutex
	registry       = make(map[string]vm.Func)
	registryLogger = stdr.New(log.New(os.Stderr, "[registry] ", log.LstdFlags))
)

// Register adds fn to the global registry under name.
//
// It panics if an entry with the same name is already registered; entry
// point names are a process-wide namespace and a duplicate registration is
// a programming error.
func Register(name string, fn vm.Func) {
	if fn == nil {
		panic(fmt.Sprintf("cannot register nil function for %s", name))
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("entry point %s already registered", name))
	}
	registry[name] = fn
	registryLogger.V(1).Info("Registered entry point", "name", name)
}

// Get retrieves the entry point registered under name.
func Get(name string) (vm.Func, error) {
	mu.RLock()
	defer mu.RUnlock()
	fn, exists := registry[name]
	if !exists {
		return nil, fmt.Errorf("entry point %s not found", name)
	}
	return fn, nil
}

// Names returns the sorted names of all registered entry points.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetLogger replaces the registry's logger. Call it before any
// registrations to capture registration diagnostics.
func SetLogger(logger logr.Logger) {
	mu.Lock()
	defer mu.Unlock()
	registryLogger = logger
}
