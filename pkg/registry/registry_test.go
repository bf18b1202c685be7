// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorprof/likwid-collector/pkg/registry"
	"github.com/tensorprof/likwid-collector/pkg/vm"
)

func TestRegisterAndGet(t *testing.T) {
	name := "test.registry.echo"
	registry.Register(name, func(args ...any) (any, error) {
		return args[0], nil
	})

	fn, err := registry.Get(name)
	require.NoError(t, err)
	result, err := fn("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", result)

	assert.Contains(t, registry.Names(), name)
}

func TestGetUnknownEntry(t *testing.T) {
	_, err := registry.Get("test.registry.does_not_exist")
	assert.Error(t, err)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	name := "test.registry.duplicate"
	registry.Register(name, func(args ...any) (any, error) { return nil, nil })
	assert.Panics(t, func() {
		registry.Register(name, func(args ...any) (any, error) { return nil, nil })
	})
}

func TestNilRegistrationPanics(t *testing.T) {
	assert.Panics(t, func() {
		registry.Register("test.registry.nil", vm.Func(nil))
	})
}
