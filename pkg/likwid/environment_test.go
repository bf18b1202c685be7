// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package likwid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tensorprof/likwid-collector/pkg/likwid"
)

func TestDetectEnvironmentUnderWrapper(t *testing.T) {
	t.Setenv("LIKWID_FILEPATH", "/tmp/likwid_12345.txt")
	t.Setenv("LIKWID_MODE", "1")
	t.Setenv("LIKWID_EVENTS", "L2")
	t.Setenv("LIKWID_THREADS", "0,1,2,3")

	env := likwid.DetectEnvironment()
	assert.True(t, env.UnderWrapper)
	assert.Equal(t, "/tmp/likwid_12345.txt", env.MarkerFile)
	assert.Equal(t, "L2", env.Events)
	assert.Equal(t, "0,1,2,3", env.Threads)
}

func TestDetectEnvironmentBare(t *testing.T) {
	t.Setenv("LIKWID_FILEPATH", "")
	t.Setenv("LIKWID_EVENTS", "")

	env := likwid.DetectEnvironment()
	assert.False(t, env.UnderWrapper)
}
