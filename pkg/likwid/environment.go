// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package likwid

import "os"

// Environment describes the likwid-perfctr wrapper context of the current
// process. The wrapper programs the hardware counters, selects the active
// event group, and passes its marker settings to the child through
// LIKWID_* environment variables; without them the marker API has nothing
// to talk to.
type Environment struct {
	// UnderWrapper is true when the process was launched by
	// likwid-perfctr with marker support enabled.
	UnderWrapper bool

	// MarkerFile is the path the marker API writes region results to
	// (LIKWID_FILEPATH).
	MarkerFile string
	// Mode is the counter access mode (LIKWID_MODE).
	Mode string
	// Events is the event group selection passed to the wrapper
	// (LIKWID_EVENTS).
	Events string
	// Threads is the wrapper's pinned thread list (LIKWID_THREADS).
	Threads string

	// Kernel is the running kernel release, for diagnostics. Empty on
	// platforms without uname.
	Kernel string
}

// DetectEnvironment inspects the process environment for the wrapper
// settings likwid-perfctr exports to its child.
func DetectEnvironment() Environment {
	env := Environment{
		MarkerFile: os.Getenv("LIKWID_FILEPATH"),
		Mode:       os.Getenv("LIKWID_MODE"),
		Events:     os.Getenv("LIKWID_EVENTS"),
		Threads:    os.Getenv("LIKWID_THREADS"),
		Kernel:     kernelVersion(),
	}
	env.UnderWrapper = env.MarkerFile != "" && env.Events != ""
	return env
}
