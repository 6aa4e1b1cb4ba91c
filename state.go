// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hotreload

import (
	"github.com/gogpu/hotreload/device"
)

// StateSchemaVersion identifies the layout of State.
//
// The reload contract requires that the state shape stays fixed for the
// lifetime of one running session: every module revision loaded into that
// session reads and writes the same layout. Bump this constant when State
// gains or loses fields; it is exported to module code so a module can
// assert the layout it was written against.
const StateSchemaVersion = 1

// State is the application state that survives module reloads.
//
// It is owned by the session loop, never by the reloadable module: the module
// only receives a pointer into it each frame. The module must not retain the
// pointer beyond the call, and it never allocates or frees the State itself.
// That asymmetry is what makes a reload safe: the code operating on the
// value is swapped while the value stays put.
type State struct {
	// Frame counts invoked frames since the session started.
	Frame uint64

	// Time is the elapsed session time in seconds. Advanced by the session
	// loop from measured frame deltas, not wall clock reads, so pausing the
	// process does not jump the animation.
	Time float64

	// Width and Height are the current viewport size in pixels.
	Width  int
	Height int

	// Values is scratch storage for the reloadable module: named numbers
	// that persist across reloads (camera angles, simulation parameters,
	// toggles). Plain data only, so any module revision can interpret it.
	Values map[string]float64
}

// NewState creates a State for the given viewport size.
func NewState(width, height int) *State {
	return &State{
		Width:  width,
		Height: height,
		Values: make(map[string]float64),
	}
}

// Value returns a named scratch value, or fallback when it was never set.
func (s *State) Value(name string, fallback float64) float64 {
	if v, ok := s.Values[name]; ok {
		return v
	}
	return fallback
}

// RenderContext is what a module revision may touch while rendering:
// the compiled shader artifact per slot and the device to record against.
// The session rebuilds its content before each Render call; the module must
// not retain it across frames.
type RenderContext struct {
	// Shaders maps slot id to the slot's current compiled shader module.
	// After a failed rebuild this still holds the last good artifact.
	Shaders map[string]device.ShaderModuleID

	// Revision is the currently bound module revision, for diagnostics.
	Revision int
}

// Shader returns the compiled artifact for a slot, or InvalidShaderModule
// when the slot is unknown.
func (rc *RenderContext) Shader(slot string) device.ShaderModuleID {
	return rc.Shaders[slot]
}
