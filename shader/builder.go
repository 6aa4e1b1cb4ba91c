// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"io/fs"

	"github.com/gogpu/naga"

	"github.com/gogpu/hotreload"
	"github.com/gogpu/hotreload/device"
	"github.com/gogpu/hotreload/internal/fingerprint"
)

// Outcome reports what Refresh did for a slot.
type Outcome int

const (
	// Unchanged means the resolved source matched the slot's last successful
	// build; the device was not touched.
	Unchanged Outcome = iota

	// Rebuilt means a new artifact was compiled and installed for the slot.
	Rebuilt
)

// diagnosticPollBudget bounds how many times Refresh drains the device's
// asynchronous diagnostic channel after a submission. Silence within the
// budget is treated as build success; a stalled device is a configuration
// problem, not something polled forever.
const diagnosticPollBudget = 8

// Artifact is one live compiled shader: the device-side handle plus the
// resolved source it was compiled from.
type Artifact struct {
	Module device.ShaderModuleID
	Source *ResolvedSource
}

// BuildCache keeps exactly one live compiled artifact per logical shader
// slot. Refresh re-resolves a slot's source tree, skips the device entirely
// when the flattened text is unchanged, and otherwise compiles and swaps in
// a new artifact, keeping the previous one bound until the replacement has
// provably succeeded, so a slot is never left without a valid artifact.
//
// BuildCache is confined to the session goroutine. It is not safe for
// concurrent use and does not lock.
type BuildCache struct {
	fsys     fs.FS
	compiler device.Compiler
	diags    device.DiagnosticSource

	slots map[string]*slotState
	// owner attributes asynchronous diagnostics for still-installed modules
	// back to the slot they belong to.
	owner map[device.ShaderModuleID]string
}

// slotState is the per-slot bookkeeping.
type slotState struct {
	artifact *Artifact
	fp       fingerprint.Sum
	lastErr  error
}

// NewBuildCache creates a build cache resolving sources from fsys and
// compiling on compiler. diags may be nil for backends that report all
// compile errors synchronously from CreateShaderModule.
func NewBuildCache(fsys fs.FS, compiler device.Compiler, diags device.DiagnosticSource) *BuildCache {
	return &BuildCache{
		fsys:     fsys,
		compiler: compiler,
		diags:    diags,
		slots:    make(map[string]*slotState),
		owner:    make(map[device.ShaderModuleID]string),
	}
}

// Refresh re-resolves root and brings the slot's compiled artifact up to
// date. It returns Unchanged when the resolved text fingerprints identically
// to the slot's last successful build.
//
// On any failure (unresolvable imports, WGSL compile errors, device
// rejection) the slot's previous artifact stays installed and in use, the
// error is remembered for Err, and the same error is returned. A failure
// never leaves the slot artifact-less.
func (c *BuildCache) Refresh(slotID, root string) (Outcome, error) {
	s := c.slot(slotID)

	resolved, err := Resolve(c.fsys, root)
	if err != nil {
		s.lastErr = err
		hotreload.Logger().Warn("shader: resolve failed", "slot", slotID, "root", root, "err", err)
		return Unchanged, err
	}

	fp := fingerprint.Of(resolved.Text)
	if s.artifact != nil && fp == s.fp {
		hotreload.Logger().Debug("shader: source unchanged", "slot", slotID, "fingerprint", fp)
		return Unchanged, nil
	}

	spirv, err := Compile(resolved.Text)
	if err != nil {
		berr := &BuildError{Slot: slotID, Message: err.Error()}
		s.lastErr = berr
		hotreload.Logger().Warn("shader: compile failed", "slot", slotID, "err", err)
		return Unchanged, berr
	}

	id, err := c.compiler.CreateShaderModule(spirv, slotID)
	if err != nil {
		berr := &BuildError{Slot: slotID, Message: err.Error()}
		s.lastErr = berr
		hotreload.Logger().Warn("shader: device rejected module", "slot", slotID, "err", err)
		return Unchanged, berr
	}

	// Many backends validate asynchronously: the create call returns a
	// handle and errors arrive out-of-band. Drain that channel now, within
	// a bounded window; only silence counts as success.
	if d := c.awaitDiagnostic(id); d != nil {
		c.compiler.DestroyShaderModule(id)
		berr := &BuildError{Slot: slotID, Message: d.Message}
		s.lastErr = berr
		hotreload.Logger().Warn("shader: async build error", "slot", slotID, "err", d.Message)
		return Unchanged, berr
	}

	// Install the replacement before releasing the old handle, so there is
	// no window where the slot has no valid artifact.
	old := s.artifact
	s.artifact = &Artifact{Module: id, Source: resolved}
	s.fp = fp
	s.lastErr = nil
	c.owner[id] = slotID
	if old != nil {
		delete(c.owner, old.Module)
		c.compiler.DestroyShaderModule(old.Module)
	}

	hotreload.Logger().Info("shader: slot rebuilt",
		"slot", slotID, "files", len(resolved.Paths), "fingerprint", fp)
	return Rebuilt, nil
}

// Artifact returns the slot's current live artifact, or nil if the slot has
// never built successfully. Failed refreshes do not remove it.
func (c *BuildCache) Artifact(slotID string) *Artifact {
	if s, ok := c.slots[slotID]; ok {
		return s.artifact
	}
	return nil
}

// Err returns the newest build error recorded for the slot, or nil after a
// successful refresh.
func (c *BuildCache) Err(slotID string) error {
	if s, ok := c.slots[slotID]; ok {
		return s.lastErr
	}
	return nil
}

// Release destroys every live artifact. The cache is unusable afterwards.
func (c *BuildCache) Release() {
	for slotID, s := range c.slots {
		if s.artifact != nil {
			delete(c.owner, s.artifact.Module)
			c.compiler.DestroyShaderModule(s.artifact.Module)
			s.artifact = nil
		}
		delete(c.slots, slotID)
	}
}

func (c *BuildCache) slot(slotID string) *slotState {
	s, ok := c.slots[slotID]
	if !ok {
		s = &slotState{}
		c.slots[slotID] = s
	}
	return s
}

// awaitDiagnostic drains the diagnostic channel looking for an error
// correlated to the submission id. Diagnostics for other, still-installed
// modules are attributed to their owning slot rather than dropped.
func (c *BuildCache) awaitDiagnostic(id device.ShaderModuleID) *device.Diagnostic {
	if c.diags == nil {
		return nil
	}
	for range diagnosticPollBudget {
		d := c.diags.PollDiagnostic()
		if d == nil {
			return nil
		}
		if d.Module == id {
			return d
		}
		if slotID, ok := c.owner[d.Module]; ok {
			c.slot(slotID).lastErr = &BuildError{Slot: slotID, Message: d.Message}
			hotreload.Logger().Warn("shader: late device diagnostic", "slot", slotID, "err", d.Message)
		}
	}
	return nil
}

// Compile compiles flattened WGSL text to SPIR-V words. It validates the
// source as a side effect, which makes it useful on its own for checking a
// shader tree without a device.
func Compile(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, err
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
