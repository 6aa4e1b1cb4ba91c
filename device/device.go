// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package device defines the narrow GPU device surface the reload harness
// depends on: shader module creation, release, and the asynchronous
// diagnostics the device reports about submitted shaders.
//
// The harness never creates a device itself. A host application hands one in,
// either through the Provider interface shared with the gpucontext ecosystem
// or by implementing Compiler directly (see backend/native for the wgpu-backed
// implementation, or the fake devices in the shader package tests).
package device

import (
	"github.com/gogpu/gpucontext"
)

// ShaderModuleID is an opaque handle to a compiled shader module held by the
// device. The harness only stores and compares these; it never inspects them.
type ShaderModuleID uint64

// InvalidShaderModule is the zero value, representing no module.
const InvalidShaderModule ShaderModuleID = 0

// IsValid reports whether the handle refers to a live module.
func (id ShaderModuleID) IsValid() bool { return id != InvalidShaderModule }

// Compiler is the device capability required to build shader artifacts.
//
// CreateShaderModule submits SPIR-V bytecode and returns a handle. A non-nil
// error covers failures the backend detects synchronously; backends that
// validate asynchronously return a handle immediately and report problems
// through DiagnosticSource instead. Both paths must be handled by callers.
type Compiler interface {
	CreateShaderModule(spirv []uint32, label string) (ShaderModuleID, error)
	DestroyShaderModule(id ShaderModuleID)
}

// Diagnostic is one asynchronous error report from the device, correlated to
// the shader module submission it refers to.
type Diagnostic struct {
	// Module is the handle returned by the CreateShaderModule call this
	// diagnostic belongs to.
	Module ShaderModuleID

	// Message is the backend's error text.
	Message string
}

// DiagnosticSource drains asynchronous device errors.
//
// PollDiagnostic never blocks: it returns the oldest pending diagnostic, or
// nil when none arrived since the last call. The shader build cache polls
// this a bounded number of times after each submission; silence within that
// window means the submission succeeded.
type DiagnosticSource interface {
	PollDiagnostic() *Diagnostic
}

// Provider supplies a shared GPU device from a host application.
//
// It is an alias for gpucontext.DeviceProvider so a gogpu-based host can pass
// its existing context straight to the harness without an adapter type.
type Provider = gpucontext.DeviceProvider
