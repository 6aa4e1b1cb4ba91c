//go:build !nogpu

// Copyright 2026 The gogpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package native adapts the gogpu/wgpu HAL layer to the harness's device
// interfaces. It is the compiler the command-line runner uses when a real
// GPU is available; tests and GPU-less environments substitute fakes or
// skip device creation entirely.
package native

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hotreload/device"
)

// Adapter implements device.Compiler over a hal.Device.
//
// Thread Safety: Adapter is safe for concurrent use from multiple goroutines.
// All resource operations are protected by a mutex.
type Adapter struct {
	mu       sync.RWMutex
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	owned    bool

	// ID generation
	nextID atomic.Uint64

	// Resource tracking maps harness IDs to hal resources
	shaderModules map[device.ShaderModuleID]hal.ShaderModule
}

// NewAdapter wraps a device and queue provided by a host application.
// Close will not tear shared resources down.
func NewAdapter(dev hal.Device, queue hal.Queue) *Adapter {
	a := &Adapter{
		device:        dev,
		queue:         queue,
		shaderModules: make(map[device.ShaderModuleID]hal.ShaderModule),
	}

	// Start ID generation at 1 (0 is invalid)
	a.nextID.Store(1)

	return a
}

// Open creates a standalone Vulkan device for the harness to own.
// This is the path the runner takes when no host application provides
// a device of its own.
func Open() (*Adapter, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("native: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("native: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("native: no GPU adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("native: open device: %w", err)
	}

	a := NewAdapter(openDev.Device, openDev.Queue)
	a.instance = instance
	a.owned = true
	return a, nil
}

// FromProvider wraps the shared GPU device exposed by a host application's
// device provider (e.g., a gogpu App). The provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
// Close will not tear the shared resources down.
func FromProvider(provider device.Provider) (*Adapter, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("native: provider does not expose HAL types")
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, fmt.Errorf("native: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("native: provider HalQueue is not hal.Queue")
	}
	return NewAdapter(dev, queue), nil
}

// newID generates a unique resource ID.
func (a *Adapter) newID() uint64 {
	return a.nextID.Add(1) - 1
}

// CreateShaderModule creates a shader module from SPIR-V bytecode.
func (a *Adapter) CreateShaderModule(spirv []uint32, label string) (device.ShaderModuleID, error) {
	if len(spirv) == 0 {
		return device.InvalidShaderModule, fmt.Errorf("native: empty SPIR-V bytecode")
	}

	desc := &hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: spirv,
		},
	}

	module, err := a.device.CreateShaderModule(desc)
	if err != nil {
		return device.InvalidShaderModule, fmt.Errorf("native: create shader module: %w", err)
	}

	id := device.ShaderModuleID(a.newID())

	a.mu.Lock()
	a.shaderModules[id] = module
	a.mu.Unlock()

	return id, nil
}

// DestroyShaderModule releases a shader module. Unknown ids are ignored.
func (a *Adapter) DestroyShaderModule(id device.ShaderModuleID) {
	a.mu.Lock()
	module, ok := a.shaderModules[id]
	if ok {
		delete(a.shaderModules, id)
	}
	a.mu.Unlock()

	if ok {
		a.device.DestroyShaderModule(module)
	}
}

// PollDiagnostic implements device.DiagnosticSource. The HAL layer validates
// shader modules synchronously, so errors surface from CreateShaderModule
// and this source never reports. It exists so the adapter slots into code
// written against backends with out-of-band error reporting.
func (a *Adapter) PollDiagnostic() *device.Diagnostic { return nil }

// Queue returns the underlying queue for hosts that submit their own work.
func (a *Adapter) Queue() hal.Queue { return a.queue }

// Close releases all live shader modules, plus the instance and device
// when Open created them.
func (a *Adapter) Close() {
	a.mu.Lock()
	modules := a.shaderModules
	a.shaderModules = make(map[device.ShaderModuleID]hal.ShaderModule)
	a.mu.Unlock()

	for _, module := range modules {
		a.device.DestroyShaderModule(module)
	}

	if a.owned {
		if a.device != nil {
			a.device.Destroy()
			a.device = nil
		}
		if a.instance != nil {
			a.instance.Destroy()
			a.instance = nil
		}
	}
	a.queue = nil
}
