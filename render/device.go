// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// The host (e.g. a gogpu.App) implements the provider and passes it
// in, so the renderer shares the host's device and queue instead of
// creating its own. Hosts that expose raw hal objects additionally
// implement HalDevice() any and HalQueue() any; the renderer requires
// that pair.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, keeping this
// package's name for the contract while staying compatible with the
// gpucontext ecosystem.
type DeviceHandle = gpucontext.DeviceProvider

// NullDeviceHandle is a DeviceHandle with no device, for tests that
// exercise handle plumbing without GPU access.
type NullDeviceHandle struct{}

var _ DeviceHandle = NullDeviceHandle{}

// Device returns nil.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns the undefined format.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}
