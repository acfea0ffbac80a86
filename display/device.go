// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package display

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// The host (a windowing shell, an embedded runtime) owns the device and
// lends it to display targets; targets never create devices through
// this interface. DeviceHandle is an alias for gpucontext.DeviceProvider
// so host implementations interoperate with the wider gpucontext
// ecosystem unchanged.
type DeviceHandle = gpucontext.DeviceProvider

// NullDeviceHandle is a DeviceHandle with no device behind it, for
// CPU-only installations.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo returns unknown adapter metadata for the null device.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}

var _ DeviceHandle = NullDeviceHandle{}

// FrameFormat is the texture format composed frames are uploaded in.
// Surfaces are RGBA8 on the CPU side, so GPU targets allocate matching
// textures.
const FrameFormat = gputypes.TextureFormatRGBA8Unorm

// BytesPerPixel returns the per-pixel byte count of a format, or 0 for
// formats frames are never uploaded in.
func BytesPerPixel(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
		return 4
	default:
		return 0
	}
}
