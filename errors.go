package g3d

import "github.com/gogpu/g3d/internal/gpu"

// The renderer's error taxonomy. Classify with errors.Is.
//
// ErrSurfaceLost and ErrDeviceLost split recoverable from fatal:
// a lost surface drops one frame and keeps every cached resource;
// a lost device invalidates everything and requires a new Renderer.
var (
	ErrInvalidGeometry   = gpu.ErrInvalidGeometry
	ErrUnsupportedFormat = gpu.ErrUnsupportedFormat
	ErrOutOfDeviceMemory = gpu.ErrOutOfDeviceMemory
	ErrShaderCompilation = gpu.ErrShaderCompilation
	ErrSurfaceLost       = gpu.ErrSurfaceLost
	ErrDeviceLost        = gpu.ErrDeviceLost
	ErrInvalidState      = gpu.ErrInvalidState
	ErrResourceDestroyed = gpu.ErrResourceDestroyed
)
