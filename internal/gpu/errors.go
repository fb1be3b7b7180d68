package gpu

import "errors"

// Resource creation errors. These are returned to the immediate caller
// and never retried internally; retry policy belongs to the caller.
var (
	// ErrInvalidGeometry indicates malformed mesh data: zero vertices,
	// an index referencing past the vertex count, or vertex data whose
	// size is not a whole number of vertices.
	ErrInvalidGeometry = errors.New("gpu: invalid geometry")

	// ErrUnsupportedFormat indicates a texture format outside the
	// supported uncompressed 8-bit channel layouts, or pixel data that
	// does not match the declared dimensions.
	ErrUnsupportedFormat = errors.New("gpu: unsupported texture format")

	// ErrOutOfDeviceMemory indicates the device failed to allocate a
	// resource. It is propagated upward, not masked: device memory
	// pressure is the caller's decision to handle.
	ErrOutOfDeviceMemory = errors.New("gpu: out of device memory")
)

// Session errors.
var (
	// ErrShaderCompilation indicates a built-in shader variant failed
	// to compile. This is fatal: it can only happen when the shader
	// sources shipped with the package are broken.
	ErrShaderCompilation = errors.New("gpu: shader compilation failed")

	// ErrSurfaceLost indicates the output surface was invalidated
	// (resized or destroyed) during target acquisition. Recoverable:
	// reconfigure the target and begin a new frame. Pipeline, texture
	// and mesh caches remain valid.
	ErrSurfaceLost = errors.New("gpu: surface lost")

	// ErrDeviceLost indicates the device is gone. Fatal for the
	// session: every cached pipeline, buffer and texture is invalid
	// and must be rebuilt from scratch.
	ErrDeviceLost = errors.New("gpu: device lost")
)

// Usage errors.
var (
	// ErrInvalidState indicates a frame operation in the wrong state,
	// such as drawing outside a recording frame.
	ErrInvalidState = errors.New("gpu: invalid frame state")

	// ErrTokenFinalized indicates a frame token used after EndFrame.
	ErrTokenFinalized = errors.New("gpu: frame token already finalized")

	// ErrResourceDestroyed indicates a handle whose backing GPU object
	// was released, either by reference counting or device loss.
	ErrResourceDestroyed = errors.New("gpu: resource destroyed")
)
