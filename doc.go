// Package g3d is a real-time 3D renderer for textured, lit meshes on a
// WebGPU-style device, in both a single mono viewport and a stereo
// (head-mounted) configuration.
//
// g3d does not create a GPU device. The host application hands one in
// through a [render.DeviceHandle] and g3d builds everything else on top
// of it: vertex/index buffers, textures and samplers, the pipeline
// cache, per-frame uniform buffers, and command submission.
//
// # Architecture
//
// The root package holds the math types (Vec3, Vec4, Mat4), the scene
// description types (Camera, StereoCamera, DirectionalLight, Transform)
// and the [Renderer] facade. The facade is an explicit context object:
// it owns the device handle, the pipeline cache, the resource arena and
// the per-frame uniform pool, and every operation goes through it.
// There is no package-level mutable renderer state.
//
// A frame is recorded through three calls:
//
//	err := r.BeginFrame(target, cam, light)
//	err = r.Draw(mesh, material, transform.Matrix())
//	stats, err := r.EndFrame()
//
// BeginFrame is the only call that may block: it waits for a free
// per-frame uniform slot when every slot is still owned by unfinished
// GPU work. This bounds the number of frames in flight and is the
// renderer's sole backpressure mechanism.
//
// # Targets
//
// Mono targets carry one 2D color attachment and a matching depth
// attachment. Stereo targets carry a 2-layer color array and a 2-layer
// depth array; each draw is fanned out to both layers in a single
// render pass and the shader selects the per-eye view by layer index.
//
// # Errors
//
// Resource creation reports [ErrInvalidGeometry], [ErrUnsupportedFormat]
// and [ErrOutOfDeviceMemory] to the caller and never retries
// internally. [ErrSurfaceLost] is recoverable: reconfigure the target
// and begin a new frame; pipeline and texture caches survive it.
// [ErrDeviceLost] is fatal for the session: every cached GPU object is
// invalid and the host must rebuild through a fresh Renderer.
//
// # Logging
//
// g3d produces no log output by default. Call [SetLogger] with a
// *slog.Logger to enable it.
package g3d
