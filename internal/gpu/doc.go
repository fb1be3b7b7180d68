// Package gpu is the device-facing core of g3d: pipeline variants,
// the resource arena and the frame encoder, all built directly on the
// gogpu/wgpu hal.
//
// The package is organized around four collaborators:
//
//   - PipelineCache compiles and caches the render pipeline for each
//     (material signature, target kind) pair. Eight variants cover the
//     full space; they are compiled on first use and never evicted.
//   - ResourceManager owns meshes, textures and materials: buffer and
//     texture allocation, upload, reference counting for shared
//     textures, and the per-material bind groups.
//   - UniformState owns the per-frame uniform slots. A slot bundles
//     the camera/light buffer, the per-object model buffer and a
//     fence; BeginFrame blocks until a slot's previous GPU work has
//     completed, which bounds the frames in flight.
//   - FrameRenderer records one frame at a time: it sorts staged draws
//     by pipeline, encodes a single render pass against the target's
//     attachments and submits with the slot's fence.
//
// Everything here takes hal.Device and hal.Queue directly; device
// acquisition and surface plumbing belong to the caller.
package gpu
