//go:build !nogpu

package gpu

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// createTestStack builds the full GPU stack on a noop device.
func createTestStack(t *testing.T, framesInFlight int) (*PipelineCache, *ResourceManager, *UniformState, func()) {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	pipelines := NewPipelineCache(device, gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatDepth32Float)
	resources := NewResourceManager(device, queue, pipelines)
	uniforms, err := NewUniformState(device, queue, pipelines, framesInFlight)
	if err != nil {
		cleanup()
		t.Fatalf("NewUniformState failed: %v", err)
	}
	teardown := func() {
		uniforms.Destroy()
		pipelines.Clear()
		cleanup()
	}
	return pipelines, resources, uniforms, teardown
}

// triangleVertices is a minimal valid vertex buffer: three vertices
// in the packed interleaved layout.
func triangleVertices() []float32 {
	verts := make([]float32, 3*VertexFloats)
	// positions; remaining attributes stay zero
	verts[0], verts[1] = -1, -1
	verts[VertexFloats], verts[VertexFloats+1] = 1, -1
	verts[2*VertexFloats+1] = 1
	for i := 0; i < 3; i++ {
		verts[i*VertexFloats+7] = 1 // normal z
	}
	return verts
}
