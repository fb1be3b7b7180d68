package g3d

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/internal/gpu"
	"github.com/gogpu/g3d/render"
)

// Target is the destination a frame renders into. Concrete targets
// live in the render package: offscreen mono and stereo textures plus
// the surface-backed swapchain target.
type Target = gpu.Target

// FrameStats summarizes one submitted frame's command stream.
type FrameStats = gpu.FrameStats

// Renderer is the rendering context: it owns the pipeline cache, the
// resource arena and the per-frame uniform state for one GPU device.
//
// One frame is recorded at a time: BeginFrame, any number of Draw
// calls, EndFrame. BeginFrame blocks when too many frames are already
// in flight; that is the renderer's only backpressure.
//
// A Renderer is not safe for concurrent use. Drive it from a single
// goroutine, the way a render loop does.
type Renderer struct {
	device hal.Device
	queue  hal.Queue

	pipelines *gpu.PipelineCache
	resources *gpu.ResourceManager
	uniforms  *gpu.UniformState
	frames    *gpu.FrameRenderer

	opts   rendererOptions
	lost   bool
	closed bool
}

// halProvider is the optional host interface exposing the raw hal
// objects behind a gpucontext device.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// New creates a Renderer on the host's device. The handle must expose
// its hal device and queue via HalDevice() any and HalQueue() any;
// gogpu's context does. The renderer never creates a device of its
// own.
func New(handle render.DeviceHandle, opts ...Option) (*Renderer, error) {
	hp, ok := handle.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: device handle does not expose hal objects", ErrInvalidState)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrInvalidState)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrInvalidState)
	}
	return NewWithDevice(device, queue, opts...)
}

// NewWithDevice creates a Renderer directly on a hal device and queue.
// Hosts that drive the hal themselves (and tests) use this entry.
func NewWithDevice(device hal.Device, queue hal.Queue, opts ...Option) (*Renderer, error) {
	o := defaultRendererOptions()
	for _, opt := range opts {
		opt(&o)
	}

	pipelines := gpu.NewPipelineCache(device, o.colorFormat, o.depthFormat)
	resources := gpu.NewResourceManager(device, queue, pipelines)
	uniforms, err := gpu.NewUniformState(device, queue, pipelines, o.framesInFlight)
	if err != nil {
		pipelines.Clear()
		return nil, err
	}
	frames := gpu.NewFrameRenderer(device, queue, pipelines, resources, uniforms)
	frames.SetClearColor(o.clearColor)

	r := &Renderer{
		device:    device,
		queue:     queue,
		pipelines: pipelines,
		resources: resources,
		uniforms:  uniforms,
		frames:    frames,
		opts:      o,
	}
	Logger().Info("renderer created",
		"framesInFlight", uniforms.SlotCount(),
		"colorFormat", o.colorFormat)
	return r, nil
}

// CreateMesh uploads an indexed triangle mesh. Indices address the
// vertex slice and their count must be a multiple of 3.
func (r *Renderer) CreateMesh(label string, vertices []Vertex, indices []uint32) (*Mesh, error) {
	if err := r.usable(); err != nil {
		return nil, err
	}
	g, err := r.resources.CreateMesh(label, flatten(vertices), indices)
	if err != nil {
		return nil, err
	}
	return &Mesh{g: g}, nil
}

// DestroyMesh frees the mesh's GPU buffers. The mesh must not be in
// use by an in-flight frame.
func (r *Renderer) DestroyMesh(m *Mesh) {
	if r.closed || m == nil {
		return
	}
	r.resources.DestroyMesh(m.g)
}

// CreateTexture uploads tightly-packed pixels as a 2D texture. See the
// TextureFormat constants for the accepted formats.
func (r *Renderer) CreateTexture(label string, pixels []byte, width, height uint32, format gputypes.TextureFormat, sampler SamplerOptions) (*Texture, error) {
	if err := r.usable(); err != nil {
		return nil, err
	}
	g, err := r.resources.CreateTexture(label, pixels, width, height, format, sampler)
	if err != nil {
		if errors.Is(err, ErrOutOfDeviceMemory) {
			Logger().Error("texture allocation failed", "label", label, "error", err)
		}
		return nil, err
	}
	return &Texture{g: g}, nil
}

// ReleaseTexture drops the creator's reference. The GPU memory is
// freed once no material references the texture either.
func (r *Renderer) ReleaseTexture(t *Texture) {
	if r.closed || t == nil {
		return
	}
	r.resources.Release(t.g)
}

// CreateMaterial builds a material from the descriptor. The returned
// material holds references to its textures.
func (r *Renderer) CreateMaterial(desc MaterialDescriptor) (*Material, error) {
	if err := r.usable(); err != nil {
		return nil, err
	}
	gd := gpu.MaterialDescriptor{
		Label:          desc.Label,
		BaseColor:      [4]float32{desc.BaseColor.X, desc.BaseColor.Y, desc.BaseColor.Z, desc.BaseColor.W},
		AmbientFactor:  desc.AmbientFactor,
		SpecularFactor: desc.SpecularFactor,
		Shininess:      desc.Shininess,
	}
	if desc.Diffuse != nil {
		gd.Diffuse = desc.Diffuse.g
	}
	if desc.NormalMap != nil {
		gd.NormalMap = desc.NormalMap.g
	}
	g, err := r.resources.CreateMaterial(gd)
	if err != nil {
		return nil, err
	}
	return &Material{g: g}, nil
}

// DestroyMaterial frees the material and drops its texture references.
func (r *Renderer) DestroyMaterial(m *Material) {
	if r.closed || m == nil {
		return
	}
	r.resources.DestroyMaterial(m.g)
}

// BeginFrame starts a frame against a mono target, viewed through the
// camera and lit by the light. Blocks while the in-flight frame limit
// is reached.
func (r *Renderer) BeginFrame(target Target, cam *Camera, light *DirectionalLight) error {
	if err := r.usable(); err != nil {
		return err
	}
	w, h := target.Size()
	u := cameraUniform(cam, aspectOf(w, h))
	return r.checkLost(r.frames.BeginFrame(target, u, lightUniform(light)))
}

// BeginFrameStereo starts a frame against a stereo target. Each draw
// is rendered once per eye; layer 0 is the left eye.
func (r *Renderer) BeginFrameStereo(target Target, cam *StereoCamera, light *DirectionalLight) error {
	if err := r.usable(); err != nil {
		return err
	}
	w, h := target.Size()
	proj := cam.ProjectionMatrix(aspectOf(w, h))
	var u gpu.StereoCameraUniform
	for eye := EyeLeft; eye <= EyeRight; eye++ {
		view := cam.EyeViewMatrix(eye)
		pos := cam.EyePosition(eye)
		u.View[eye] = [16]float32(view)
		u.Proj[eye] = [16]float32(proj)
		u.ViewProj[eye] = [16]float32(proj.Mul(view))
		u.EyePosition[eye] = [4]float32{pos.X, pos.Y, pos.Z, 1}
	}
	return r.checkLost(r.frames.BeginFrameStereo(target, u, lightUniform(light)))
}

// Draw records one object into the current frame.
func (r *Renderer) Draw(mesh *Mesh, material *Material, model Mat4) error {
	if err := r.usable(); err != nil {
		return err
	}
	return r.checkLost(r.frames.Draw(mesh.g, material.g, [16]float32(model)))
}

// EndFrame submits the recorded frame and presents the target.
//
// An ErrDeviceLost return means every mesh, texture, material and
// pipeline this renderer created is gone; the renderer is unusable and
// the host must build a new one on a fresh device. ErrSurfaceLost
// means only the presentation failed: reconfigure the target and keep
// going.
func (r *Renderer) EndFrame() (FrameStats, error) {
	if err := r.usable(); err != nil {
		return FrameStats{}, err
	}
	stats, err := r.frames.EndFrame()
	return stats, r.checkLost(err)
}

// Abort drops the frame being recorded without touching the GPU.
func (r *Renderer) Abort() {
	if r.closed {
		return
	}
	r.frames.Abort()
}

// Lost reports whether the device was lost. All operations fail with
// ErrDeviceLost once this is true.
func (r *Renderer) Lost() bool { return r.lost }

// PipelineStats reports the pipeline cache's entry count and hit/miss
// counters.
func (r *Renderer) PipelineStats() (entries int, hits, misses uint64) {
	return r.pipelines.Len(), r.pipelines.Hits(), r.pipelines.Misses()
}

// Close releases every GPU object the renderer still owns. The caller
// must ensure no frame is in flight.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.frames.Destroy()
	r.uniforms.Destroy()
	r.resources.InvalidateAll()
	r.pipelines.Clear()
	return nil
}

func (r *Renderer) usable() error {
	if r.closed {
		return fmt.Errorf("%w: renderer closed", ErrInvalidState)
	}
	if r.lost {
		return ErrDeviceLost
	}
	return nil
}

// checkLost routes a frame error through the device-loss contract:
// on loss, every cache and resource is invalidated at once so stale
// handles fail fast instead of touching freed GPU objects.
func (r *Renderer) checkLost(err error) error {
	if err == nil || !errors.Is(err, ErrDeviceLost) {
		return err
	}
	if !r.lost {
		r.lost = true
		Logger().Error("device lost, invalidating all GPU state")
		r.resources.InvalidateAll()
		r.pipelines.Clear()
		r.frames.Destroy()
		r.uniforms.Destroy()
	}
	return err
}

// cameraUniform packs the camera's matrices for upload. BeginFrame
// stages exactly these values.
func cameraUniform(cam *Camera, aspect float32) gpu.CameraUniform {
	view := cam.ViewMatrix()
	proj := cam.ProjectionMatrix(aspect)
	return gpu.CameraUniform{
		ViewProj: [16]float32(proj.Mul(view)),
		View:     [16]float32(view),
		Proj:     [16]float32(proj),
		Position: [4]float32{cam.Position.X, cam.Position.Y, cam.Position.Z, 1},
	}
}

func lightUniform(l *DirectionalLight) gpu.LightUniform {
	d := l.Direction.Normalize()
	return gpu.LightUniform{
		Direction: [4]float32{d.X, d.Y, d.Z, 0},
		Color:     [4]float32{l.Color.X, l.Color.Y, l.Color.Z, 1},
		Ambient:   [4]float32{l.Ambient.X, l.Ambient.Y, l.Ambient.Z, 0},
	}
}

func aspectOf(w, h uint32) float32 {
	if h == 0 {
		return 1
	}
	return float32(w) / float32(h)
}
