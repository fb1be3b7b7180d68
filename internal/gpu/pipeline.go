package gpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// MaterialSignature is the closed capability bitset that selects a
// shader variant and vertex layout. It is a pure value: two materials
// with equal signatures share a pipeline.
//
// The valid combinations form a 4-element space: flat, diffuse-only,
// normal-map-only, diffuse+normal. IsTextured is true exactly when the
// mesh must carry UV coordinates, i.e. when either map is present.
type MaterialSignature struct {
	// HasDiffuseTexture selects the diffuse texture+sampler bindings.
	HasDiffuseTexture bool

	// HasNormalMap selects the normal-map texture+sampler bindings and
	// the tangent vertex attribute.
	HasNormalMap bool

	// IsTextured is true when the vertex layout carries UVs. Must
	// equal HasDiffuseTexture || HasNormalMap.
	IsTextured bool
}

// Validate reports whether the signature is one of the four valid
// combinations.
func (s MaterialSignature) Validate() error {
	if s.IsTextured != (s.HasDiffuseTexture || s.HasNormalMap) {
		return fmt.Errorf("%w: inconsistent signature %v", ErrInvalidState, s)
	}
	return nil
}

// Key packs the signature into a small integer for map and array
// indexing. The bit order is stable across the process lifetime.
func (s MaterialSignature) Key() uint8 {
	var k uint8
	if s.HasDiffuseTexture {
		k |= 1
	}
	if s.HasNormalMap {
		k |= 2
	}
	if s.IsTextured {
		k |= 4
	}
	return k
}

// String returns a short human-readable form, e.g. "diffuse+normal".
func (s MaterialSignature) String() string {
	switch {
	case s.HasDiffuseTexture && s.HasNormalMap:
		return "diffuse+normal"
	case s.HasDiffuseTexture:
		return "diffuse"
	case s.HasNormalMap:
		return "normal"
	default:
		return "flat"
	}
}

// SignatureFor builds a validated signature from the two capability
// bits.
func SignatureFor(hasDiffuse, hasNormalMap bool) MaterialSignature {
	return MaterialSignature{
		HasDiffuseTexture: hasDiffuse,
		HasNormalMap:      hasNormalMap,
		IsTextured:        hasDiffuse || hasNormalMap,
	}
}

// TargetKind distinguishes the two render target configurations.
type TargetKind uint8

const (
	// TargetMono renders one view to a single 2D color+depth pair.
	TargetMono TargetKind = iota

	// TargetStereo renders two views to 2-layer color+depth arrays in
	// a single pass; each draw fans out to both layers and the shader
	// selects the per-eye view by layer index.
	TargetStereo
)

// ViewCount returns the number of views the target renders.
func (k TargetKind) ViewCount() uint32 {
	if k == TargetStereo {
		return 2
	}
	return 1
}

// String returns the name of the target kind.
func (k TargetKind) String() string {
	switch k {
	case TargetMono:
		return "mono"
	case TargetStereo:
		return "stereo"
	default:
		return fmt.Sprintf("TargetKind(%d)", uint8(k))
	}
}

// PipelineKey identifies a cached pipeline: material signature plus
// target kind. The key space is bounded (4 signatures x 2 targets), so
// a session holds at most 8 pipelines and the cache never evicts.
type PipelineKey struct {
	Signature MaterialSignature
	Target    TargetKind
}

// MaxPipelines is the size of the bounded pipeline key space.
const MaxPipelines = 8

// Pipeline is a compiled shader variant plus fixed-function state,
// immutable after creation.
type Pipeline struct {
	key      PipelineKey
	pipeline hal.RenderPipeline
	layout   hal.PipelineLayout
	shader   hal.ShaderModule

	// order is the creation index. Draw groups are emitted in this
	// order, which is stable for the process lifetime.
	order int
}

// Key returns the cache key the pipeline was built for.
func (p *Pipeline) Key() PipelineKey { return p.key }

// Order returns the creation index of the pipeline.
func (p *Pipeline) Order() int { return p.order }

// Raw returns the underlying HAL pipeline for pass recording.
func (p *Pipeline) Raw() hal.RenderPipeline { return p.pipeline }

// bindLayouts holds the bind group layouts shared by every pipeline.
// Group assignments are fixed: 0=camera, 1=light, 2=model, 3=material.
type bindLayouts struct {
	camera hal.BindGroupLayout
	light  hal.BindGroupLayout
	model  hal.BindGroupLayout

	// material layouts vary by signature; indexed by signature key.
	material map[uint8]hal.BindGroupLayout
}

// PipelineCache builds and caches pipeline state objects keyed by
// (material signature, target kind). Entries are created lazily on
// first use and live for the session; the bounded key space makes
// eviction unnecessary.
//
// Thread Safety: all methods are safe for concurrent use. Lookups take
// a read lock; creation double-checks under the write lock so a
// pipeline is built at most once per key.
type PipelineCache struct {
	mu      sync.RWMutex
	device  hal.Device
	entries map[PipelineKey]*Pipeline

	colorFormat gputypes.TextureFormat
	depthFormat gputypes.TextureFormat

	layouts     *bindLayouts
	layoutsOnce sync.Once
	layoutsErr  error

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewPipelineCache creates an empty cache bound to a device and the
// target color/depth formats.
func NewPipelineCache(device hal.Device, colorFormat, depthFormat gputypes.TextureFormat) *PipelineCache {
	return &PipelineCache{
		device:      device,
		entries:     make(map[PipelineKey]*Pipeline, MaxPipelines),
		colorFormat: colorFormat,
		depthFormat: depthFormat,
	}
}

// GetOrCreate returns the pipeline for the given key, building and
// caching it on first use. Two calls with the same key return the
// identical *Pipeline.
//
// A shader variant that fails to compile returns ErrShaderCompilation.
// That error is fatal: the variant sources are compiled into the
// package, so a failure means the build is broken, not that the caller
// passed bad input.
func (c *PipelineCache) GetOrCreate(key PipelineKey) (*Pipeline, error) {
	if err := key.Signature.Validate(); err != nil {
		return nil, err
	}
	if key.Target != TargetMono && key.Target != TargetStereo {
		return nil, fmt.Errorf("%w: unknown target kind %d", ErrInvalidState, key.Target)
	}

	// Fast path: read lock.
	c.mu.RLock()
	p, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return p, nil
	}

	// Slow path: write lock with double-check.
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.entries[key]; ok {
		c.hits.Add(1)
		return p, nil
	}

	p, err := c.build(key)
	if err != nil {
		return nil, err
	}
	p.order = len(c.entries)
	c.entries[key] = p
	c.misses.Add(1)

	slogger().Debug("pipeline created",
		"signature", key.Signature.String(),
		"target", key.Target.String(),
		"order", p.order,
		"cached", len(c.entries))
	return p, nil
}

// MaterialLayout returns the bind group layout for material resources
// (group 3) matching the given signature. The resource manager uses it
// to build material bind groups compatible with every pipeline sharing
// the signature.
func (c *PipelineCache) MaterialLayout(sig MaterialSignature) (hal.BindGroupLayout, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	l, err := c.sharedLayouts()
	if err != nil {
		return nil, err
	}
	return l.material[sig.Key()], nil
}

// FrameLayouts returns the bind group layouts for the per-frame groups:
// camera (group 0), light (group 1) and model (group 2).
func (c *PipelineCache) FrameLayouts() (camera, light, model hal.BindGroupLayout, err error) {
	l, err := c.sharedLayouts()
	if err != nil {
		return nil, nil, nil, err
	}
	return l.camera, l.light, l.model, nil
}

// Len returns the number of cached pipelines.
func (c *PipelineCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Hits returns the number of cache hits.
func (c *PipelineCache) Hits() uint64 { return c.hits.Load() }

// Misses returns the number of cache misses (pipelines built).
func (c *PipelineCache) Misses() uint64 { return c.misses.Load() }

// Ordered returns the cached pipelines in creation order. The slice is
// freshly allocated; the caller may keep it for the duration of a
// frame.
func (c *PipelineCache) Ordered() []*Pipeline {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Pipeline, len(c.entries))
	for _, p := range c.entries {
		out[p.order] = p
	}
	return out
}

// Clear destroys every cached pipeline and resets the cache. Called on
// device loss, where all GPU objects are already invalid, and on
// shutdown. Surface loss must NOT clear the cache: pipelines survive a
// surface reconfiguration.
func (c *PipelineCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.entries {
		if p.pipeline != nil {
			c.device.DestroyRenderPipeline(p.pipeline)
		}
		if p.layout != nil {
			c.device.DestroyPipelineLayout(p.layout)
		}
		if p.shader != nil {
			c.device.DestroyShaderModule(p.shader)
		}
	}
	c.entries = make(map[PipelineKey]*Pipeline, MaxPipelines)

	if c.layouts != nil {
		c.device.DestroyBindGroupLayout(c.layouts.camera)
		c.device.DestroyBindGroupLayout(c.layouts.light)
		c.device.DestroyBindGroupLayout(c.layouts.model)
		for _, l := range c.layouts.material {
			c.device.DestroyBindGroupLayout(l)
		}
		c.layouts = nil
		c.layoutsOnce = sync.Once{}
		c.layoutsErr = nil
	}
}

// sharedLayouts creates the bind group layouts on first use.
func (c *PipelineCache) sharedLayouts() (*bindLayouts, error) {
	c.layoutsOnce.Do(func() {
		c.layouts, c.layoutsErr = createBindLayouts(c.device)
	})
	return c.layouts, c.layoutsErr
}

func createBindLayouts(device hal.Device) (*bindLayouts, error) {
	camera, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "g3d_camera_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create camera layout: %w", err)
	}

	light, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "g3d_light_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create light layout: %w", err)
	}

	model, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "g3d_model_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create model layout: %w", err)
	}

	layouts := &bindLayouts{
		camera:   camera,
		light:    light,
		model:    model,
		material: make(map[uint8]hal.BindGroupLayout, 4),
	}
	for _, sig := range AllSignatures() {
		l, err := createMaterialLayout(device, sig)
		if err != nil {
			return nil, fmt.Errorf("create material layout %s: %w", sig, err)
		}
		layouts.material[sig.Key()] = l
	}
	return layouts, nil
}

// createMaterialLayout builds the group 3 layout for a signature.
// Binding slots are fixed: 0=material params, 1=diffuse texture,
// 2=diffuse sampler, 3=normal map, 4=normal sampler. Unused slots are
// absent from the layout, so pipeline variants never bind resources
// their shader does not read.
func createMaterialLayout(device hal.Device, sig MaterialSignature) (hal.BindGroupLayout, error) {
	entries := []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
	}
	if sig.HasDiffuseTexture {
		entries = append(entries,
			gputypes.BindGroupLayoutEntry{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		)
	}
	if sig.HasNormalMap {
		entries = append(entries,
			gputypes.BindGroupLayoutEntry{
				Binding:    3,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    4,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		)
	}
	return device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "g3d_material_layout_" + sig.String(),
		Entries: entries,
	})
}

// AllSignatures returns the four valid material signatures in key
// order. Exposed for exhaustive-case tests and layout creation.
func AllSignatures() []MaterialSignature {
	return []MaterialSignature{
		SignatureFor(false, false),
		SignatureFor(true, false),
		SignatureFor(false, true),
		SignatureFor(true, true),
	}
}

// build compiles the shader variant for the key and assembles the
// pipeline state object: triangle list, back-face culling (CCW front
// faces, the hal default), less-than depth test against the configured
// depth format, opaque replace blending.
func (c *PipelineCache) build(key PipelineKey) (*Pipeline, error) {
	layouts, err := c.sharedLayouts()
	if err != nil {
		return nil, err
	}

	shader, err := compileVariant(c.device, key)
	if err != nil {
		return nil, err
	}

	label := fmt.Sprintf("g3d_%s_%s", key.Signature, key.Target)
	pipeLayout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: label + "_layout",
		BindGroupLayouts: []hal.BindGroupLayout{
			layouts.camera,
			layouts.light,
			layouts.model,
			layouts.material[key.Signature.Key()],
		},
	})
	if err != nil {
		c.device.DestroyShaderModule(shader)
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}

	pipeline, err := c.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: pipeLayout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers:    []gputypes.VertexBufferLayout{vertexBufferLayout(key.Signature)},
		},
		Fragment: &hal.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    c.colorFormat,
					Blend:     nil, // opaque: replace
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            c.depthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      gputypes.CompareFunctionLess,
			StencilFront: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilBack: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeBack,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		c.device.DestroyPipelineLayout(pipeLayout)
		c.device.DestroyShaderModule(shader)
		return nil, fmt.Errorf("create pipeline %s: %w", label, err)
	}

	return &Pipeline{
		key:      key,
		pipeline: pipeline,
		layout:   pipeLayout,
		shader:   shader,
	}, nil
}
