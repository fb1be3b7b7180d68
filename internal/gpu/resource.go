package gpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ResourceManager owns every GPU-side asset: vertex/index buffers,
// textures, samplers and material bind groups. Creation is synchronous
// from the caller's perspective; there is no internal queuing, so
// callers must not create resources while a frame is recording.
//
// Handles are arena-scoped: an epoch counter is bumped on device loss
// and every handle created under an older epoch reports
// ErrDeviceLost on use. Meshes and textures are immutable after
// upload and may be read by any number of in-flight frames.
type ResourceManager struct {
	mu        sync.Mutex
	device    hal.Device
	queue     hal.Queue
	pipelines *PipelineCache

	// samplers are deduplicated by options: materials sharing filter
	// and wrap modes share one GPU sampler.
	samplers map[SamplerOptions]hal.Sampler

	meshes    map[*Mesh]struct{}
	textures  map[*Texture]struct{}
	materials map[*Material]struct{}

	epoch atomic.Uint64
}

// NewResourceManager creates a manager bound to a device and queue.
// The pipeline cache supplies material bind group layouts so material
// bind groups stay compatible with every pipeline variant.
func NewResourceManager(device hal.Device, queue hal.Queue, pipelines *PipelineCache) *ResourceManager {
	return &ResourceManager{
		device:    device,
		queue:     queue,
		pipelines: pipelines,
		samplers:  make(map[SamplerOptions]hal.Sampler),
		meshes:    make(map[*Mesh]struct{}),
		textures:  make(map[*Texture]struct{}),
		materials: make(map[*Material]struct{}),
	}
}

// Epoch returns the current arena epoch.
func (m *ResourceManager) Epoch() uint64 { return m.epoch.Load() }

// Mesh is an uploaded vertex/index buffer pair. Immutable after
// upload; owned exclusively by the ResourceManager.
type Mesh struct {
	label       string
	vertexBuf   hal.Buffer
	indexBuf    hal.Buffer
	vertexCount uint32
	indexCount  uint32

	epoch     uint64
	destroyed atomic.Bool
}

// VertexCount returns the number of vertices uploaded.
func (me *Mesh) VertexCount() uint32 { return me.vertexCount }

// IndexCount returns the number of indices uploaded.
func (me *Mesh) IndexCount() uint32 { return me.indexCount }

// Label returns the debug label.
func (me *Mesh) Label() string { return me.label }

// CreateMesh validates and uploads interleaved vertex data (see the
// layout in vertex.go: VertexFloats float32 values per vertex) and a
// uint32 index sequence.
//
// Returns ErrInvalidGeometry when the vertex count is zero, the data
// is not a whole number of vertices, the index list is empty or not a
// whole number of triangles, or an index references past the vertex
// count. Returns ErrOutOfDeviceMemory when the device cannot allocate
// the buffers; the error is propagated, never retried.
func (m *ResourceManager) CreateMesh(label string, vertices []float32, indices []uint32) (*Mesh, error) {
	if len(vertices) == 0 {
		return nil, fmt.Errorf("%w: no vertices", ErrInvalidGeometry)
	}
	if len(vertices)%VertexFloats != 0 {
		return nil, fmt.Errorf("%w: vertex data length %d is not a multiple of %d floats",
			ErrInvalidGeometry, len(vertices), VertexFloats)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: no indices", ErrInvalidGeometry)
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: index count %d is not a whole number of triangles",
			ErrInvalidGeometry, len(indices))
	}
	vertexCount := uint32(len(vertices) / VertexFloats)
	for i, idx := range indices {
		if idx >= vertexCount {
			return nil, fmt.Errorf("%w: index %d at position %d exceeds vertex count %d",
				ErrInvalidGeometry, idx, i, vertexCount)
		}
	}

	vertexBytes := make([]byte, len(vertices)*4)
	packFloats(vertexBytes, vertices)
	indexBytes := make([]byte, len(indices)*4)
	packUint32(indexBytes, indices)

	vertexBuf, err := m.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_vertices",
		Size:  uint64(len(vertexBytes)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: vertex buffer (%d bytes): %v", ErrOutOfDeviceMemory, len(vertexBytes), err)
	}
	indexBuf, err := m.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_indices",
		Size:  uint64(len(indexBytes)),
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		m.device.DestroyBuffer(vertexBuf)
		return nil, fmt.Errorf("%w: index buffer (%d bytes): %v", ErrOutOfDeviceMemory, len(indexBytes), err)
	}

	m.queue.WriteBuffer(vertexBuf, 0, vertexBytes)
	m.queue.WriteBuffer(indexBuf, 0, indexBytes)

	mesh := &Mesh{
		label:       label,
		vertexBuf:   vertexBuf,
		indexBuf:    indexBuf,
		vertexCount: vertexCount,
		indexCount:  uint32(len(indices)),
		epoch:       m.epoch.Load(),
	}

	m.mu.Lock()
	m.meshes[mesh] = struct{}{}
	m.mu.Unlock()

	slogger().Debug("mesh created", "label", label,
		"vertices", vertexCount, "indices", mesh.indexCount)
	return mesh, nil
}

// UpdateBuffer overwrites a region of a mesh's vertex buffer. The
// caller must not update a mesh referenced by a frame still in flight;
// the per-frame uniform slot discipline, not blocking here, keeps
// updates and GPU reads apart.
func (m *ResourceManager) UpdateBuffer(mesh *Mesh, offset uint64, data []byte) error {
	if err := m.checkMesh(mesh); err != nil {
		return err
	}
	size := uint64(mesh.vertexCount) * VertexStride
	if offset+uint64(len(data)) > size {
		return fmt.Errorf("%w: write of %d bytes at offset %d exceeds buffer size %d",
			ErrInvalidGeometry, len(data), offset, size)
	}
	m.queue.WriteBuffer(mesh.vertexBuf, offset, data)
	return nil
}

// DestroyMesh releases the mesh's GPU buffers.
func (m *ResourceManager) DestroyMesh(mesh *Mesh) {
	if mesh == nil || !mesh.destroyed.CompareAndSwap(false, true) {
		return
	}
	if mesh.epoch == m.epoch.Load() {
		m.device.DestroyBuffer(mesh.vertexBuf)
		m.device.DestroyBuffer(mesh.indexBuf)
	}
	m.mu.Lock()
	delete(m.meshes, mesh)
	m.mu.Unlock()
}

// FilterMode selects texture sampling filtering.
type FilterMode uint8

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

// WrapMode selects texture addressing outside [0, 1].
type WrapMode uint8

const (
	WrapRepeat WrapMode = iota
	WrapClampToEdge
)

// SamplerOptions describe a texture's sampler. The zero value is
// linear filtering with repeat addressing.
type SamplerOptions struct {
	Filter FilterMode
	Wrap   WrapMode
}

// Texture is a GPU-resident 2D image plus its shared sampler.
// Reference-counted: materials retain the textures they bind and the
// backing GPU objects are destroyed when the last reference is
// released.
type Texture struct {
	label   string
	texture hal.Texture
	view    hal.TextureView
	sampler hal.Sampler
	width   uint32
	height  uint32
	format  gputypes.TextureFormat

	refs      atomic.Int32
	epoch     uint64
	destroyed atomic.Bool
}

// Width returns the texture width in pixels.
func (t *Texture) Width() uint32 { return t.width }

// Height returns the texture height in pixels.
func (t *Texture) Height() uint32 { return t.height }

// Format returns the texture pixel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Refs returns the current reference count.
func (t *Texture) Refs() int32 { return t.refs.Load() }

// textureBytesPerPixel maps the supported uncompressed 8-bit channel
// layouts to their pixel size. Anything absent from this table is
// rejected with ErrUnsupportedFormat.
var textureBytesPerPixel = map[gputypes.TextureFormat]uint32{
	gputypes.TextureFormatR8Unorm:        1,
	gputypes.TextureFormatRG8Unorm:       2,
	gputypes.TextureFormatRGBA8Unorm:     4,
	gputypes.TextureFormatRGBA8UnormSrgb: 4,
	gputypes.TextureFormatBGRA8Unorm:     4,
	gputypes.TextureFormatBGRA8UnormSrgb: 4,
}

// CreateTexture uploads tightly packed pixel data as a GPU texture
// with a deduplicated sampler.
//
// Returns ErrUnsupportedFormat for formats outside the supported
// uncompressed 8-bit layouts or when the pixel data does not match the
// declared dimensions. Returns ErrOutOfDeviceMemory when the device
// cannot allocate the texture; the caller decides whether to retry
// with different parameters or abort.
func (m *ResourceManager) CreateTexture(label string, pixels []byte, width, height uint32, format gputypes.TextureFormat, sampler SamplerOptions) (*Texture, error) {
	bpp, ok := textureBytesPerPixel[format]
	if !ok {
		return nil, fmt.Errorf("%w: format %v", ErrUnsupportedFormat, format)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: zero dimension %dx%d", ErrUnsupportedFormat, width, height)
	}
	if uint64(len(pixels)) != uint64(width)*uint64(height)*uint64(bpp) {
		return nil, fmt.Errorf("%w: %d bytes of pixels for %dx%d at %d bytes/pixel",
			ErrUnsupportedFormat, len(pixels), width, height, bpp)
	}

	tex, err := m.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: texture %dx%d: %v", ErrOutOfDeviceMemory, width, height, err)
	}

	view, err := m.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		m.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create texture view: %w", err)
	}

	halSampler, err := m.sharedSampler(sampler)
	if err != nil {
		m.device.DestroyTextureView(view)
		m.device.DestroyTexture(tex)
		return nil, err
	}

	m.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
		},
		pixels,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  width * bpp,
			RowsPerImage: height,
		},
		&hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)

	t := &Texture{
		label:   label,
		texture: tex,
		view:    view,
		sampler: halSampler,
		width:   width,
		height:  height,
		format:  format,
		epoch:   m.epoch.Load(),
	}
	// The creator holds the first reference; materials add theirs on
	// top, so releasing the creator's never frees a bound texture.
	t.refs.Store(1)
	m.mu.Lock()
	m.textures[t] = struct{}{}
	m.mu.Unlock()

	slogger().Debug("texture created", "label", label,
		"size", fmt.Sprintf("%dx%d", width, height), "format", format)
	return t, nil
}

// Retain increments the texture's reference count.
func (m *ResourceManager) Retain(t *Texture) {
	if t != nil {
		t.refs.Add(1)
	}
}

// Release decrements the texture's reference count and destroys the
// GPU objects when it reaches zero. The shared sampler stays alive; it
// belongs to the manager.
func (m *ResourceManager) Release(t *Texture) {
	if t == nil {
		return
	}
	if t.refs.Add(-1) > 0 {
		return
	}
	if !t.destroyed.CompareAndSwap(false, true) {
		return
	}
	if t.epoch == m.epoch.Load() {
		m.device.DestroyTextureView(t.view)
		m.device.DestroyTexture(t.texture)
	}
	m.mu.Lock()
	delete(m.textures, t)
	m.mu.Unlock()
}

// sharedSampler returns the deduplicated sampler for the options,
// creating it on first use.
func (m *ResourceManager) sharedSampler(opts SamplerOptions) (hal.Sampler, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.samplers[opts]; ok {
		return s, nil
	}

	filter := gputypes.FilterModeLinear
	if opts.Filter == FilterNearest {
		filter = gputypes.FilterModeNearest
	}
	address := gputypes.AddressModeRepeat
	if opts.Wrap == WrapClampToEdge {
		address = gputypes.AddressModeClampToEdge
	}
	s, err := m.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        fmt.Sprintf("g3d_sampler_f%d_w%d", opts.Filter, opts.Wrap),
		AddressModeU: address,
		AddressModeV: address,
		AddressModeW: address,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}
	m.samplers[opts] = s
	return s, nil
}

// MaterialDescriptor describes a material before GPU construction.
// Texture references are borrowed; the created material retains them.
type MaterialDescriptor struct {
	Label string

	// Diffuse is the optional albedo texture.
	Diffuse *Texture

	// NormalMap is the optional tangent-space normal map. Meshes drawn
	// with it must carry tangents.
	NormalMap *Texture

	// BaseColor is the albedo multiplier (linear RGBA). Zero value is
	// treated as opaque white.
	BaseColor [4]float32

	// AmbientFactor scales the light's ambient term. Zero is treated
	// as 1.
	AmbientFactor float32

	// SpecularFactor scales the specular highlight. May be zero.
	SpecularFactor float32

	// Shininess is the specular exponent. Zero is treated as 32.
	Shininess float32
}

// materialParamsSize is the byte size of the MaterialParams shader
// struct: base_color vec4 + factors vec4.
const materialParamsSize = 32

// Material is an immutable GPU material: a capability signature, a
// small parameter buffer and a bind group referencing the textures the
// signature enables. Materials hold references to their textures, not
// ownership.
type Material struct {
	label     string
	signature MaterialSignature
	paramsBuf hal.Buffer
	bindGroup hal.BindGroup
	diffuse   *Texture
	normalMap *Texture

	epoch     uint64
	destroyed atomic.Bool
}

// Signature returns the material's capability signature.
func (mt *Material) Signature() MaterialSignature { return mt.signature }

// Label returns the debug label.
func (mt *Material) Label() string { return mt.label }

// CreateMaterial builds a material from a descriptor. The capability
// signature is derived from which textures are present; the bind group
// uses the shared layout for that signature so it is compatible with
// every pipeline variant sharing it.
func (m *ResourceManager) CreateMaterial(desc MaterialDescriptor) (*Material, error) {
	sig := SignatureFor(desc.Diffuse != nil, desc.NormalMap != nil)
	layout, err := m.pipelines.MaterialLayout(sig)
	if err != nil {
		return nil, err
	}

	base := desc.BaseColor
	if base == [4]float32{} {
		base = [4]float32{1, 1, 1, 1}
	}
	ambient := desc.AmbientFactor
	if ambient == 0 {
		ambient = 1
	}
	shininess := desc.Shininess
	if shininess == 0 {
		shininess = 32
	}
	params := make([]byte, materialParamsSize)
	packFloats(params, []float32{
		base[0], base[1], base[2], base[3],
		ambient, desc.SpecularFactor, shininess, 0,
	})

	paramsBuf, err := m.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label + "_params",
		Size:  materialParamsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: material params: %v", ErrOutOfDeviceMemory, err)
	}
	m.queue.WriteBuffer(paramsBuf, 0, params)

	entries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{
			Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: materialParamsSize,
		}},
	}
	if desc.Diffuse != nil {
		entries = append(entries,
			gputypes.BindGroupEntry{Binding: 1, Resource: gputypes.TextureViewBinding{
				TextureView: desc.Diffuse.view.NativeHandle(),
			}},
			gputypes.BindGroupEntry{Binding: 2, Resource: gputypes.SamplerBinding{
				Sampler: desc.Diffuse.sampler.NativeHandle(),
			}},
		)
	}
	if desc.NormalMap != nil {
		entries = append(entries,
			gputypes.BindGroupEntry{Binding: 3, Resource: gputypes.TextureViewBinding{
				TextureView: desc.NormalMap.view.NativeHandle(),
			}},
			gputypes.BindGroupEntry{Binding: 4, Resource: gputypes.SamplerBinding{
				Sampler: desc.NormalMap.sampler.NativeHandle(),
			}},
		)
	}

	bindGroup, err := m.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   desc.Label + "_bind",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		m.device.DestroyBuffer(paramsBuf)
		return nil, fmt.Errorf("create material bind group: %w", err)
	}

	mt := &Material{
		label:     desc.Label,
		signature: sig,
		paramsBuf: paramsBuf,
		bindGroup: bindGroup,
		diffuse:   desc.Diffuse,
		normalMap: desc.NormalMap,
		epoch:     m.epoch.Load(),
	}
	m.Retain(desc.Diffuse)
	m.Retain(desc.NormalMap)

	m.mu.Lock()
	m.materials[mt] = struct{}{}
	m.mu.Unlock()
	return mt, nil
}

// DestroyMaterial releases the material's GPU objects and its texture
// references.
func (m *ResourceManager) DestroyMaterial(mt *Material) {
	if mt == nil || !mt.destroyed.CompareAndSwap(false, true) {
		return
	}
	if mt.epoch == m.epoch.Load() {
		m.device.DestroyBindGroup(mt.bindGroup)
		m.device.DestroyBuffer(mt.paramsBuf)
	}
	m.Release(mt.diffuse)
	m.Release(mt.normalMap)
	m.mu.Lock()
	delete(m.materials, mt)
	m.mu.Unlock()
}

// InvalidateAll marks every live handle stale and destroys the GPU
// objects the manager still owns. Called on device loss, after which
// all cached meshes, textures and materials must be rebuilt. Handles
// from the old epoch report ErrDeviceLost on use.
func (m *ResourceManager) InvalidateAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := len(m.meshes) + len(m.textures) + len(m.materials)
	for mt := range m.materials {
		mt.destroyed.Store(true)
	}
	for t := range m.textures {
		t.destroyed.Store(true)
	}
	for mesh := range m.meshes {
		mesh.destroyed.Store(true)
	}
	m.materials = make(map[*Material]struct{})
	m.textures = make(map[*Texture]struct{})
	m.meshes = make(map[*Mesh]struct{})
	m.samplers = make(map[SamplerOptions]hal.Sampler)
	m.epoch.Add(1)

	slogger().Warn("resource arena invalidated", "handles", count, "epoch", m.epoch.Load())
}

// checkMesh verifies a mesh handle is live and from the current epoch.
func (m *ResourceManager) checkMesh(mesh *Mesh) error {
	if mesh == nil {
		return fmt.Errorf("%w: nil mesh", ErrInvalidState)
	}
	if mesh.epoch != m.epoch.Load() {
		return fmt.Errorf("%w: mesh %q from epoch %d", ErrDeviceLost, mesh.label, mesh.epoch)
	}
	if mesh.destroyed.Load() {
		return fmt.Errorf("%w: mesh %q", ErrResourceDestroyed, mesh.label)
	}
	return nil
}

// checkMaterial verifies a material handle is live and from the
// current epoch.
func (m *ResourceManager) checkMaterial(mt *Material) error {
	if mt == nil {
		return fmt.Errorf("%w: nil material", ErrInvalidState)
	}
	if mt.epoch != m.epoch.Load() {
		return fmt.Errorf("%w: material %q from epoch %d", ErrDeviceLost, mt.label, mt.epoch)
	}
	if mt.destroyed.Load() {
		return fmt.Errorf("%w: material %q", ErrResourceDestroyed, mt.label)
	}
	return nil
}
