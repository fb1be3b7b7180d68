package gpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Uniform buffer layouts. Sizes and offsets are bit-exact with the
// shader-declared structs: every member is 16-byte aligned, mat4
// members are 64 bytes, and vec3 data is carried as vec4 with the W
// component as padding.
const (
	// CameraUniformSize is the mono Camera struct: view_proj mat4,
	// view mat4, proj mat4, position vec4.
	CameraUniformSize = 64 + 64 + 64 + 16

	// StereoCameraUniformSize is the stereo Camera struct: two view
	// mat4s, two proj mat4s, two view_proj mat4s, two eye positions.
	StereoCameraUniformSize = 128 + 128 + 128 + 32

	// LightUniformSize is the Light struct: direction, color, ambient,
	// each a vec4.
	LightUniformSize = 16 + 16 + 16

	// ModelUniformSize is the Model struct: one mat4.
	ModelUniformSize = 64

	// ModelUniformStride is the spacing between per-object model
	// uniforms inside a frame slot's model buffer. 256 is the minimum
	// uniform buffer offset alignment WebGPU guarantees.
	ModelUniformStride = 256
)

// Frame-in-flight bounds. Two slots overlap CPU recording with GPU
// execution; a third absorbs presentation jitter. More only adds
// latency.
const (
	MinFramesInFlight     = 2
	MaxFramesInFlight     = 3
	DefaultFramesInFlight = 2
)

// initialModelCapacity is the number of per-object slots a frame
// slot's model buffer starts with. The buffer doubles on demand.
const initialModelCapacity = 64

// slotWaitTimeout bounds the blocking wait for a frame slot. A device
// that cannot finish a frame in this long is treated as lost.
const slotWaitTimeout = 5 * time.Second

// CameraUniform is the CPU-side mono camera uniform. Field order
// matches the shader struct; Pack serializes it byte-exactly.
type CameraUniform struct {
	ViewProj [16]float32
	View     [16]float32
	Proj     [16]float32
	Position [4]float32
}

// Pack serializes the uniform little-endian into a fresh buffer.
func (c *CameraUniform) Pack() []byte {
	out := make([]byte, CameraUniformSize)
	packFloats(out[0:], c.ViewProj[:])
	packFloats(out[64:], c.View[:])
	packFloats(out[128:], c.Proj[:])
	packFloats(out[192:], c.Position[:])
	return out
}

// StereoCameraUniform is the CPU-side stereo camera uniform. Each
// array holds [left, right] in that order; layer 0 of the target is
// the left eye, matching what the presentation surface expects. The
// shader indexes the arrays with the per-layer view index.
type StereoCameraUniform struct {
	View        [2][16]float32
	Proj        [2][16]float32
	ViewProj    [2][16]float32
	EyePosition [2][4]float32
}

// Pack serializes the uniform little-endian into a fresh buffer.
func (c *StereoCameraUniform) Pack() []byte {
	out := make([]byte, StereoCameraUniformSize)
	packFloats(out[0:], c.View[0][:])
	packFloats(out[64:], c.View[1][:])
	packFloats(out[128:], c.Proj[0][:])
	packFloats(out[192:], c.Proj[1][:])
	packFloats(out[256:], c.ViewProj[0][:])
	packFloats(out[320:], c.ViewProj[1][:])
	packFloats(out[384:], c.EyePosition[0][:])
	packFloats(out[400:], c.EyePosition[1][:])
	return out
}

// LightUniform is the CPU-side directional light uniform. Direction,
// color and ambient are vec3 data in vec4 slots; the alignment rules
// for uniform members require the 16-byte wrapping.
type LightUniform struct {
	Direction [4]float32
	Color     [4]float32
	Ambient   [4]float32
}

// Pack serializes the uniform little-endian into a fresh buffer.
func (l *LightUniform) Pack() []byte {
	out := make([]byte, LightUniformSize)
	packFloats(out[0:], l.Direction[:])
	packFloats(out[16:], l.Color[:])
	packFloats(out[32:], l.Ambient[:])
	return out
}

// PackModel serializes a model matrix into its 64-byte uniform form.
func PackModel(model [16]float32) []byte {
	out := make([]byte, ModelUniformSize)
	packFloats(out, model[:])
	return out
}

// frameSlot is one entry of the in-flight pool: a camera buffer, a
// light buffer, a growable model buffer, their bind groups and the
// fence that reports when the GPU is done with them. A slot is owned
// by exactly one frame from acquisition until its fence signals.
type frameSlot struct {
	index int

	cameraBuf hal.Buffer
	lightBuf  hal.Buffer
	modelBuf  hal.Buffer

	cameraBind hal.BindGroup
	lightBind  hal.BindGroup

	// modelBinds caches one bind group per staged object offset.
	// Offsets are stable (object i always lands at i*stride), so the
	// cache persists across frames until the buffer grows.
	modelBinds    map[uint32]hal.BindGroup
	modelCapacity uint32

	fence      hal.Fence
	fenceValue uint64

	inFlight  bool
	submitted bool
	frameSeq  uint64
}

// UniformState packs per-frame camera, light and per-object model
// uniforms into GPU buffers, cycling a fixed pool of frame slots so
// CPU writes never race GPU reads of a frame still in flight.
//
// Thread Safety: the renderer drives UniformState from a single
// recording goroutine; the mutex exists so diagnostics and tests can
// inspect it concurrently.
type UniformState struct {
	mu     sync.Mutex
	device hal.Device
	queue  hal.Queue

	modelLayout hal.BindGroupLayout

	slots    []*frameSlot
	frameSeq uint64
}

// NewUniformState creates the frame slot pool. framesInFlight is
// clamped to [MinFramesInFlight, MaxFramesInFlight]; zero selects the
// default.
func NewUniformState(device hal.Device, queue hal.Queue, pipelines *PipelineCache, framesInFlight int) (*UniformState, error) {
	if framesInFlight == 0 {
		framesInFlight = DefaultFramesInFlight
	}
	if framesInFlight < MinFramesInFlight {
		framesInFlight = MinFramesInFlight
	}
	if framesInFlight > MaxFramesInFlight {
		framesInFlight = MaxFramesInFlight
	}

	cameraLayout, lightLayout, modelLayout, err := pipelines.FrameLayouts()
	if err != nil {
		return nil, err
	}

	u := &UniformState{
		device:      device,
		queue:       queue,
		modelLayout: modelLayout,
	}
	for i := 0; i < framesInFlight; i++ {
		slot, err := u.createSlot(i, cameraLayout, lightLayout)
		if err != nil {
			u.Destroy()
			return nil, err
		}
		u.slots = append(u.slots, slot)
	}

	slogger().Debug("uniform pool created", "slots", framesInFlight)
	return u, nil
}

// SlotCount returns the size of the frame slot pool.
func (u *UniformState) SlotCount() int { return len(u.slots) }

func (u *UniformState) createSlot(index int, cameraLayout, lightLayout hal.BindGroupLayout) (*frameSlot, error) {
	label := fmt.Sprintf("g3d_frame%d", index)

	cameraBuf, err := u.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_camera",
		Size:  StereoCameraUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: camera uniforms: %v", ErrOutOfDeviceMemory, err)
	}
	lightBuf, err := u.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_light",
		Size:  LightUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		u.device.DestroyBuffer(cameraBuf)
		return nil, fmt.Errorf("%w: light uniforms: %v", ErrOutOfDeviceMemory, err)
	}
	modelBuf, err := u.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_models",
		Size:  uint64(initialModelCapacity) * ModelUniformStride,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		u.device.DestroyBuffer(cameraBuf)
		u.device.DestroyBuffer(lightBuf)
		return nil, fmt.Errorf("%w: model uniforms: %v", ErrOutOfDeviceMemory, err)
	}

	cameraBind, err := u.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label + "_camera_bind",
		Layout: cameraLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: cameraBuf.NativeHandle(), Offset: 0, Size: StereoCameraUniformSize,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create camera bind group: %w", err)
	}
	lightBind, err := u.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label + "_light_bind",
		Layout: lightLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: lightBuf.NativeHandle(), Offset: 0, Size: LightUniformSize,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create light bind group: %w", err)
	}

	fence, err := u.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("create frame fence: %w", err)
	}

	return &frameSlot{
		index:         index,
		cameraBuf:     cameraBuf,
		lightBuf:      lightBuf,
		modelBuf:      modelBuf,
		cameraBind:    cameraBind,
		lightBind:     lightBind,
		modelBinds:    make(map[uint32]hal.BindGroup),
		modelCapacity: initialModelCapacity,
		fence:         fence,
	}, nil
}

// FrameToken is the handle for one frame's uniform staging, valid from
// BeginFrame until EndFrame invalidates it. Staged data lives on the
// CPU until EndFrame flushes it to the slot's buffers in one pass.
type FrameToken struct {
	owner  *UniformState
	slot   *frameSlot
	stereo bool

	cameraBytes []byte
	lightBytes  []byte
	modelBytes  []byte
	objectCount uint32

	finalized bool
}

// Stereo reports whether the token was begun for a stereo frame.
func (t *FrameToken) Stereo() bool { return t.stereo }

// ObjectCount returns the number of objects staged so far.
func (t *FrameToken) ObjectCount() uint32 { return t.objectCount }

// BeginFrame acquires the next free frame slot and stages the mono
// camera and light uniforms.
//
// This is the renderer's single blocking point: when every slot is
// owned by a frame the device has not finished, BeginFrame waits for
// the oldest submitted slot's fence. The wait bounds frames in flight
// and prevents overwriting uniforms a running frame still reads. A
// wait that exceeds the timeout reports ErrDeviceLost.
func (u *UniformState) BeginFrame(camera CameraUniform, light LightUniform) (*FrameToken, error) {
	return u.begin(camera.Pack(), light.Pack(), false)
}

// BeginFrameStereo is BeginFrame for a stereo frame: the camera
// carries the two-eye arrays in [left, right] order.
func (u *UniformState) BeginFrameStereo(camera StereoCameraUniform, light LightUniform) (*FrameToken, error) {
	return u.begin(camera.Pack(), light.Pack(), true)
}

func (u *UniformState) begin(cameraBytes, lightBytes []byte, stereo bool) (*FrameToken, error) {
	slot, err := u.acquireSlot()
	if err != nil {
		return nil, err
	}
	return &FrameToken{
		owner:       u,
		slot:        slot,
		stereo:      stereo,
		cameraBytes: cameraBytes,
		lightBytes:  lightBytes,
	}, nil
}

// acquireSlot returns a slot not owned by any in-flight frame,
// blocking on the oldest submitted slot's fence when the pool is
// exhausted. A slot is never handed out while a previous frame still
// owns it.
func (u *UniformState) acquireSlot() (*frameSlot, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, slot := range u.slots {
		if !slot.inFlight {
			return u.takeSlot(slot), nil
		}
	}

	// Pool exhausted: backpressure. Wait for the oldest submitted
	// frame to finish on the device.
	var oldest *frameSlot
	for _, slot := range u.slots {
		if !slot.submitted {
			continue
		}
		if oldest == nil || slot.frameSeq < oldest.frameSeq {
			oldest = slot
		}
	}
	if oldest == nil {
		// Every slot is held by a frame that was never submitted;
		// only interleaved unfinished recordings can cause this.
		return nil, fmt.Errorf("%w: all %d frame slots held by unsubmitted frames",
			ErrInvalidState, len(u.slots))
	}

	ok, err := u.device.Wait(oldest.fence, oldest.fenceValue, slotWaitTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: fence wait: %v", ErrDeviceLost, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: frame fence timeout after %v", ErrDeviceLost, slotWaitTimeout)
	}
	oldest.inFlight = false
	oldest.submitted = false
	return u.takeSlot(oldest), nil
}

func (u *UniformState) takeSlot(slot *frameSlot) *frameSlot {
	u.frameSeq++
	slot.inFlight = true
	slot.submitted = false
	slot.frameSeq = u.frameSeq
	return slot
}

// StageObject appends one object's model matrix to the frame's
// per-object region and returns its byte offset within the model
// buffer. Offsets are stable for the duration of the frame; the
// renderer binds the model group at the returned offset.
func (u *UniformState) StageObject(t *FrameToken, model [16]float32) (uint32, error) {
	if t == nil || t.finalized {
		return 0, ErrTokenFinalized
	}
	offset := t.objectCount * ModelUniformStride
	packed := make([]byte, ModelUniformStride)
	packFloats(packed, model[:])
	t.modelBytes = append(t.modelBytes, packed...)
	t.objectCount++
	return offset, nil
}

// EndFrame flushes the staged bytes to the slot's GPU buffers,
// invalidates the token and returns the frame's bindings, ready for
// pass recording. The model buffer grows (doubling) when a frame
// stages more objects than the slot has seen before.
func (u *UniformState) EndFrame(t *FrameToken) (*FrameBindings, error) {
	if t == nil || t.finalized {
		return nil, ErrTokenFinalized
	}
	t.finalized = true
	slot := t.slot

	if t.objectCount > slot.modelCapacity {
		if err := u.growModelBuffer(slot, t.objectCount); err != nil {
			return nil, err
		}
	}

	u.queue.WriteBuffer(slot.cameraBuf, 0, t.cameraBytes)
	u.queue.WriteBuffer(slot.lightBuf, 0, t.lightBytes)
	if len(t.modelBytes) > 0 {
		u.queue.WriteBuffer(slot.modelBuf, 0, t.modelBytes)
	}

	return &FrameBindings{owner: u, slot: slot, stereo: t.stereo}, nil
}

// Abort releases a token's slot without submitting, for frames dropped
// before submission (for example on surface loss). Staged uniform data
// is discarded; no GPU state changes.
func (u *UniformState) Abort(t *FrameToken) {
	if t == nil || t.slot == nil {
		return
	}
	t.finalized = true
	u.mu.Lock()
	t.slot.inFlight = false
	t.slot.submitted = false
	u.mu.Unlock()
}

func (u *UniformState) growModelBuffer(slot *frameSlot, needed uint32) error {
	capacity := slot.modelCapacity
	for capacity < needed {
		capacity *= 2
	}
	newBuf, err := u.device.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("g3d_frame%d_models", slot.index),
		Size:  uint64(capacity) * ModelUniformStride,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%w: model uniforms (%d objects): %v", ErrOutOfDeviceMemory, capacity, err)
	}

	// The old buffer's offset bind groups point at freed memory.
	for _, bg := range slot.modelBinds {
		u.device.DestroyBindGroup(bg)
	}
	slot.modelBinds = make(map[uint32]hal.BindGroup)
	u.device.DestroyBuffer(slot.modelBuf)
	slot.modelBuf = newBuf
	slot.modelCapacity = capacity

	slogger().Debug("model uniform buffer grown", "slot", slot.index, "objects", capacity)
	return nil
}

// FrameBindings exposes a finalized frame's bind groups for pass
// recording, and the fence bookkeeping for submission.
type FrameBindings struct {
	owner  *UniformState
	slot   *frameSlot
	stereo bool
}

// Stereo reports whether the frame was packed for a stereo target.
func (b *FrameBindings) Stereo() bool { return b.stereo }

// CameraBindGroup returns the group 0 bind group.
func (b *FrameBindings) CameraBindGroup() hal.BindGroup { return b.slot.cameraBind }

// LightBindGroup returns the group 1 bind group.
func (b *FrameBindings) LightBindGroup() hal.BindGroup { return b.slot.lightBind }

// ModelBindGroup returns the group 2 bind group for an object's
// staged offset, creating and caching it on first use. Offsets are
// stable per slot, so the cache survives across frames.
func (b *FrameBindings) ModelBindGroup(offset uint32) (hal.BindGroup, error) {
	if bg, ok := b.slot.modelBinds[offset]; ok {
		return bg, nil
	}
	bg, err := b.owner.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  fmt.Sprintf("g3d_frame%d_model_%d", b.slot.index, offset),
		Layout: b.owner.modelLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: b.slot.modelBuf.NativeHandle(),
				Offset: uint64(offset),
				Size:   ModelUniformSize,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create model bind group at offset %d: %w", offset, err)
	}
	b.slot.modelBinds[offset] = bg
	return bg, nil
}

// SubmitInfo advances and returns the slot's fence target for queue
// submission, marking the slot submitted. The slot returns to the pool
// once the device signals the fence to the returned value.
func (b *FrameBindings) SubmitInfo() (hal.Fence, uint64) {
	b.owner.mu.Lock()
	defer b.owner.mu.Unlock()
	b.slot.fenceValue++
	b.slot.submitted = true
	return b.slot.fence, b.slot.fenceValue
}

// Cancel releases the slot without submission, for frames that fail
// between EndFrame and queue submission.
func (b *FrameBindings) Cancel() {
	b.owner.mu.Lock()
	defer b.owner.mu.Unlock()
	b.slot.inFlight = false
	b.slot.submitted = false
}

// Destroy releases every slot's GPU objects. Safe to call with slots
// partially constructed (during failed initialization) and after
// device loss, where the objects are already gone and only the CPU
// bookkeeping remains.
func (u *UniformState) Destroy() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, slot := range u.slots {
		for _, bg := range slot.modelBinds {
			u.device.DestroyBindGroup(bg)
		}
		if slot.cameraBind != nil {
			u.device.DestroyBindGroup(slot.cameraBind)
		}
		if slot.lightBind != nil {
			u.device.DestroyBindGroup(slot.lightBind)
		}
		if slot.cameraBuf != nil {
			u.device.DestroyBuffer(slot.cameraBuf)
		}
		if slot.lightBuf != nil {
			u.device.DestroyBuffer(slot.lightBuf)
		}
		if slot.modelBuf != nil {
			u.device.DestroyBuffer(slot.modelBuf)
		}
		if slot.fence != nil {
			u.device.DestroyFence(slot.fence)
		}
	}
	u.slots = nil
}
