package gpu

import (
	"fmt"
	"sort"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Target is the destination a frame renders into. Mono targets expose
// a single 2D color view and a matching depth view; stereo targets
// expose 2-layer array views where layer 0 is the left eye.
//
// AcquireViews is called once per frame at the Idle -> Recording
// transition. An invalidated surface (resize, loss) returns
// ErrSurfaceLost: the frame is dropped, the caller reconfigures the
// target, and every cached pipeline/texture/mesh stays valid.
type Target interface {
	// Kind reports mono or stereo.
	Kind() TargetKind

	// Size returns the target dimensions in pixels (per eye for
	// stereo).
	Size() (width, height uint32)

	// ColorFormat returns the color attachment format.
	ColorFormat() gputypes.TextureFormat

	// AcquireViews returns the color and depth views for this frame.
	AcquireViews() (color, depth hal.TextureView, err error)

	// Present hands the finished frame to the output. A no-op for
	// offscreen targets.
	Present() error
}

// frameState is the per-frame lifecycle of the renderer.
//
// Idle -> Recording on BeginFrame (target views acquired, uniform slot
// acquired). Recording -> Submitted on EndFrame (command stream
// finalized and queued). Submitted -> Idle completes lazily at the
// next BeginFrame, once slot acquisition confirms the device released
// a prior frame.
type frameState int

const (
	frameIdle frameState = iota
	frameRecording
	frameSubmitted
)

// String returns the state name for diagnostics.
func (s frameState) String() string {
	switch s {
	case frameIdle:
		return "idle"
	case frameRecording:
		return "recording"
	case frameSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("frameState(%d)", int(s))
	}
}

// FrameStats summarizes one submitted frame's command stream.
type FrameStats struct {
	// PipelineBinds is the number of SetPipeline calls issued. Objects
	// are grouped by pipeline, so this equals the number of distinct
	// pipelines drawn.
	PipelineBinds int

	// DrawCalls is the number of indexed draws issued.
	DrawCalls int

	// Indices is the total index count across all draws.
	Indices uint64

	// Objects is the number of staged objects (equals DrawCalls; kept
	// separate so dropped draws would be visible).
	Objects int
}

// drawCommand is one staged object: its resources plus the pipeline
// resolved at Draw time and the object's model uniform offset.
type drawCommand struct {
	mesh        *Mesh
	material    *Material
	pipeline    *Pipeline
	modelOffset uint32
}

// DefaultClearColor is the clear value the reference scene uses.
var DefaultClearColor = gputypes.Color{R: 0.1, G: 0.2, B: 0.3, A: 1.0}

// FrameRenderer orchestrates one frame at a time: it acquires the
// target and a uniform slot, stages draws, then encodes a single
// render pass with draws grouped by pipeline and submits it.
//
// The renderer is driven from a single recording goroutine; frames do
// not interleave. The only blocking point is uniform slot acquisition
// inside BeginFrame.
type FrameRenderer struct {
	device    hal.Device
	queue     hal.Queue
	pipelines *PipelineCache
	resources *ResourceManager
	uniforms  *UniformState

	clearColor gputypes.Color

	state  frameState
	target Target
	token  *FrameToken
	draws  []drawCommand

	colorView hal.TextureView
	depthView hal.TextureView

	// pendingCmd holds the command buffer of each slot's last
	// submitted frame. Freed when the same slot submits again, at
	// which point slot acquisition has already proven the old frame's
	// fence signaled.
	pendingCmd map[int]hal.CommandBuffer
}

// NewFrameRenderer assembles the frame orchestrator from its
// collaborators.
func NewFrameRenderer(device hal.Device, queue hal.Queue, pipelines *PipelineCache, resources *ResourceManager, uniforms *UniformState) *FrameRenderer {
	return &FrameRenderer{
		device:     device,
		queue:      queue,
		pipelines:  pipelines,
		resources:  resources,
		uniforms:   uniforms,
		clearColor: DefaultClearColor,
		pendingCmd: make(map[int]hal.CommandBuffer),
	}
}

// SetClearColor overrides the color attachment clear value.
func (r *FrameRenderer) SetClearColor(c gputypes.Color) { r.clearColor = c }

// BeginFrame starts recording a mono frame against the target.
//
// It acquires the target's views first: a lost surface is reported
// before any slot is taken, so a dropped frame consumes nothing.
// Uniform slot acquisition follows and may block (see
// UniformState.BeginFrame).
func (r *FrameRenderer) BeginFrame(target Target, camera CameraUniform, light LightUniform) error {
	if target.Kind() != TargetMono {
		return fmt.Errorf("%w: mono frame against %s target", ErrInvalidState, target.Kind())
	}
	return r.begin(target, func() (*FrameToken, error) {
		return r.uniforms.BeginFrame(camera, light)
	})
}

// BeginFrameStereo starts recording a stereo frame against the target.
// The camera's two-eye arrays must be in [left, right] order.
func (r *FrameRenderer) BeginFrameStereo(target Target, camera StereoCameraUniform, light LightUniform) error {
	if target.Kind() != TargetStereo {
		return fmt.Errorf("%w: stereo frame against %s target", ErrInvalidState, target.Kind())
	}
	return r.begin(target, func() (*FrameToken, error) {
		return r.uniforms.BeginFrameStereo(camera, light)
	})
}

func (r *FrameRenderer) begin(target Target, beginToken func() (*FrameToken, error)) error {
	// frameSubmitted is a legal entry: the Submitted -> Idle edge
	// completes here, backed by slot acquisition below.
	if r.state == frameRecording {
		return fmt.Errorf("%w: BeginFrame while %s", ErrInvalidState, r.state)
	}

	color, depth, err := target.AcquireViews()
	if err != nil {
		if r.state == frameSubmitted {
			r.state = frameIdle
		}
		return fmt.Errorf("acquire target: %w", err)
	}

	token, err := beginToken()
	if err != nil {
		return err
	}

	r.state = frameRecording
	r.target = target
	r.token = token
	r.colorView = color
	r.depthView = depth
	r.draws = r.draws[:0]
	return nil
}

// Draw stages one object: a mesh, the material that shades it and its
// world transform. The pipeline for the material's signature and the
// frame's target kind is resolved (and built on first use) here, so a
// broken shader variant surfaces at the first draw that needs it.
func (r *FrameRenderer) Draw(mesh *Mesh, material *Material, model [16]float32) error {
	if r.state != frameRecording {
		return fmt.Errorf("%w: Draw while %s", ErrInvalidState, r.state)
	}
	if err := r.resources.checkMesh(mesh); err != nil {
		return err
	}
	if err := r.resources.checkMaterial(material); err != nil {
		return err
	}

	pipeline, err := r.pipelines.GetOrCreate(PipelineKey{
		Signature: material.signature,
		Target:    r.target.Kind(),
	})
	if err != nil {
		return err
	}

	offset, err := r.uniforms.StageObject(r.token, model)
	if err != nil {
		return err
	}

	r.draws = append(r.draws, drawCommand{
		mesh:        mesh,
		material:    material,
		pipeline:    pipeline,
		modelOffset: offset,
	})
	return nil
}

// EndFrame finalizes the frame: flushes staged uniforms, encodes one
// render pass with draws grouped by pipeline in pipeline-creation
// order, submits the command stream against the slot's fence and
// presents the target.
//
// A submit failure is a device loss: the caller must tear down and
// rebuild all GPU state. A present failure is a surface loss: the
// frame's work is done, only the output is stale.
func (r *FrameRenderer) EndFrame() (FrameStats, error) {
	if r.state != frameRecording {
		return FrameStats{}, fmt.Errorf("%w: EndFrame while %s", ErrInvalidState, r.state)
	}

	bindings, err := r.uniforms.EndFrame(r.token)
	if err != nil {
		return FrameStats{}, err
	}
	r.token = nil

	stats, cmdBuf, err := r.encode(bindings)
	if err != nil {
		bindings.Cancel()
		r.state = frameIdle
		return FrameStats{}, err
	}

	fence, fenceValue := bindings.SubmitInfo()
	if err := r.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, fenceValue); err != nil {
		bindings.Cancel()
		r.state = frameIdle
		return FrameStats{}, fmt.Errorf("%w: submit: %v", ErrDeviceLost, err)
	}

	// The slot's previous command buffer is idle by now: the slot was
	// only reacquired after its fence signaled.
	slot := bindings.slot.index
	if prev, ok := r.pendingCmd[slot]; ok {
		r.device.FreeCommandBuffer(prev)
	}
	r.pendingCmd[slot] = cmdBuf

	r.state = frameSubmitted
	target := r.target
	r.target = nil
	r.colorView = nil
	r.depthView = nil

	if err := target.Present(); err != nil {
		return stats, fmt.Errorf("present: %w", err)
	}

	slogger().Debug("frame submitted",
		"pipelines", stats.PipelineBinds,
		"draws", stats.DrawCalls,
		"indices", stats.Indices)
	return stats, nil
}

// Abort drops a recording frame without submitting. The uniform slot
// returns to the pool immediately; nothing reaches the device.
func (r *FrameRenderer) Abort() {
	if r.state != frameRecording {
		return
	}
	r.uniforms.Abort(r.token)
	r.token = nil
	r.target = nil
	r.colorView = nil
	r.depthView = nil
	r.draws = r.draws[:0]
	r.state = frameIdle
}

// encode records the frame's single render pass and returns the stats
// and finished command buffer.
func (r *FrameRenderer) encode(bindings *FrameBindings) (FrameStats, hal.CommandBuffer, error) {
	// Stable grouping by pipeline-creation order. Order within a
	// group follows staging order; order across groups is stable and
	// not render-critical since opaque draws are depth-tested.
	sort.SliceStable(r.draws, func(i, j int) bool {
		return r.draws[i].pipeline.order < r.draws[j].pipeline.order
	})

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "g3d_frame_encoder",
	})
	if err != nil {
		return FrameStats{}, nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("g3d_frame"); err != nil {
		return FrameStats{}, nil, fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "g3d_main_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       r.colorView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: r.clearColor,
		}},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:            r.depthView,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})

	var stats FrameStats
	var current *Pipeline
	for _, cmd := range r.draws {
		if cmd.pipeline != current {
			current = cmd.pipeline
			rp.SetPipeline(current.Raw())
			rp.SetBindGroup(0, bindings.CameraBindGroup(), nil)
			rp.SetBindGroup(1, bindings.LightBindGroup(), nil)
			stats.PipelineBinds++
		}

		modelBind, err := bindings.ModelBindGroup(cmd.modelOffset)
		if err != nil {
			rp.End()
			return FrameStats{}, nil, err
		}
		rp.SetBindGroup(2, modelBind, nil)
		rp.SetBindGroup(3, cmd.material.bindGroup, nil)

		rp.SetVertexBuffer(0, cmd.mesh.vertexBuf, 0)
		rp.SetIndexBuffer(cmd.mesh.indexBuf, gputypes.IndexFormatUint32, 0)
		rp.DrawIndexed(cmd.mesh.indexCount, 1, 0, 0, 0)

		stats.DrawCalls++
		stats.Objects++
		stats.Indices += uint64(cmd.mesh.indexCount)
	}

	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return FrameStats{}, nil, fmt.Errorf("end encoding: %w", err)
	}
	return stats, cmdBuf, nil
}

// Destroy frees the command buffers the renderer still tracks. The
// caller must ensure no frame is in flight.
func (r *FrameRenderer) Destroy() {
	for _, cb := range r.pendingCmd {
		r.device.FreeCommandBuffer(cb)
	}
	r.pendingCmd = make(map[int]hal.CommandBuffer)
}
