// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/internal/gpu"
)

// DepthFormat is the depth attachment format all targets use.
const DepthFormat = gputypes.TextureFormatDepth32Float

// Target is the frame destination contract. Re-exported so hosts can
// implement their own targets against this package alone.
type Target = gpu.Target

// Compile-time interface checks.
var (
	_ Target = (*TextureTarget)(nil)
	_ Target = (*StereoTextureTarget)(nil)
	_ Target = (*SurfaceTarget)(nil)
)

// attachment couples a texture with the view a render pass binds.
type attachment struct {
	texture hal.Texture
	view    hal.TextureView
}

func (a *attachment) destroy(device hal.Device) {
	if a.view != nil {
		device.DestroyTextureView(a.view)
		a.view = nil
	}
	if a.texture != nil {
		device.DestroyTexture(a.texture)
		a.texture = nil
	}
}

// createAttachment builds a renderable texture and its view. A layer
// count above 1 produces an array texture with an array view, one
// layer per eye.
func createAttachment(device hal.Device, label string, width, height, layers uint32, format gputypes.TextureFormat, usage gputypes.TextureUsage) (attachment, error) {
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: layers},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return attachment{}, fmt.Errorf("%w: attachment %q %dx%dx%d: %v",
			gpu.ErrOutOfDeviceMemory, label, width, height, layers, err)
	}

	dim := gputypes.TextureViewDimension2D
	if layers > 1 {
		dim = gputypes.TextureViewDimension2DArray
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           label + "_view",
		Format:          format,
		Dimension:       dim,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: layers,
	})
	if err != nil {
		device.DestroyTexture(tex)
		return attachment{}, fmt.Errorf("create view for %q: %w", label, err)
	}
	return attachment{texture: tex, view: view}, nil
}

// TextureTarget is an offscreen mono target owning one color and one
// depth attachment. Present is a no-op; the color texture stays
// available for readback or composition.
type TextureTarget struct {
	device hal.Device
	width  uint32
	height uint32
	format gputypes.TextureFormat
	color  attachment
	depth  attachment
}

// NewTextureTarget creates an offscreen mono target. The color
// texture carries CopySrc usage so its contents can be read back.
func NewTextureTarget(device hal.Device, width, height uint32, format gputypes.TextureFormat) (*TextureTarget, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: zero target size %dx%d", gpu.ErrInvalidState, width, height)
	}
	color, err := createAttachment(device, "target_color", width, height, 1, format,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc)
	if err != nil {
		return nil, err
	}
	depth, err := createAttachment(device, "target_depth", width, height, 1, DepthFormat,
		gputypes.TextureUsageRenderAttachment)
	if err != nil {
		color.destroy(device)
		return nil, err
	}
	return &TextureTarget{
		device: device,
		width:  width,
		height: height,
		format: format,
		color:  color,
		depth:  depth,
	}, nil
}

// Kind returns the mono target kind.
func (t *TextureTarget) Kind() gpu.TargetKind { return gpu.TargetMono }

// Size returns the target dimensions in pixels.
func (t *TextureTarget) Size() (uint32, uint32) { return t.width, t.height }

// ColorFormat returns the color attachment format.
func (t *TextureTarget) ColorFormat() gputypes.TextureFormat { return t.format }

// AcquireViews returns the owned attachment views.
func (t *TextureTarget) AcquireViews() (hal.TextureView, hal.TextureView, error) {
	if t.color.view == nil {
		return nil, nil, fmt.Errorf("%w: target destroyed", gpu.ErrInvalidState)
	}
	return t.color.view, t.depth.view, nil
}

// Present is a no-op for offscreen targets.
func (t *TextureTarget) Present() error { return nil }

// ColorTexture returns the color texture for readback.
func (t *TextureTarget) ColorTexture() hal.Texture { return t.color.texture }

// Destroy frees the attachments.
func (t *TextureTarget) Destroy() {
	t.color.destroy(t.device)
	t.depth.destroy(t.device)
}

// StereoTextureTarget is an offscreen stereo target: 2-layer color
// and depth array textures, layer 0 the left eye, layer 1 the right.
// XR runtimes consume the layered color texture directly.
type StereoTextureTarget struct {
	device hal.Device
	width  uint32
	height uint32
	format gputypes.TextureFormat
	color  attachment
	depth  attachment
}

// NewStereoTextureTarget creates an offscreen stereo target with the
// given per-eye dimensions.
func NewStereoTextureTarget(device hal.Device, width, height uint32, format gputypes.TextureFormat) (*StereoTextureTarget, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: zero target size %dx%d", gpu.ErrInvalidState, width, height)
	}
	color, err := createAttachment(device, "stereo_color", width, height, 2, format,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc|gputypes.TextureUsageTextureBinding)
	if err != nil {
		return nil, err
	}
	depth, err := createAttachment(device, "stereo_depth", width, height, 2, DepthFormat,
		gputypes.TextureUsageRenderAttachment)
	if err != nil {
		color.destroy(device)
		return nil, err
	}
	return &StereoTextureTarget{
		device: device,
		width:  width,
		height: height,
		format: format,
		color:  color,
		depth:  depth,
	}, nil
}

// Kind returns the stereo target kind.
func (t *StereoTextureTarget) Kind() gpu.TargetKind { return gpu.TargetStereo }

// Size returns the per-eye dimensions in pixels.
func (t *StereoTextureTarget) Size() (uint32, uint32) { return t.width, t.height }

// ColorFormat returns the color attachment format.
func (t *StereoTextureTarget) ColorFormat() gputypes.TextureFormat { return t.format }

// AcquireViews returns the layered attachment views.
func (t *StereoTextureTarget) AcquireViews() (hal.TextureView, hal.TextureView, error) {
	if t.color.view == nil {
		return nil, nil, fmt.Errorf("%w: target destroyed", gpu.ErrInvalidState)
	}
	return t.color.view, t.depth.view, nil
}

// Present is a no-op for offscreen targets.
func (t *StereoTextureTarget) Present() error { return nil }

// ColorTexture returns the 2-layer color texture for the compositor.
func (t *StereoTextureTarget) ColorTexture() hal.Texture { return t.color.texture }

// Destroy frees the attachments.
func (t *StereoTextureTarget) Destroy() {
	t.color.destroy(t.device)
	t.depth.destroy(t.device)
}

// SurfaceConfig wires a SurfaceTarget to the host's swapchain.
type SurfaceConfig struct {
	Device hal.Device

	// Width and Height are the current surface dimensions.
	Width  uint32
	Height uint32

	// Format is the swapchain color format.
	Format gputypes.TextureFormat

	// Acquire returns the view of the next swapchain image. An error
	// here is reported as a surface loss.
	Acquire func() (hal.TextureView, error)

	// Present queues the acquired image for display.
	Present func() error
}

// SurfaceTarget is a mono target backed by a host swapchain. The
// target owns only the depth buffer; color views come from the host's
// Acquire callback each frame.
//
// After the host invalidates the surface (a resize, a lost
// swapchain), the next AcquireViews reports ErrSurfaceLost exactly
// once; the host then calls Resize and rendering resumes. Cached
// pipelines and resources survive surface loss untouched.
type SurfaceTarget struct {
	cfg     SurfaceConfig
	depth   attachment
	invalid bool
}

// NewSurfaceTarget creates a surface-backed target.
func NewSurfaceTarget(cfg SurfaceConfig) (*SurfaceTarget, error) {
	if cfg.Device == nil || cfg.Acquire == nil || cfg.Present == nil {
		return nil, fmt.Errorf("%w: surface config missing device or callbacks", gpu.ErrInvalidState)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("%w: zero surface size %dx%d", gpu.ErrInvalidState, cfg.Width, cfg.Height)
	}
	depth, err := createAttachment(cfg.Device, "surface_depth", cfg.Width, cfg.Height, 1, DepthFormat,
		gputypes.TextureUsageRenderAttachment)
	if err != nil {
		return nil, err
	}
	return &SurfaceTarget{cfg: cfg, depth: depth}, nil
}

// Kind returns the mono target kind.
func (t *SurfaceTarget) Kind() gpu.TargetKind { return gpu.TargetMono }

// Size returns the surface dimensions in pixels.
func (t *SurfaceTarget) Size() (uint32, uint32) { return t.cfg.Width, t.cfg.Height }

// ColorFormat returns the swapchain format.
func (t *SurfaceTarget) ColorFormat() gputypes.TextureFormat { return t.cfg.Format }

// AcquireViews acquires the next swapchain image and pairs it with
// the owned depth view.
func (t *SurfaceTarget) AcquireViews() (hal.TextureView, hal.TextureView, error) {
	if t.invalid {
		t.invalid = false
		return nil, nil, fmt.Errorf("%w: surface invalidated", gpu.ErrSurfaceLost)
	}
	color, err := t.cfg.Acquire()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: acquire swapchain image: %v", gpu.ErrSurfaceLost, err)
	}
	return color, t.depth.view, nil
}

// Present queues the frame for display via the host callback.
func (t *SurfaceTarget) Present() error {
	if err := t.cfg.Present(); err != nil {
		return fmt.Errorf("%w: present: %v", gpu.ErrSurfaceLost, err)
	}
	return nil
}

// Invalidate marks the surface lost. The next AcquireViews fails with
// ErrSurfaceLost, once.
func (t *SurfaceTarget) Invalidate() { t.invalid = true }

// Resize rebuilds the depth buffer for new surface dimensions. The
// host reconfigures its swapchain before calling this.
func (t *SurfaceTarget) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: zero surface size %dx%d", gpu.ErrInvalidState, width, height)
	}
	depth, err := createAttachment(t.cfg.Device, "surface_depth", width, height, 1, DepthFormat,
		gputypes.TextureUsageRenderAttachment)
	if err != nil {
		return err
	}
	t.depth.destroy(t.cfg.Device)
	t.depth = depth
	t.cfg.Width = width
	t.cfg.Height = height
	t.invalid = false
	return nil
}

// Destroy frees the depth attachment.
func (t *SurfaceTarget) Destroy() {
	t.depth.destroy(t.cfg.Device)
}
