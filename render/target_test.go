// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package render

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/g3d/internal/gpu"
)

func createNoopDevice(t *testing.T) (hal.Device, func()) {
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
	return openDev.Device, func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
}

func TestTextureTarget(t *testing.T) {
	device, cleanup := createNoopDevice(t)
	defer cleanup()

	target, err := NewTextureTarget(device, 320, 240, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		t.Fatalf("NewTextureTarget failed: %v", err)
	}
	defer target.Destroy()

	if target.Kind() != gpu.TargetMono {
		t.Errorf("Kind = %v", target.Kind())
	}
	if w, h := target.Size(); w != 320 || h != 240 {
		t.Errorf("Size = %dx%d", w, h)
	}
	if target.ColorFormat() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("ColorFormat = %v", target.ColorFormat())
	}

	color, depth, err := target.AcquireViews()
	if err != nil {
		t.Fatalf("AcquireViews failed: %v", err)
	}
	if color == nil || depth == nil {
		t.Fatal("nil attachment view")
	}
	if target.ColorTexture() == nil {
		t.Fatal("nil color texture")
	}
	if err := target.Present(); err != nil {
		t.Errorf("Present = %v", err)
	}
}

func TestTextureTargetRejectsZeroSize(t *testing.T) {
	device, cleanup := createNoopDevice(t)
	defer cleanup()

	if _, err := NewTextureTarget(device, 0, 240, gputypes.TextureFormatBGRA8Unorm); !errors.Is(err, gpu.ErrInvalidState) {
		t.Errorf("zero width: %v", err)
	}
	if _, err := NewStereoTextureTarget(device, 100, 0, gputypes.TextureFormatBGRA8Unorm); !errors.Is(err, gpu.ErrInvalidState) {
		t.Errorf("zero height: %v", err)
	}
}

func TestTextureTargetAcquireAfterDestroy(t *testing.T) {
	device, cleanup := createNoopDevice(t)
	defer cleanup()

	target, err := NewTextureTarget(device, 16, 16, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		t.Fatalf("NewTextureTarget failed: %v", err)
	}
	target.Destroy()

	if _, _, err := target.AcquireViews(); !errors.Is(err, gpu.ErrInvalidState) {
		t.Errorf("AcquireViews after Destroy: %v", err)
	}
}

func TestStereoTextureTarget(t *testing.T) {
	device, cleanup := createNoopDevice(t)
	defer cleanup()

	target, err := NewStereoTextureTarget(device, 512, 512, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		t.Fatalf("NewStereoTextureTarget failed: %v", err)
	}
	defer target.Destroy()

	if target.Kind() != gpu.TargetStereo {
		t.Errorf("Kind = %v", target.Kind())
	}
	if w, h := target.Size(); w != 512 || h != 512 {
		t.Errorf("Size = %dx%d", w, h)
	}
	if _, _, err := target.AcquireViews(); err != nil {
		t.Fatalf("AcquireViews failed: %v", err)
	}
}

// fakeSurface stands in for a host swapchain: one reusable color view
// plus counters for acquire and present calls.
type fakeSurface struct {
	device   hal.Device
	color    *TextureTarget
	acquires int
	presents int
}

func newFakeSurface(t *testing.T, device hal.Device) *fakeSurface {
	t.Helper()
	color, err := NewTextureTarget(device, 64, 64, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		t.Fatalf("backing target failed: %v", err)
	}
	return &fakeSurface{device: device, color: color}
}

func (s *fakeSurface) config() SurfaceConfig {
	return SurfaceConfig{
		Device: s.device,
		Width:  64,
		Height: 64,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Acquire: func() (hal.TextureView, error) {
			s.acquires++
			view, _, err := s.color.AcquireViews()
			return view, err
		},
		Present: func() error {
			s.presents++
			return nil
		},
	}
}

func TestSurfaceTarget(t *testing.T) {
	device, cleanup := createNoopDevice(t)
	defer cleanup()

	surf := newFakeSurface(t, device)
	defer surf.color.Destroy()

	target, err := NewSurfaceTarget(surf.config())
	if err != nil {
		t.Fatalf("NewSurfaceTarget failed: %v", err)
	}
	defer target.Destroy()

	color, depth, err := target.AcquireViews()
	if err != nil {
		t.Fatalf("AcquireViews failed: %v", err)
	}
	if color == nil || depth == nil {
		t.Fatal("nil view")
	}
	if err := target.Present(); err != nil {
		t.Fatalf("Present failed: %v", err)
	}
	if surf.acquires != 1 || surf.presents != 1 {
		t.Errorf("acquires %d presents %d", surf.acquires, surf.presents)
	}
}

func TestSurfaceTargetInvalidateReportsLossOnce(t *testing.T) {
	device, cleanup := createNoopDevice(t)
	defer cleanup()

	surf := newFakeSurface(t, device)
	defer surf.color.Destroy()

	target, err := NewSurfaceTarget(surf.config())
	if err != nil {
		t.Fatalf("NewSurfaceTarget failed: %v", err)
	}
	defer target.Destroy()

	target.Invalidate()
	if _, _, err := target.AcquireViews(); !errors.Is(err, gpu.ErrSurfaceLost) {
		t.Fatalf("first acquire after invalidate: %v, want ErrSurfaceLost", err)
	}
	if surf.acquires != 0 {
		t.Errorf("acquire callback ran %d times during loss", surf.acquires)
	}

	// The loss is consumed: the next acquire goes through.
	if _, _, err := target.AcquireViews(); err != nil {
		t.Fatalf("second acquire after invalidate: %v", err)
	}
}

func TestSurfaceTargetAcquireFailureIsLoss(t *testing.T) {
	device, cleanup := createNoopDevice(t)
	defer cleanup()

	cfg := SurfaceConfig{
		Device: device,
		Width:  32,
		Height: 32,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Acquire: func() (hal.TextureView, error) {
			return nil, errors.New("swapchain out of date")
		},
		Present: func() error { return nil },
	}
	target, err := NewSurfaceTarget(cfg)
	if err != nil {
		t.Fatalf("NewSurfaceTarget failed: %v", err)
	}
	defer target.Destroy()

	if _, _, err := target.AcquireViews(); !errors.Is(err, gpu.ErrSurfaceLost) {
		t.Errorf("failing acquire: %v, want ErrSurfaceLost", err)
	}
}

func TestSurfaceTargetResize(t *testing.T) {
	device, cleanup := createNoopDevice(t)
	defer cleanup()

	surf := newFakeSurface(t, device)
	defer surf.color.Destroy()

	target, err := NewSurfaceTarget(surf.config())
	if err != nil {
		t.Fatalf("NewSurfaceTarget failed: %v", err)
	}
	defer target.Destroy()

	target.Invalidate()
	if err := target.Resize(128, 96); err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if w, h := target.Size(); w != 128 || h != 96 {
		t.Errorf("Size after resize = %dx%d", w, h)
	}

	// Resize clears the pending loss.
	if _, _, err := target.AcquireViews(); err != nil {
		t.Fatalf("acquire after resize: %v", err)
	}

	if err := target.Resize(0, 96); !errors.Is(err, gpu.ErrInvalidState) {
		t.Errorf("zero resize: %v", err)
	}
}

func TestSurfaceTargetConfigValidation(t *testing.T) {
	device, cleanup := createNoopDevice(t)
	defer cleanup()

	acquire := func() (hal.TextureView, error) { return nil, nil }
	present := func() error { return nil }

	tests := []struct {
		name string
		cfg  SurfaceConfig
	}{
		{"nil device", SurfaceConfig{Width: 1, Height: 1, Acquire: acquire, Present: present}},
		{"nil acquire", SurfaceConfig{Device: device, Width: 1, Height: 1, Present: present}},
		{"nil present", SurfaceConfig{Device: device, Width: 1, Height: 1, Acquire: acquire}},
		{"zero size", SurfaceConfig{Device: device, Acquire: acquire, Present: present}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSurfaceTarget(tt.cfg); !errors.Is(err, gpu.ErrInvalidState) {
				t.Errorf("err = %v, want ErrInvalidState", err)
			}
		})
	}
}
