//go:build !nogpu

package gpu

import (
	"errors"
	"testing"
)

func testCamera() CameraUniform {
	return CameraUniform{Position: [4]float32{0, 0, 3, 1}}
}

func testLight() LightUniform {
	return LightUniform{Direction: [4]float32{-1, -1, -1, 0}, Color: [4]float32{1, 1, 1, 1}}
}

func TestUniformStateClampsFramesInFlight(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	pipelines := NewPipelineCache(device, 0, 0)
	defer pipelines.Clear()

	tests := []struct {
		in   int
		want int
	}{
		{0, MinFramesInFlight},
		{1, MinFramesInFlight},
		{2, 2},
		{3, 3},
		{7, MaxFramesInFlight},
	}
	for _, tt := range tests {
		u, err := NewUniformState(device, queue, pipelines, tt.in)
		if err != nil {
			t.Fatalf("NewUniformState(%d) failed: %v", tt.in, err)
		}
		if got := u.SlotCount(); got != tt.want {
			t.Errorf("SlotCount for %d = %d, want %d", tt.in, got, tt.want)
		}
		u.Destroy()
	}
}

func TestStageObjectOffsets(t *testing.T) {
	_, _, uniforms, teardown := createTestStack(t, 2)
	defer teardown()

	token, err := uniforms.BeginFrame(testCamera(), testLight())
	if err != nil {
		t.Fatalf("BeginFrame failed: %v", err)
	}
	defer uniforms.Abort(token)

	for i := 0; i < 5; i++ {
		offset, err := uniforms.StageObject(token, seqMat(float32(i)))
		if err != nil {
			t.Fatalf("StageObject %d failed: %v", i, err)
		}
		if want := uint32(i) * ModelUniformStride; offset != want {
			t.Errorf("object %d offset = %d, want %d", i, offset, want)
		}
	}
	if token.ObjectCount() != 5 {
		t.Errorf("ObjectCount = %d, want 5", token.ObjectCount())
	}
}

func TestFinalizedTokenRejected(t *testing.T) {
	_, _, uniforms, teardown := createTestStack(t, 2)
	defer teardown()

	token, err := uniforms.BeginFrame(testCamera(), testLight())
	if err != nil {
		t.Fatalf("BeginFrame failed: %v", err)
	}
	bindings, err := uniforms.EndFrame(token)
	if err != nil {
		t.Fatalf("EndFrame failed: %v", err)
	}
	defer bindings.Cancel()

	if _, err := uniforms.StageObject(token, seqMat(0)); !errors.Is(err, ErrTokenFinalized) {
		t.Errorf("StageObject after EndFrame = %v, want ErrTokenFinalized", err)
	}
	if _, err := uniforms.EndFrame(token); !errors.Is(err, ErrTokenFinalized) {
		t.Errorf("second EndFrame = %v, want ErrTokenFinalized", err)
	}
}

func TestSlotReuseAfterSubmit(t *testing.T) {
	_, _, uniforms, teardown := createTestStack(t, 2)
	defer teardown()

	// Cycle more frames than there are slots. Each frame submits, so
	// acquisition reclaims the oldest slot by waiting on its fence
	// (signaled immediately on the noop backend).
	for frame := 0; frame < 6; frame++ {
		token, err := uniforms.BeginFrame(testCamera(), testLight())
		if err != nil {
			t.Fatalf("frame %d: BeginFrame failed: %v", frame, err)
		}
		if _, err := uniforms.StageObject(token, seqMat(float32(frame))); err != nil {
			t.Fatalf("frame %d: StageObject failed: %v", frame, err)
		}
		bindings, err := uniforms.EndFrame(token)
		if err != nil {
			t.Fatalf("frame %d: EndFrame failed: %v", frame, err)
		}
		fence, value := bindings.SubmitInfo()
		if fence == nil {
			t.Fatalf("frame %d: nil fence", frame)
		}
		if value == 0 {
			t.Fatalf("frame %d: zero fence value", frame)
		}
	}
}

func TestSlotExhaustionWithoutSubmit(t *testing.T) {
	_, _, uniforms, teardown := createTestStack(t, 2)
	defer teardown()

	// Hold both slots open without submitting. A third acquisition has
	// nothing to wait for and must fail instead of blocking forever.
	t1, err := uniforms.BeginFrame(testCamera(), testLight())
	if err != nil {
		t.Fatalf("first BeginFrame failed: %v", err)
	}
	t2, err := uniforms.BeginFrame(testCamera(), testLight())
	if err != nil {
		t.Fatalf("second BeginFrame failed: %v", err)
	}

	_, err = uniforms.BeginFrame(testCamera(), testLight())
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("third BeginFrame = %v, want ErrInvalidState", err)
	}

	// Releasing one slot makes acquisition succeed again.
	uniforms.Abort(t1)
	t3, err := uniforms.BeginFrame(testCamera(), testLight())
	if err != nil {
		t.Fatalf("BeginFrame after Abort failed: %v", err)
	}
	uniforms.Abort(t2)
	uniforms.Abort(t3)
}

func TestStereoTokenCarriesMode(t *testing.T) {
	_, _, uniforms, teardown := createTestStack(t, 2)
	defer teardown()

	token, err := uniforms.BeginFrameStereo(StereoCameraUniform{}, testLight())
	if err != nil {
		t.Fatalf("BeginFrameStereo failed: %v", err)
	}
	if !token.Stereo() {
		t.Error("stereo token reports mono")
	}
	bindings, err := uniforms.EndFrame(token)
	if err != nil {
		t.Fatalf("EndFrame failed: %v", err)
	}
	if !bindings.Stereo() {
		t.Error("stereo bindings report mono")
	}
	bindings.Cancel()
}

func TestModelBindGroupCachedPerOffset(t *testing.T) {
	_, _, uniforms, teardown := createTestStack(t, 2)
	defer teardown()

	token, err := uniforms.BeginFrame(testCamera(), testLight())
	if err != nil {
		t.Fatalf("BeginFrame failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := uniforms.StageObject(token, seqMat(float32(i))); err != nil {
			t.Fatalf("StageObject failed: %v", err)
		}
	}
	bindings, err := uniforms.EndFrame(token)
	if err != nil {
		t.Fatalf("EndFrame failed: %v", err)
	}
	defer bindings.Cancel()

	first, err := bindings.ModelBindGroup(ModelUniformStride)
	if err != nil {
		t.Fatalf("ModelBindGroup failed: %v", err)
	}
	again, err := bindings.ModelBindGroup(ModelUniformStride)
	if err != nil {
		t.Fatalf("ModelBindGroup (repeat) failed: %v", err)
	}
	if first != again {
		t.Error("bind group for the same offset was rebuilt")
	}
}
