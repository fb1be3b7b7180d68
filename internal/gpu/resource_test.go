//go:build !nogpu

package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestCreateMeshValidation(t *testing.T) {
	_, resources, _, teardown := createTestStack(t, 2)
	defer teardown()

	valid := triangleVertices()

	tests := []struct {
		name     string
		vertices []float32
		indices  []uint32
		wantErr  error
	}{
		{"valid triangle", valid, []uint32{0, 1, 2}, nil},
		{"no vertices", nil, []uint32{0, 1, 2}, ErrInvalidGeometry},
		{"ragged vertex data", valid[:13], []uint32{0}, ErrInvalidGeometry},
		{"no indices", valid, nil, ErrInvalidGeometry},
		{"partial triangle", valid, []uint32{0, 1}, ErrInvalidGeometry},
		{"index out of range", valid, []uint32{0, 1, 3}, ErrInvalidGeometry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh, err := resources.CreateMesh(tt.name, tt.vertices, tt.indices)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateMesh = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateMesh failed: %v", err)
			}
			if mesh.VertexCount() != 3 {
				t.Errorf("VertexCount = %d, want 3", mesh.VertexCount())
			}
			if mesh.IndexCount() != 3 {
				t.Errorf("IndexCount = %d, want 3", mesh.IndexCount())
			}
		})
	}
}

func TestCreateTextureFormatSupport(t *testing.T) {
	_, resources, _, teardown := createTestStack(t, 2)
	defer teardown()

	tests := []struct {
		name    string
		format  gputypes.TextureFormat
		bpp     int
		wantErr bool
	}{
		{"rgba8", gputypes.TextureFormatRGBA8Unorm, 4, false},
		{"rgba8 srgb", gputypes.TextureFormatRGBA8UnormSrgb, 4, false},
		{"bgra8", gputypes.TextureFormatBGRA8Unorm, 4, false},
		{"r8 mask", gputypes.TextureFormatR8Unorm, 1, false},
		{"float unsupported", gputypes.TextureFormatRGBA32Float, 16, true},
		{"depth unsupported", gputypes.TextureFormatDepth32Float, 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pixels := make([]byte, 4*4*tt.bpp)
			tex, err := resources.CreateTexture(tt.name, pixels, 4, 4, tt.format, SamplerOptions{})
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Fatalf("CreateTexture = %v, want ErrUnsupportedFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateTexture failed: %v", err)
			}
			if tex.Width() != 4 || tex.Height() != 4 {
				t.Errorf("size = %dx%d, want 4x4", tex.Width(), tex.Height())
			}
		})
	}
}

func TestCreateTexturePixelSizeMismatch(t *testing.T) {
	_, resources, _, teardown := createTestStack(t, 2)
	defer teardown()

	_, err := resources.CreateTexture("short", make([]byte, 10), 4, 4,
		gputypes.TextureFormatRGBA8Unorm, SamplerOptions{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("CreateTexture with short pixel data = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSamplerDeduplication(t *testing.T) {
	_, resources, _, teardown := createTestStack(t, 2)
	defer teardown()

	pixels := make([]byte, 4*4*4)
	opts := SamplerOptions{Filter: FilterNearest, Wrap: WrapClampToEdge}
	if _, err := resources.CreateTexture("a", pixels, 4, 4, gputypes.TextureFormatRGBA8Unorm, opts); err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	if _, err := resources.CreateTexture("b", pixels, 4, 4, gputypes.TextureFormatRGBA8Unorm, opts); err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	if _, err := resources.CreateTexture("c", pixels, 4, 4, gputypes.TextureFormatRGBA8Unorm, SamplerOptions{}); err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}

	if got := len(resources.samplers); got != 2 {
		t.Errorf("distinct samplers = %d, want 2", got)
	}
}

func TestTextureRefCounting(t *testing.T) {
	_, resources, _, teardown := createTestStack(t, 2)
	defer teardown()

	pixels := make([]byte, 4*4*4)
	tex, err := resources.CreateTexture("refcounted", pixels, 4, 4,
		gputypes.TextureFormatRGBA8Unorm, SamplerOptions{})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	if tex.Refs() != 1 {
		t.Fatalf("Refs after create = %d, want 1", tex.Refs())
	}

	mat, err := resources.CreateMaterial(MaterialDescriptor{Label: "m", Diffuse: tex})
	if err != nil {
		t.Fatalf("CreateMaterial failed: %v", err)
	}
	if tex.Refs() != 2 {
		t.Errorf("Refs after material = %d, want 2", tex.Refs())
	}

	// Dropping the creator's reference while the material still binds
	// the texture must keep the GPU objects alive.
	resources.Release(tex)
	if tex.Refs() != 1 {
		t.Errorf("Refs after creator release = %d, want 1", tex.Refs())
	}
	if tex.destroyed.Load() {
		t.Fatal("texture destroyed while a material still references it")
	}

	resources.DestroyMaterial(mat)
	if tex.Refs() != 0 {
		t.Errorf("Refs after material destroy = %d, want 0", tex.Refs())
	}
	if !tex.destroyed.Load() {
		t.Error("texture not destroyed after last reference")
	}
}

func TestMaterialSignatureFromTextures(t *testing.T) {
	_, resources, _, teardown := createTestStack(t, 2)
	defer teardown()

	pixels := make([]byte, 4*4*4)
	diffuse, err := resources.CreateTexture("diffuse", pixels, 4, 4,
		gputypes.TextureFormatRGBA8UnormSrgb, SamplerOptions{})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	normal, err := resources.CreateTexture("normal", pixels, 4, 4,
		gputypes.TextureFormatRGBA8Unorm, SamplerOptions{})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}

	tests := []struct {
		name string
		desc MaterialDescriptor
		want MaterialSignature
	}{
		{"flat", MaterialDescriptor{Label: "flat"}, SignatureFor(false, false)},
		{"diffuse only", MaterialDescriptor{Label: "d", Diffuse: diffuse}, SignatureFor(true, false)},
		{"normal only", MaterialDescriptor{Label: "n", NormalMap: normal}, SignatureFor(false, true)},
		{"both", MaterialDescriptor{Label: "dn", Diffuse: diffuse, NormalMap: normal}, SignatureFor(true, true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mat, err := resources.CreateMaterial(tt.desc)
			if err != nil {
				t.Fatalf("CreateMaterial failed: %v", err)
			}
			if mat.Signature() != tt.want {
				t.Errorf("Signature = %v, want %v", mat.Signature(), tt.want)
			}
		})
	}
}

func TestUpdateBufferBounds(t *testing.T) {
	_, resources, _, teardown := createTestStack(t, 2)
	defer teardown()

	mesh, err := resources.CreateMesh("m", triangleVertices(), []uint32{0, 1, 2})
	if err != nil {
		t.Fatalf("CreateMesh failed: %v", err)
	}

	if err := resources.UpdateBuffer(mesh, 0, make([]byte, VertexStride)); err != nil {
		t.Errorf("in-bounds UpdateBuffer failed: %v", err)
	}
	if err := resources.UpdateBuffer(mesh, 3*VertexStride-4, make([]byte, 8)); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("out-of-bounds UpdateBuffer = %v, want ErrInvalidGeometry", err)
	}
}

func TestInvalidateAllMarksHandlesStale(t *testing.T) {
	_, resources, _, teardown := createTestStack(t, 2)
	defer teardown()

	mesh, err := resources.CreateMesh("m", triangleVertices(), []uint32{0, 1, 2})
	if err != nil {
		t.Fatalf("CreateMesh failed: %v", err)
	}
	mat, err := resources.CreateMaterial(MaterialDescriptor{Label: "flat"})
	if err != nil {
		t.Fatalf("CreateMaterial failed: %v", err)
	}

	before := resources.Epoch()
	resources.InvalidateAll()
	if resources.Epoch() == before {
		t.Error("epoch did not advance")
	}

	if err := resources.checkMesh(mesh); !errors.Is(err, ErrDeviceLost) && !errors.Is(err, ErrResourceDestroyed) {
		t.Errorf("checkMesh after invalidation = %v, want a stale-handle error", err)
	}
	if err := resources.checkMaterial(mat); !errors.Is(err, ErrDeviceLost) && !errors.Is(err, ErrResourceDestroyed) {
		t.Errorf("checkMaterial after invalidation = %v, want a stale-handle error", err)
	}
}

func TestDestroyedMeshRejected(t *testing.T) {
	_, resources, _, teardown := createTestStack(t, 2)
	defer teardown()

	mesh, err := resources.CreateMesh("m", triangleVertices(), []uint32{0, 1, 2})
	if err != nil {
		t.Fatalf("CreateMesh failed: %v", err)
	}
	resources.DestroyMesh(mesh)
	if err := resources.checkMesh(mesh); !errors.Is(err, ErrResourceDestroyed) {
		t.Errorf("checkMesh after destroy = %v, want ErrResourceDestroyed", err)
	}
}
