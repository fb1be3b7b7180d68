package gpu

import (
	"strings"
	"testing"
)

func TestMaterialSignatureValidate(t *testing.T) {
	tests := []struct {
		name    string
		sig     MaterialSignature
		wantErr bool
	}{
		{"flat", MaterialSignature{}, false},
		{"diffuse", SignatureFor(true, false), false},
		{"normal", SignatureFor(false, true), false},
		{"diffuse+normal", SignatureFor(true, true), false},
		{"textured without textures", MaterialSignature{IsTextured: true}, true},
		{"diffuse without uv", MaterialSignature{HasDiffuseTexture: true}, true},
		{"normal without uv", MaterialSignature{HasNormalMap: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sig.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMaterialSignatureKeysDistinct(t *testing.T) {
	seen := map[uint8]MaterialSignature{}
	for _, sig := range AllSignatures() {
		k := sig.Key()
		if prev, ok := seen[k]; ok {
			t.Errorf("signatures %v and %v share key %d", prev, sig, k)
		}
		seen[k] = sig
	}
	if len(seen) != 4 {
		t.Errorf("distinct keys = %d, want 4", len(seen))
	}
}

func TestTargetKindViewCount(t *testing.T) {
	if got := TargetMono.ViewCount(); got != 1 {
		t.Errorf("mono ViewCount = %d, want 1", got)
	}
	if got := TargetStereo.ViewCount(); got != 2 {
		t.Errorf("stereo ViewCount = %d, want 2", got)
	}
}

func TestShaderSourceVariants(t *testing.T) {
	seen := map[string]PipelineKey{}
	for _, sig := range AllSignatures() {
		for _, kind := range []TargetKind{TargetMono, TargetStereo} {
			key := PipelineKey{Signature: sig, Target: kind}
			src := ShaderSource(key)
			if src == "" {
				t.Fatalf("empty source for %v/%v", sig, kind)
			}
			if prev, dup := seen[src]; dup {
				t.Errorf("variants %v/%v and %v/%v share source", sig, kind, prev.Signature, prev.Target)
			}
			seen[src] = key

			stereo := kind == TargetStereo
			if got := strings.Contains(src, "view_index"); got != stereo {
				t.Errorf("%v/%v: view_index present = %v, want %v", sig, kind, got, stereo)
			}
			if got := strings.Contains(src, "t_diffuse"); got != sig.HasDiffuseTexture {
				t.Errorf("%v/%v: diffuse sampling = %v, want %v", sig, kind, got, sig.HasDiffuseTexture)
			}
			if got := strings.Contains(src, "t_normal"); got != sig.HasNormalMap {
				t.Errorf("%v/%v: normal sampling = %v, want %v", sig, kind, got, sig.HasNormalMap)
			}
			if got := strings.Contains(src, "@location(1) uv"); got != sig.IsTextured {
				t.Errorf("%v/%v: uv attribute = %v, want %v", sig, kind, got, sig.IsTextured)
			}
		}
	}
}

func TestVertexAttributesPerSignature(t *testing.T) {
	tests := []struct {
		sig  MaterialSignature
		want int
	}{
		{SignatureFor(false, false), 2}, // position, normal
		{SignatureFor(true, false), 3},  // + uv
		{SignatureFor(false, true), 4},  // + uv, tangent
		{SignatureFor(true, true), 4},
	}
	for _, tt := range tests {
		attrs := vertexAttributes(tt.sig)
		if len(attrs) != tt.want {
			t.Errorf("%v: %d attributes, want %d", tt.sig, len(attrs), tt.want)
		}
		layout := vertexBufferLayout(tt.sig)
		if layout.ArrayStride != VertexStride {
			t.Errorf("%v: stride %d, want %d", tt.sig, layout.ArrayStride, VertexStride)
		}
	}
}
