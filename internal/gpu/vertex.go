package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"
)

// Vertex layout. Every mesh is uploaded with the full interleaved
// attribute set; pipeline variants declare the subset of attributes
// their shader reads, all over the same stride.
//
//	offset  0: position  3 x f32
//	offset 12: uv        2 x f32
//	offset 20: normal    3 x f32
//	offset 32: tangent   4 x f32 (w = bitangent handedness sign)
const (
	VertexFloats = 12
	VertexStride = VertexFloats * 4

	vertexOffsetPosition = 0
	vertexOffsetUV       = 12
	vertexOffsetNormal   = 20
	vertexOffsetTangent  = 32
)

// Shader attribute locations, shared by every variant.
const (
	locPosition = 0
	locUV       = 1
	locNormal   = 2
	locTangent  = 3
)

// vertexAttributes returns the attribute list for a material
// signature. Flat shading reads position and normal; textured variants
// add UV; normal mapping adds the tangent.
func vertexAttributes(sig MaterialSignature) []gputypes.VertexAttribute {
	attrs := []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x3, Offset: vertexOffsetPosition, ShaderLocation: locPosition},
	}
	if sig.IsTextured {
		attrs = append(attrs, gputypes.VertexAttribute{
			Format: gputypes.VertexFormatFloat32x2, Offset: vertexOffsetUV, ShaderLocation: locUV,
		})
	}
	attrs = append(attrs, gputypes.VertexAttribute{
		Format: gputypes.VertexFormatFloat32x3, Offset: vertexOffsetNormal, ShaderLocation: locNormal,
	})
	if sig.HasNormalMap {
		attrs = append(attrs, gputypes.VertexAttribute{
			Format: gputypes.VertexFormatFloat32x4, Offset: vertexOffsetTangent, ShaderLocation: locTangent,
		})
	}
	return attrs
}

// vertexBufferLayout returns the single-buffer vertex layout for a
// material signature.
func vertexBufferLayout(sig MaterialSignature) gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: VertexStride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  vertexAttributes(sig),
	}
}

// packFloats serializes float32 data little-endian, the byte order
// GPU buffers expect.
func packFloats(dst []byte, src []float32) {
	for i, f := range src {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(f))
	}
}

// packUint32 serializes uint32 data little-endian.
func packUint32(dst []byte, src []uint32) {
	for i, v := range src {
		binary.LittleEndian.PutUint32(dst[i*4:], v)
	}
}
