package g3d

import "github.com/gogpu/g3d/internal/gpu"

// Vertex is one point of a mesh in the renderer's interleaved layout:
// position, texture coordinates, normal and a 4-component tangent
// whose w holds the bitangent handedness (+1 or -1).
//
// Meshes drawn with flat or diffuse-only materials may leave UV,
// Normal or Tangent zeroed; the corresponding attributes are simply
// not read by those shader variants.
type Vertex struct {
	Position Vec3
	UV       Vec2
	Normal   Vec3
	Tangent  Vec4
}

// flatten interleaves vertices into the packed float layout the GPU
// buffers expect.
func flatten(vertices []Vertex) []float32 {
	out := make([]float32, 0, len(vertices)*gpu.VertexFloats)
	for _, v := range vertices {
		out = append(out,
			v.Position.X, v.Position.Y, v.Position.Z,
			v.UV.X, v.UV.Y,
			v.Normal.X, v.Normal.Y, v.Normal.Z,
			v.Tangent.X, v.Tangent.Y, v.Tangent.Z, v.Tangent.W,
		)
	}
	return out
}

// Mesh is a GPU-resident triangle mesh. Immutable after creation;
// valid until DestroyMesh or device loss.
type Mesh struct {
	g *gpu.Mesh
}

// VertexCount returns the number of vertices uploaded.
func (m *Mesh) VertexCount() uint32 { return m.g.VertexCount() }

// IndexCount returns the number of indices uploaded.
func (m *Mesh) IndexCount() uint32 { return m.g.IndexCount() }

// Label returns the debug label given at creation.
func (m *Mesh) Label() string { return m.g.Label() }
