// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import "github.com/gogpu/g3d"

// Triangle returns a single triangle in the z=0 plane, facing +Z,
// with corners at (-1,-1), (1,-1) and (0,1).
func Triangle() ([]g3d.Vertex, []uint32) {
	n := g3d.V3(0, 0, 1)
	t := g3d.V4(1, 0, 0, 1)
	vertices := []g3d.Vertex{
		{Position: g3d.V3(-1, -1, 0), UV: g3d.V2(0, 1), Normal: n, Tangent: t},
		{Position: g3d.V3(1, -1, 0), UV: g3d.V2(1, 1), Normal: n, Tangent: t},
		{Position: g3d.V3(0, 1, 0), UV: g3d.V2(0.5, 0), Normal: n, Tangent: t},
	}
	return vertices, []uint32{0, 1, 2}
}

// Plane returns a unit quad in the y=0 plane, facing +Y, spanning
// [-0.5, 0.5] on x and z.
func Plane() ([]g3d.Vertex, []uint32) {
	n := g3d.V3(0, 1, 0)
	t := g3d.V4(1, 0, 0, 1)
	vertices := []g3d.Vertex{
		{Position: g3d.V3(-0.5, 0, 0.5), UV: g3d.V2(0, 1), Normal: n, Tangent: t},
		{Position: g3d.V3(0.5, 0, 0.5), UV: g3d.V2(1, 1), Normal: n, Tangent: t},
		{Position: g3d.V3(0.5, 0, -0.5), UV: g3d.V2(1, 0), Normal: n, Tangent: t},
		{Position: g3d.V3(-0.5, 0, -0.5), UV: g3d.V2(0, 0), Normal: n, Tangent: t},
	}
	return vertices, []uint32{0, 1, 2, 0, 2, 3}
}

// Cube returns a unit cube centered at the origin, 24 vertices with
// per-face normals, UVs and tangents.
func Cube() ([]g3d.Vertex, []uint32) {
	type face struct {
		normal  g3d.Vec3
		tangent g3d.Vec3
		// corners in CCW order seen from outside
		corners [4]g3d.Vec3
	}
	h := float32(0.5)
	faces := []face{
		{ // +Z
			normal: g3d.V3(0, 0, 1), tangent: g3d.V3(1, 0, 0),
			corners: [4]g3d.Vec3{{X: -h, Y: -h, Z: h}, {X: h, Y: -h, Z: h}, {X: h, Y: h, Z: h}, {X: -h, Y: h, Z: h}},
		},
		{ // -Z
			normal: g3d.V3(0, 0, -1), tangent: g3d.V3(-1, 0, 0),
			corners: [4]g3d.Vec3{{X: h, Y: -h, Z: -h}, {X: -h, Y: -h, Z: -h}, {X: -h, Y: h, Z: -h}, {X: h, Y: h, Z: -h}},
		},
		{ // +X
			normal: g3d.V3(1, 0, 0), tangent: g3d.V3(0, 0, -1),
			corners: [4]g3d.Vec3{{X: h, Y: -h, Z: h}, {X: h, Y: -h, Z: -h}, {X: h, Y: h, Z: -h}, {X: h, Y: h, Z: h}},
		},
		{ // -X
			normal: g3d.V3(-1, 0, 0), tangent: g3d.V3(0, 0, 1),
			corners: [4]g3d.Vec3{{X: -h, Y: -h, Z: -h}, {X: -h, Y: -h, Z: h}, {X: -h, Y: h, Z: h}, {X: -h, Y: h, Z: -h}},
		},
		{ // +Y
			normal: g3d.V3(0, 1, 0), tangent: g3d.V3(1, 0, 0),
			corners: [4]g3d.Vec3{{X: -h, Y: h, Z: h}, {X: h, Y: h, Z: h}, {X: h, Y: h, Z: -h}, {X: -h, Y: h, Z: -h}},
		},
		{ // -Y
			normal: g3d.V3(0, -1, 0), tangent: g3d.V3(1, 0, 0),
			corners: [4]g3d.Vec3{{X: -h, Y: -h, Z: -h}, {X: h, Y: -h, Z: -h}, {X: h, Y: -h, Z: h}, {X: -h, Y: -h, Z: h}},
		},
	}

	uvs := [4]g3d.Vec2{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}
	vertices := make([]g3d.Vertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range faces {
		base := uint32(len(vertices))
		for i, c := range f.corners {
			vertices = append(vertices, g3d.Vertex{
				Position: c,
				UV:       uvs[i],
				Normal:   f.normal,
				Tangent:  g3d.Vec4From(f.tangent, 1),
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}
