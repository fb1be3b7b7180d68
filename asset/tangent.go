// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"fmt"

	"github.com/gogpu/g3d"
)

// GenerateTangents computes per-vertex tangents from positions, UVs
// and normals, writing them into the vertex slice. The w component
// records the bitangent handedness (+1 or -1).
//
// Tangents are accumulated per triangle, averaged across shared
// vertices and Gram-Schmidt orthogonalized against the normal.
// Triangles with degenerate UVs contribute nothing; a vertex touched
// by no valid triangle gets an arbitrary tangent perpendicular to its
// normal.
func GenerateTangents(vertices []g3d.Vertex, indices []uint32) error {
	if len(indices)%3 != 0 {
		return fmt.Errorf("asset: index count %d not a multiple of 3", len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			return fmt.Errorf("asset: index %d out of range for %d vertices", idx, len(vertices))
		}
	}

	tan := make([]g3d.Vec3, len(vertices))
	bitan := make([]g3d.Vec3, len(vertices))

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		v0, v1, v2 := vertices[i0], vertices[i1], vertices[i2]

		e1 := v1.Position.Sub(v0.Position)
		e2 := v2.Position.Sub(v0.Position)
		du1 := v1.UV.Sub(v0.UV)
		du2 := v2.UV.Sub(v0.UV)

		det := du1.X*du2.Y - du2.X*du1.Y
		if det == 0 {
			continue
		}
		f := 1 / det

		t := g3d.V3(
			f*(du2.Y*e1.X-du1.Y*e2.X),
			f*(du2.Y*e1.Y-du1.Y*e2.Y),
			f*(du2.Y*e1.Z-du1.Y*e2.Z),
		)
		b := g3d.V3(
			f*(du1.X*e2.X-du2.X*e1.X),
			f*(du1.X*e2.Y-du2.X*e1.Y),
			f*(du1.X*e2.Z-du2.X*e1.Z),
		)

		for _, idx := range [3]uint32{i0, i1, i2} {
			tan[idx] = tan[idx].Add(t)
			bitan[idx] = bitan[idx].Add(b)
		}
	}

	for i := range vertices {
		n := vertices[i].Normal
		t := tan[i]

		if t.IsZero() {
			t = perpendicular(n)
		}
		// Gram-Schmidt: remove the normal component, keep unit length.
		t = t.Sub(n.Mul(n.Dot(t))).Normalize()

		w := float32(1)
		if n.Cross(t).Dot(bitan[i]) < 0 {
			w = -1
		}
		vertices[i].Tangent = g3d.Vec4From(t, w)
	}
	return nil
}

// perpendicular picks any unit vector perpendicular to n.
func perpendicular(n g3d.Vec3) g3d.Vec3 {
	axis := g3d.V3(1, 0, 0)
	if abs(n.X) > 0.9 {
		axis = g3d.V3(0, 1, 0)
	}
	return n.Cross(axis)
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
