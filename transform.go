package g3d

// Transform is a world-space placement: translation, Euler rotation
// and per-axis scale. The scene owns transforms and mutates them
// between frames; the renderer reads Matrix() once per staged object.
type Transform struct {
	Position Vec3

	// Rotation holds Euler angles in radians, applied in Z, Y, X
	// order (roll, then yaw, then pitch).
	Rotation Vec3

	Scale Vec3
}

// NewTransform returns an identity transform.
func NewTransform() Transform {
	return Transform{Scale: V3(1, 1, 1)}
}

// Matrix composes the transform into a model matrix:
// translate * rotateX * rotateY * rotateZ * scale.
func (t Transform) Matrix() Mat4 {
	scale := t.Scale
	if scale.IsZero() {
		scale = V3(1, 1, 1)
	}
	m := Mat4Scale(scale)
	if t.Rotation.Z != 0 {
		m = Mat4RotateZ(t.Rotation.Z).Mul(m)
	}
	if t.Rotation.Y != 0 {
		m = Mat4RotateY(t.Rotation.Y).Mul(m)
	}
	if t.Rotation.X != 0 {
		m = Mat4RotateX(t.Rotation.X).Mul(m)
	}
	return Mat4Translate(t.Position).Mul(m)
}
