package g3d

import "math"

// Mat4 is a 4x4 transformation matrix in column-major order, the layout
// WGSL declares for mat4x4<f32>. Element m[col*4+row] is row `row` of
// column `col`:
//
//	| m[0]  m[4]  m[8]   m[12] |
//	| m[1]  m[5]  m[9]   m[13] |
//	| m[2]  m[6]  m[10]  m[14] |
//	| m[3]  m[7]  m[11]  m[15] |
//
// Because the layout already matches the shader side, a Mat4 is packed
// into uniform buffers byte-for-byte.
type Mat4 [16]float32

// Mat4Identity returns the identity matrix.
func Mat4Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mat4Translate returns a translation matrix.
func Mat4Translate(t Vec3) Mat4 {
	m := Mat4Identity()
	m[12] = t.X
	m[13] = t.Y
	m[14] = t.Z
	return m
}

// Mat4Scale returns a scaling matrix.
func Mat4Scale(s Vec3) Mat4 {
	var m Mat4
	m[0] = s.X
	m[5] = s.Y
	m[10] = s.Z
	m[15] = 1
	return m
}

// Mat4RotateX returns a rotation matrix around the X axis (angle in radians).
func Mat4RotateX(angle float32) Mat4 {
	sin, cos := sincos32(angle)
	m := Mat4Identity()
	m[5] = cos
	m[6] = sin
	m[9] = -sin
	m[10] = cos
	return m
}

// Mat4RotateY returns a rotation matrix around the Y axis (angle in radians).
func Mat4RotateY(angle float32) Mat4 {
	sin, cos := sincos32(angle)
	m := Mat4Identity()
	m[0] = cos
	m[2] = -sin
	m[8] = sin
	m[10] = cos
	return m
}

// Mat4RotateZ returns a rotation matrix around the Z axis (angle in radians).
func Mat4RotateZ(angle float32) Mat4 {
	sin, cos := sincos32(angle)
	m := Mat4Identity()
	m[0] = cos
	m[1] = sin
	m[4] = -sin
	m[5] = cos
	return m
}

// Mul multiplies two matrices (m * other). Applying the result to a
// vector applies other first, then m.
func (m Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * other[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// MulVec4 applies the transformation to a vector.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		X: m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12]*v.W,
		Y: m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13]*v.W,
		Z: m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14]*v.W,
		W: m[3]*v.X + m[7]*v.Y + m[11]*v.Z + m[15]*v.W,
	}
}

// TransformPoint applies the transformation to a position (w=1) and
// returns the projected 3D result.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	out := m.MulVec4(Vec4From(p, 1))
	if out.W != 0 && out.W != 1 {
		return Vec3{X: out.X / out.W, Y: out.Y / out.W, Z: out.Z / out.W}
	}
	return out.XYZ()
}

// Transpose returns the transposed matrix.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out[row*4+col] = m[col*4+row]
		}
	}
	return out
}

// Approx returns true if two matrices are approximately equal within epsilon.
func (m Mat4) Approx(other Mat4, epsilon float32) bool {
	for i := range m {
		if abs32(m[i]-other[i]) >= epsilon {
			return false
		}
	}
	return true
}

// Perspective returns a right-handed perspective projection matrix with
// a [0, 1] depth range, the convention WebGPU clip space uses. fovy is
// the vertical field of view in radians; aspect is width/height.
//
// The characteristic elements for near/far planes n and f are
// m[10] = f/(n-f) and m[14] = -(f*n)/(f-n); m[15] is always zero.
func Perspective(fovy, aspect, near, far float32) Mat4 {
	f := float32(1.0 / math.Tan(float64(fovy)/2))
	var m Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = far / (near - far)
	m[11] = -1
	m[14] = -(far * near) / (far - near)
	return m
}

// LookAt returns a right-handed view matrix positioned at eye, looking
// at center, with the given up direction.
func LookAt(eye, center, up Vec3) Mat4 {
	fwd := center.Sub(eye).Normalize()
	right := fwd.Cross(up).Normalize()
	camUp := right.Cross(fwd)

	var m Mat4
	m[0] = right.X
	m[4] = right.Y
	m[8] = right.Z
	m[1] = camUp.X
	m[5] = camUp.Y
	m[9] = camUp.Z
	m[2] = -fwd.X
	m[6] = -fwd.Y
	m[10] = -fwd.Z
	m[12] = -right.Dot(eye)
	m[13] = -camUp.Dot(eye)
	m[14] = fwd.Dot(eye)
	m[15] = 1
	return m
}

func sincos32(angle float32) (sin, cos float32) {
	s, c := math.Sincos(float64(angle))
	return float32(s), float32(c)
}
