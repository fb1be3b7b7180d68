package g3d

import (
	"math"
	"testing"
)

func TestVec3Arithmetic(t *testing.T) {
	a := V3(1, 2, 3)
	b := V3(4, -5, 6)

	if got := a.Add(b); !got.Approx(V3(5, -3, 9), testEpsilon) {
		t.Errorf("Add = %v", got)
	}
	if got := a.Sub(b); !got.Approx(V3(-3, 7, -3), testEpsilon) {
		t.Errorf("Sub = %v", got)
	}
	if got := a.Mul(2); !got.Approx(V3(2, 4, 6), testEpsilon) {
		t.Errorf("Mul = %v", got)
	}
	if got := a.Neg(); !got.Approx(V3(-1, -2, -3), testEpsilon) {
		t.Errorf("Neg = %v", got)
	}
	if got := a.Dot(b); !approxEq(got, 1*4-2*5+3*6) {
		t.Errorf("Dot = %v", got)
	}
}

func TestVec3Cross(t *testing.T) {
	x, y, z := V3(1, 0, 0), V3(0, 1, 0), V3(0, 0, 1)
	if got := x.Cross(y); !got.Approx(z, testEpsilon) {
		t.Errorf("x cross y = %v, want z", got)
	}
	if got := y.Cross(x); !got.Approx(z.Neg(), testEpsilon) {
		t.Errorf("y cross x = %v, want -z", got)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := V3(3, 4, 0).Normalize()
	if !approxEq(v.Length(), 1) {
		t.Errorf("normalized length = %v", v.Length())
	}
	if !v.Approx(V3(0.6, 0.8, 0), testEpsilon) {
		t.Errorf("Normalize = %v", v)
	}

	// The zero vector stays zero instead of producing NaNs.
	zero := V3(0, 0, 0).Normalize()
	if !zero.IsZero() {
		t.Errorf("Normalize(0) = %v", zero)
	}
}

func TestVec3Lerp(t *testing.T) {
	a, b := V3(0, 0, 0), V3(10, -10, 2)
	if got := a.Lerp(b, 0); !got.Approx(a, testEpsilon) {
		t.Errorf("Lerp(0) = %v", got)
	}
	if got := a.Lerp(b, 1); !got.Approx(b, testEpsilon) {
		t.Errorf("Lerp(1) = %v", got)
	}
	if got := a.Lerp(b, 0.5); !got.Approx(V3(5, -5, 1), testEpsilon) {
		t.Errorf("Lerp(0.5) = %v", got)
	}
}

func TestVec4Helpers(t *testing.T) {
	v := Vec4From(V3(1, 2, 3), 4)
	if v.W != 4 {
		t.Errorf("W = %v", v.W)
	}
	if got := v.XYZ(); !got.Approx(V3(1, 2, 3), testEpsilon) {
		t.Errorf("XYZ = %v", got)
	}
	if got := v.Dot(V4(1, 1, 1, 1)); !approxEq(got, 10) {
		t.Errorf("Dot = %v", got)
	}
}

func TestVec2Arithmetic(t *testing.T) {
	a := V2(1, 2)
	if got := a.Add(V2(3, 4)); got != V2(4, 6) {
		t.Errorf("Add = %v", got)
	}
	if got := a.Sub(V2(3, 4)); got != V2(-2, -2) {
		t.Errorf("Sub = %v", got)
	}
	if got := a.Mul(float32(math.Pi)); !approxEq(got.X, float32(math.Pi)) {
		t.Errorf("Mul = %v", got)
	}
}
