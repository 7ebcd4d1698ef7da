package geometry

import (
	"math"
	"testing"
)

func TestVec3Arithmetic(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, -2, 1}

	if got := a.Add(b); got != (Vec3{5, 0, 4}) {
		t.Fatalf("Add = %+v", got)
	}
	if got := a.Sub(b); got != (Vec3{-3, 4, 2}) {
		t.Fatalf("Sub = %+v", got)
	}
	if got := a.Dot(b); got != 3 {
		t.Fatalf("Dot = %v, want 3", got)
	}
}

func TestVec3Norm(t *testing.T) {
	v := Vec3{3, 4, 0}
	if got := v.Norm(); math.Abs(got-5) > 1e-9 {
		t.Fatalf("Norm = %v, want 5", got)
	}
	if got := v.NormXY(); math.Abs(got-5) > 1e-9 {
		t.Fatalf("NormXY = %v, want 5", got)
	}
}

func TestVec3UnitOfZero(t *testing.T) {
	if got := (Vec3{}).Unit(); got != (Vec3{}) {
		t.Fatalf("Unit of zero vector = %+v, want zero", got)
	}
}

func TestNormalizeAngle(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		360:  0,
		361:  1,
		-1:   359,
		-361: 359,
		720:  0,
	}
	for in, want := range cases {
		if got := NormalizeAngle(in); math.Abs(got-want) > 1e-9 {
			t.Errorf("NormalizeAngle(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestNormalizeAngleIdempotent(t *testing.T) {
	for _, a := range []float64{0, 45, 179.999, 180, 270, -30, 725} {
		once := NormalizeAngle(a)
		twice := NormalizeAngle(once)
		if once != twice {
			t.Errorf("NormalizeAngle not idempotent at %v: %v vs %v", a, once, twice)
		}
	}
}

func TestFormatYawAngle(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		180:  180,
		181:  -179,
		-180: 180,
		359:  -1,
		540:  180,
	}
	for in, want := range cases {
		if got := FormatYawAngle(in); math.Abs(got-want) > 1e-9 {
			t.Errorf("FormatYawAngle(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestFormatYawAngleIdempotent(t *testing.T) {
	for _, a := range []float64{0, 45, -45, 179, 180, -180, 270, 725} {
		once := FormatYawAngle(a)
		twice := FormatYawAngle(once)
		if once != twice {
			t.Errorf("FormatYawAngle not idempotent at %v: %v vs %v", a, once, twice)
		}
	}
}

func TestHeadingXY(t *testing.T) {
	if got := HeadingXY(Vec3{0, 1, 0}); math.Abs(got-0) > 1e-9 {
		t.Errorf("HeadingXY north = %v, want 0", got)
	}
	if got := HeadingXY(Vec3{1, 0, 0}); math.Abs(got-90) > 1e-9 {
		t.Errorf("HeadingXY east = %v, want 90", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(100, -45, 45); got != 45 {
		t.Errorf("Clamp high = %v, want 45", got)
	}
	if got := Clamp(-100, -45, 45); got != -45 {
		t.Errorf("Clamp low = %v, want -45", got)
	}
}
