package math3d

import (
	"math"
	"testing"
)

func TestBoxExpandAndMeasure(t *testing.T) {
	b := EmptyBox()
	if !b.IsEmpty() {
		t.Fatal("EmptyBox should be empty")
	}
	b = b.ExpandByPoint(V3(-1, 2, 3)).ExpandByPoint(V3(3, -2, 5))

	if got := b.Center(); !got.ApproxEqual(V3(1, 0, 4), 1e-12) {
		t.Errorf("Center = %v, want (1,0,4)", got)
	}
	if got := b.Size(); !got.ApproxEqual(V3(4, 4, 2), 1e-12) {
		t.Errorf("Size = %v, want (4,4,2)", got)
	}
	if got := b.Size().MaxComponent(); got != 4 {
		t.Errorf("MaxComponent = %f, want 4", got)
	}
}

func TestBoxSinglePointHasZeroSize(t *testing.T) {
	b := EmptyBox().ExpandByPoint(V3(7, 7, 7))
	if b.IsEmpty() {
		t.Fatal("box with one point should not be empty")
	}
	if got := b.Size(); got != Zero3() {
		t.Errorf("Size = %v, want zero", got)
	}
	if got := b.Center(); got != V3(7, 7, 7) {
		t.Errorf("Center = %v, want (7,7,7)", got)
	}
}

func TestBoxUnionIgnoresEmpty(t *testing.T) {
	a := EmptyBox().ExpandByPoint(V3(1, 1, 1))
	if got := a.Union(EmptyBox()); got != a {
		t.Errorf("Union with empty changed box: %v", got)
	}
	if got := EmptyBox().Union(a); got != a {
		t.Errorf("empty Union a = %v, want %v", got, a)
	}
}

func TestEmptyBoxReportsZero(t *testing.T) {
	b := EmptyBox()
	if b.Size() != Zero3() || b.Center() != Zero3() {
		t.Errorf("empty box should report zero size and center, got %v %v", b.Size(), b.Center())
	}
}

func TestLookAtMapsTargetOntoNegativeZ(t *testing.T) {
	eye := V3(10, 10, 10)
	view := LookAt(eye, Zero3(), Up())
	p := view.MulVec3(Zero3())

	if math.Abs(p.X) > 1e-9 || math.Abs(p.Y) > 1e-9 {
		t.Errorf("target should be centered in view space, got %v", p)
	}
	if want := -eye.Len(); math.Abs(p.Z-want) > 1e-9 {
		t.Errorf("target depth = %f, want %f", p.Z, want)
	}
}

func TestLookAtStraightDownStaysFinite(t *testing.T) {
	view := LookAt(V3(0, 10, 0), Zero3(), Up())
	for i, v := range view {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("element %d is not finite: %f", i, v)
		}
	}
}

func TestPerspectiveKeepsNearPlaneAtMinusOne(t *testing.T) {
	proj := Perspective(math.Pi/4, 4.0/3.0, 0.5, 100)
	ndc := proj.MulVec4(V4(0, 0, -0.5, 1)).PerspectiveDivide()
	if math.Abs(ndc.Z+1) > 1e-9 {
		t.Errorf("near plane depth = %f, want -1", ndc.Z)
	}
	ndc = proj.MulVec4(V4(0, 0, -100, 1)).PerspectiveDivide()
	if math.Abs(ndc.Z-1) > 1e-9 {
		t.Errorf("far plane depth = %f, want 1", ndc.Z)
	}
}

func TestTranslateThenScale(t *testing.T) {
	m := ScaleUniform(2).Mul(Translate(V3(1, 0, 0)))
	if got := m.MulVec3(V3(1, 1, 1)); !got.ApproxEqual(V3(4, 2, 2), 1e-12) {
		t.Errorf("got %v, want (4,2,2)", got)
	}
	if got := m.MulVec3Dir(V3(1, 0, 0)); !got.ApproxEqual(V3(2, 0, 0), 1e-12) {
		t.Errorf("direction got %v, want (2,0,0)", got)
	}
}

func TestNormalizeZero(t *testing.T) {
	if got := Zero3().Normalize(); got != Zero3() {
		t.Errorf("Normalize(0) = %v", got)
	}
	if !V3(1, 2, 3).IsFinite() || V3(math.NaN(), 0, 0).IsFinite() {
		t.Error("IsFinite misreports")
	}
}

func BenchmarkMat4Mul(b *testing.B) {
	m1 := Translate(V3(1, 2, 3))
	m2 := LookAt(V3(5, 5, 5), Zero3(), Up())

	for b.Loop() {
		_ = m1.Mul(m2)
	}
}
