package render

import (
	"testing"

	"github.com/taigrr/designview/pkg/math3d"
)

func TestPhongMaterialLighting(t *testing.T) {
	mat := NewPhongMaterial(Hex(0x6c8ebf))
	if mat.Shininess != 30 || mat.Sides() != FrontSide {
		t.Errorf("defaults = %+v", mat)
	}

	n := math3d.V3(0, 0, 1)
	lit := NewLighting([]Light{NewDirectionalLight(ColorWhite, 1, math3d.V3(0, 0, 10))})
	dark := NewLighting([]Light{NewDirectionalLight(ColorWhite, 1, math3d.V3(0, 0, -10))})

	a := mat.Shade(lit, n, n)
	b := mat.Shade(dark, n, n)
	if a.B <= b.B {
		t.Errorf("facing the light (%v) should be brighter than facing away (%v)", a, b)
	}
	if b != ColorBlack {
		t.Errorf("unlit surface without ambient should be black, got %v", b)
	}
}

func TestStandardMaterialMetalnessDarkensDiffuse(t *testing.T) {
	n := math3d.V3(0, 0, 1)
	view := n
	env := NewLighting([]Light{NewDirectionalLight(ColorWhite, 1, math3d.V3(-10, 0, 10))})

	matte := NewStandardMaterial(Hex(0x4f46e5), 0.5, 0)
	metal := NewStandardMaterial(Hex(0x4f46e5), 0.5, 1)

	if a, b := matte.Shade(env, n, view), metal.Shade(env, n, view); a.B <= b.B {
		t.Errorf("matte %v should be brighter than full metal %v off the highlight", a, b)
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#1a1a2e")
	if err != nil || c != RGB(0x1a, 0x1a, 0x2e) {
		t.Errorf("ParseHex = %v, %v", c, err)
	}
	if _, err := ParseHex("zzz"); err == nil {
		t.Error("expected error for short input")
	}
}
