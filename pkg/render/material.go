package render

import (
	"math"

	"github.com/taigrr/designview/pkg/math3d"
)

// Side selects which triangle faces a material draws.
type Side int

const (
	FrontSide Side = iota
	DoubleSide
)

// Material computes the lit color of a surface point.
type Material interface {
	// Shade returns the color for a unit normal facing the viewer along
	// the unit vector view (surface to eye).
	Shade(env *Lighting, normal, view math3d.Vec3) Color
	// Sides reports which faces are drawn.
	Sides() Side
}

// PhongMaterial is a shiny Blinn-Phong surface.
type PhongMaterial struct {
	Color     Color
	Specular  Color
	Shininess float64
	Side      Side
}

// NewPhongMaterial returns a front-sided Phong material with shininess 30.
func NewPhongMaterial(c Color) *PhongMaterial {
	return &PhongMaterial{
		Color:     c,
		Specular:  Hex(0x111111),
		Shininess: 30,
	}
}

func (m *PhongMaterial) Sides() Side { return m.Side }

func (m *PhongMaterial) Shade(env *Lighting, normal, view math3d.Vec3) Color {
	base := toRGB(m.Color)
	spec := toRGB(m.Specular)

	diffuse := env.ambient
	var highlight rgb
	for _, l := range env.directional {
		ndl := normal.Dot(l.dir)
		if ndl <= 0 {
			continue
		}
		diffuse = diffuse.add(l.color.scale(ndl))

		half := l.dir.Add(view).Normalize()
		if ndh := normal.Dot(half); ndh > 0 {
			highlight = highlight.add(l.color.mul(spec).scale(math.Pow(ndh, m.Shininess)))
		}
	}
	return base.mul(diffuse).add(highlight).toColor()
}

// StandardMaterial approximates a metallic-roughness surface.
type StandardMaterial struct {
	Color     Color
	Roughness float64
	Metalness float64
	Side      Side
}

// NewStandardMaterial returns a front-sided metallic-roughness material.
func NewStandardMaterial(c Color, roughness, metalness float64) *StandardMaterial {
	return &StandardMaterial{Color: c, Roughness: roughness, Metalness: metalness}
}

func (m *StandardMaterial) Sides() Side { return m.Side }

func (m *StandardMaterial) Shade(env *Lighting, normal, view math3d.Vec3) Color {
	base := toRGB(m.Color)
	metal := clamp01(m.Metalness)
	diffuseColor := base.scale(1 - metal)
	f0 := rgb{0.04, 0.04, 0.04}.lerp(base, metal)

	// Map roughness to a normalized Blinn-Phong exponent.
	alpha := math.Max(clamp01(m.Roughness)*clamp01(m.Roughness), 1e-3)
	exponent := 2/(alpha*alpha) - 2
	norm := (exponent + 2) / 8

	out := env.ambient.mul(base).scale(1 - 0.5*metal)
	for _, l := range env.directional {
		ndl := normal.Dot(l.dir)
		if ndl <= 0 {
			continue
		}
		half := l.dir.Add(view).Normalize()
		spec := norm * math.Pow(math.Max(normal.Dot(half), 0), exponent)
		out = out.add(l.color.mul(diffuseColor.add(f0.scale(spec))).scale(ndl))
	}
	return out.toColor()
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
