package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Color is an alias for color.RGBA for convenience.
type Color = color.RGBA

var (
	ColorBlack = color.RGBA{0, 0, 0, 255}
	ColorWhite = color.RGBA{255, 255, 255, 255}
)

// RGB creates an opaque color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 255}
}

// Hex creates an opaque color from 0xRRGGBB.
func Hex(v uint32) Color {
	return RGB(uint8(v>>16), uint8(v>>8), uint8(v))
}

// ParseHex parses "#rrggbb" or "rrggbb".
func ParseHex(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("parse color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return Hex(uint32(v)), nil
}

// MultiplyColor scales a color's RGB channels, clamping at 255.
func MultiplyColor(c Color, intensity float64) Color {
	return Color{
		R: uint8(math.Min(255, float64(c.R)*intensity)),
		G: uint8(math.Min(255, float64(c.G)*intensity)),
		B: uint8(math.Min(255, float64(c.B)*intensity)),
		A: c.A,
	}
}

// rgb is a linear color used while accumulating light.
type rgb struct{ R, G, B float64 }

func toRGB(c Color) rgb {
	return rgb{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255}
}

func (a rgb) add(b rgb) rgb { return rgb{a.R + b.R, a.G + b.G, a.B + b.B} }
func (a rgb) mul(b rgb) rgb { return rgb{a.R * b.R, a.G * b.G, a.B * b.B} }
func (a rgb) scale(s float64) rgb { return rgb{a.R * s, a.G * s, a.B * s} }
func (a rgb) lerp(b rgb, t float64) rgb {
	return a.scale(1 - t).add(b.scale(t))
}

func (a rgb) toColor() Color {
	return RGB(channel(a.R), channel(a.G), channel(a.B))
}

func channel(v float64) uint8 {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

// interpolateColor3 interpolates between 3 colors using barycentric coords.
func interpolateColor3(c0, c1, c2 Color, b0, b1, b2 float64) Color {
	mix := func(a, b, c uint8) uint8 {
		return channel((float64(a)*b0 + float64(b)*b1 + float64(c)*b2) / 255)
	}
	return RGB(mix(c0.R, c1.R, c2.R), mix(c0.G, c1.G, c2.G), mix(c0.B, c1.B, c2.B))
}
