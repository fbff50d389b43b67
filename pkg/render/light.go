package render

import "github.com/taigrr/designview/pkg/math3d"

// Light is implemented by AmbientLight and DirectionalLight.
type Light interface {
	contribute(env *Lighting)
}

// AmbientLight lights every surface equally.
type AmbientLight struct {
	Color     Color
	Intensity float64
}

// NewAmbientLight creates an ambient light.
func NewAmbientLight(c Color, intensity float64) *AmbientLight {
	return &AmbientLight{Color: c, Intensity: intensity}
}

func (l *AmbientLight) contribute(env *Lighting) {
	env.ambient = env.ambient.add(toRGB(l.Color).scale(l.Intensity))
}

// DirectionalLight shines from Position toward Target, like sunlight.
type DirectionalLight struct {
	Color     Color
	Intensity float64
	Position  math3d.Vec3
	Target    math3d.Vec3
}

// NewDirectionalLight creates a directional light at pos aimed at the
// origin.
func NewDirectionalLight(c Color, intensity float64, pos math3d.Vec3) *DirectionalLight {
	return &DirectionalLight{Color: c, Intensity: intensity, Position: pos}
}

// Direction returns the unit vector from a lit surface toward the light.
func (l *DirectionalLight) Direction() math3d.Vec3 {
	return l.Position.Sub(l.Target).Normalize()
}

func (l *DirectionalLight) contribute(env *Lighting) {
	dir := l.Direction()
	if dir == math3d.Zero3() {
		return
	}
	env.directional = append(env.directional, dirLight{
		dir:   dir,
		color: toRGB(l.Color).scale(l.Intensity),
	})
}

type dirLight struct {
	dir   math3d.Vec3
	color rgb
}

// Lighting is the per-frame summary of a scene's lights.
type Lighting struct {
	ambient     rgb
	directional []dirLight
}

func NewLighting(lights []Light) *Lighting {
	env := &Lighting{}
	for _, l := range lights {
		if l != nil {
			l.contribute(env)
		}
	}
	return env
}
