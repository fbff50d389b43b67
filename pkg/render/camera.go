package render

import (
	"math"

	"github.com/taigrr/designview/pkg/math3d"
)

// Camera is a perspective camera aimed at a target point.
type Camera struct {
	Position math3d.Vec3
	Target   math3d.Vec3
	Up       math3d.Vec3

	// Projection parameters
	FOV    float64 // Vertical field of view in radians
	Aspect float64 // Width / Height
	Near   float64
	Far    float64
}

// NewCamera creates a camera with the given vertical field of view in
// degrees, sitting at (100, 100, 100) and looking at the origin.
func NewCamera(fovDegrees float64) *Camera {
	return &Camera{
		Position: math3d.V3(100, 100, 100),
		Target:   math3d.Zero3(),
		Up:       math3d.Up(),
		FOV:      fovDegrees * math.Pi / 180,
		Aspect:   1,
		Near:     0.1,
		Far:      1000,
	}
}

// SetAspect sets the aspect ratio from a viewport size. Degenerate sizes are
// ignored.
func (c *Camera) SetAspect(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Aspect = float64(width) / float64(height)
}

// SetClipPlanes sets the near and far clipping planes.
func (c *Camera) SetClipPlanes(near, far float64) {
	c.Near = near
	c.Far = far
}

// LookAt points the camera at target.
func (c *Camera) LookAt(target math3d.Vec3) {
	c.Target = target
}

// Forward returns the unit view direction.
func (c *Camera) Forward() math3d.Vec3 {
	return c.Target.Sub(c.Position).Normalize()
}

// ViewMatrix returns the world-to-camera transform.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	return math3d.LookAt(c.Position, c.Target, c.Up)
}

// ProjectionMatrix returns the perspective projection.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	return math3d.Perspective(c.FOV, c.Aspect, c.Near, c.Far)
}

// ViewProjectionMatrix returns projection * view.
func (c *Camera) ViewProjectionMatrix() math3d.Mat4 {
	return c.ProjectionMatrix().Mul(c.ViewMatrix())
}

// IsFinite reports whether every camera parameter is a finite number.
func (c *Camera) IsFinite() bool {
	for _, f := range []float64{c.FOV, c.Aspect, c.Near, c.Far} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return c.Position.IsFinite() && c.Target.IsFinite() && c.Up.IsFinite()
}

// WorldToScreen transforms a world point to screen coordinates.
// Returns (screenX, screenY, depth, visible).
func (c *Camera) WorldToScreen(worldPos math3d.Vec3, screenWidth, screenHeight int) (x, y, depth float64, visible bool) {
	clipPos := c.ViewProjectionMatrix().MulVec4(math3d.V4FromV3(worldPos, 1))

	// Behind the camera
	if clipPos.W <= 0 {
		return 0, 0, 0, false
	}

	ndc := clipPos.PerspectiveDivide()
	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z < -1 || ndc.Z > 1 {
		return 0, 0, 0, false
	}

	x = (ndc.X + 1) * 0.5 * float64(screenWidth)
	y = (1 - ndc.Y) * 0.5 * float64(screenHeight) // Y is flipped
	depth = ndc.Z

	return x, y, depth, true
}
