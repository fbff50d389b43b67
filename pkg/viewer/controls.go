package viewer

import (
	"math"

	"github.com/charmbracelet/harmonica"

	"github.com/taigrr/designview/pkg/math3d"
	"github.com/taigrr/designview/pkg/render"
)

// DefaultDampingFactor matches the fraction of motion lost per frame at
// 60 FPS.
const DefaultDampingFactor = 0.05

const minPolar = 1e-3

// dampedAxis carries a value's velocity and lets a spring pull it back to
// zero, which gives drags their inertia.
type dampedAxis struct {
	Velocity float64
	accel    float64
	spring   harmonica.Spring

	// gain scales an impulse so the decaying velocities sum to it.
	gain float64
}

func newDampedAxis(fps int, frequency float64) dampedAxis {
	return dampedAxis{
		// damping 1.0 = critically damped, no overshoot past zero
		spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, 1.0),
		// A critically damped velocity v0 integrates to 2*v0/frequency
		// seconds, i.e. 2*v0*fps/frequency frames.
		gain: frequency / (2 * float64(fps)),
	}
}

func (a *dampedAxis) push(delta float64, damped bool) {
	if damped {
		delta *= a.gain
	}
	a.Velocity += delta
}

// step returns this frame's delta and decays the velocity.
func (a *dampedAxis) step() float64 {
	d := a.Velocity
	a.Velocity, a.accel = a.spring.Update(a.Velocity, a.accel, 0)
	if math.Abs(a.Velocity) < 1e-9 {
		a.Velocity, a.accel = 0, 0
	}
	return d
}

func (a *dampedAxis) stop() {
	a.Velocity, a.accel = 0, 0
}

// OrbitControls orbits, zooms and pans a camera around Target.
type OrbitControls struct {
	Target      math3d.Vec3
	MinDistance float64
	MaxDistance float64

	EnableDamping bool
	RotateSpeed   float64
	ZoomSpeed     float64
	PanSpeed      float64

	camera *render.Camera

	// spherical offset of the camera from Target
	radius, theta, phi float64

	azimuth, polar, zoom, panX, panY dampedAxis

	disposed bool
}

// NewOrbitControls attaches controls to camera. dampingFactor is the share
// of velocity lost per frame at 60 FPS; zero disables damping.
func NewOrbitControls(camera *render.Camera, fps int, dampingFactor float64) *OrbitControls {
	fps = max(fps, 1)
	frequency := dampingFactor * 60
	c := &OrbitControls{
		Target:        camera.Target,
		EnableDamping: dampingFactor > 0,
		RotateSpeed:   1,
		ZoomSpeed:     1,
		PanSpeed:      1,
		camera:        camera,
		azimuth:       newDampedAxis(fps, frequency),
		polar:         newDampedAxis(fps, frequency),
		zoom:          newDampedAxis(fps, frequency),
		panX:          newDampedAxis(fps, frequency),
		panY:          newDampedAxis(fps, frequency),
	}
	c.Sync()
	return c
}

// Sync reads the camera's current offset from Target and drops any
// remaining inertia. Call it after moving the camera directly.
func (c *OrbitControls) Sync() {
	if c.camera == nil {
		return
	}
	offset := c.camera.Position.Sub(c.Target)
	c.radius = offset.Len()
	if c.radius > 0 {
		c.theta = math.Atan2(offset.X, offset.Z)
		c.phi = math.Acos(math.Max(-1, math.Min(1, offset.Y/c.radius)))
	}
	for _, a := range c.axes() {
		a.stop()
	}
}

// Rotate adds an orbit impulse in radians.
func (c *OrbitControls) Rotate(azimuth, polar float64) {
	c.azimuth.push(azimuth*c.RotateSpeed, c.EnableDamping)
	c.polar.push(polar*c.RotateSpeed, c.EnableDamping)
}

// Zoom scales the distance by factor (<1 moves closer).
func (c *OrbitControls) Zoom(factor float64) {
	if factor <= 0 {
		return
	}
	c.zoom.push(math.Log(factor)*c.ZoomSpeed, c.EnableDamping)
}

// Pan moves the target across the view plane. dx and dy are fractions of
// the current distance.
func (c *OrbitControls) Pan(dx, dy float64) {
	c.panX.push(dx*c.PanSpeed, c.EnableDamping)
	c.panY.push(dy*c.PanSpeed, c.EnableDamping)
}

// Moving reports whether inertia is still pending.
func (c *OrbitControls) Moving() bool {
	for _, a := range c.axes() {
		if a.Velocity != 0 {
			return true
		}
	}
	return false
}

// Update applies pending motion and writes the camera pose. It reports
// whether the camera moved.
func (c *OrbitControls) Update() bool {
	if c.disposed || c.camera == nil || !c.Moving() {
		return false
	}

	var dTheta, dPhi, dZoom, dX, dY float64
	if c.EnableDamping {
		dTheta, dPhi, dZoom = c.azimuth.step(), c.polar.step(), c.zoom.step()
		dX, dY = c.panX.step(), c.panY.step()
	} else {
		dTheta, dPhi, dZoom = c.azimuth.Velocity, c.polar.Velocity, c.zoom.Velocity
		dX, dY = c.panX.Velocity, c.panY.Velocity
		for _, a := range c.axes() {
			a.stop()
		}
	}

	if dX != 0 || dY != 0 {
		forward := c.Target.Sub(c.camera.Position).Normalize()
		right := forward.Cross(c.camera.Up).Normalize()
		up := right.Cross(forward)
		c.Target = c.Target.Add(right.Scale(-dX * c.radius)).Add(up.Scale(dY * c.radius))
	}

	c.theta += dTheta
	c.phi = math.Max(minPolar, math.Min(math.Pi-minPolar, c.phi+dPhi))
	c.radius = c.clampDistance(c.radius * math.Exp(dZoom))

	c.apply()
	return true
}

func (c *OrbitControls) clampDistance(r float64) float64 {
	if c.MinDistance > 0 {
		r = math.Max(r, c.MinDistance)
	}
	if c.MaxDistance > 0 {
		r = math.Min(r, c.MaxDistance)
	}
	return r
}

func (c *OrbitControls) apply() {
	sinPhi := math.Sin(c.phi)
	offset := math3d.V3(
		c.radius*sinPhi*math.Sin(c.theta),
		c.radius*math.Cos(c.phi),
		c.radius*sinPhi*math.Cos(c.theta),
	)
	c.camera.Position = c.Target.Add(offset)
	c.camera.LookAt(c.Target)
}

func (c *OrbitControls) axes() []*dampedAxis {
	return []*dampedAxis{&c.azimuth, &c.polar, &c.zoom, &c.panX, &c.panY}
}

// Distance returns the current camera distance from Target.
func (c *OrbitControls) Distance() float64 {
	return c.radius
}

// Dispose detaches the controls from the camera. Safe on nil.
func (c *OrbitControls) Dispose() {
	if c == nil {
		return
	}
	c.disposed = true
	c.camera = nil
}
