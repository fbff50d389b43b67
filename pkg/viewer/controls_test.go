package viewer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taigrr/designview/pkg/math3d"
	"github.com/taigrr/designview/pkg/render"
)

func newTestControls(damping float64) (*OrbitControls, *render.Camera) {
	cam := render.NewCamera(45)
	cam.Position = math3d.V3(0, 0, 10)
	cam.LookAt(math3d.Zero3())
	return NewOrbitControls(cam, 60, damping), cam
}

func TestOrbitControlsRotateWithoutDamping(t *testing.T) {
	c, cam := newTestControls(0)
	c.Rotate(math.Pi/2, 0)

	assert.True(t, c.Update())
	assertVecNear(t, math3d.V3(10, 0, 0), cam.Position, "quarter turn")
	assert.False(t, c.Moving())
	assert.False(t, c.Update(), "no motion left")
}

func TestOrbitControlsDampingDecays(t *testing.T) {
	c, cam := newTestControls(DefaultDampingFactor)
	c.Rotate(0.5, 0)

	start := cam.Position
	frames := 0
	for c.Update() {
		frames++
		if frames > 10000 {
			t.Fatal("inertia never settled")
		}
	}
	assert.Greater(t, frames, 1, "damped motion spans frames")
	assert.InDelta(t, 10, c.Distance(), 1e-9)

	// The decaying steps add up to roughly the requested angle.
	angle := math.Atan2(cam.Position.X, cam.Position.Z)
	assert.InDelta(t, 0.5, angle, 0.1)
	assert.NotEqual(t, start, cam.Position)
}

func TestOrbitControlsZoomClamp(t *testing.T) {
	c, _ := newTestControls(0)
	c.MinDistance = 5
	c.MaxDistance = 20

	c.Zoom(0.01)
	c.Update()
	assert.InDelta(t, 5, c.Distance(), 1e-9)

	c.Zoom(100)
	c.Update()
	assert.InDelta(t, 20, c.Distance(), 1e-9)

	c.Zoom(-1)
	assert.False(t, c.Moving(), "non-positive factor ignored")
}

func TestOrbitControlsPolarClamp(t *testing.T) {
	c, cam := newTestControls(0)
	c.Rotate(0, -10)
	c.Update()

	assert.True(t, cam.IsFinite())
	assert.Less(t, cam.Position.Y, 10.0)
	assert.Greater(t, cam.Position.Y, 9.99)
}

func TestOrbitControlsPanMovesTarget(t *testing.T) {
	c, cam := newTestControls(0)
	c.Pan(0.1, 0)
	c.Update()

	assertVecNear(t, math3d.V3(-1, 0, 0), c.Target, "target")
	assertVecNear(t, math3d.V3(-1, 0, 10), cam.Position, "camera follows")
}

func TestOrbitControlsDispose(t *testing.T) {
	c, cam := newTestControls(0)
	c.Dispose()
	c.Dispose()
	c.Rotate(1, 0)
	assert.False(t, c.Update())
	assertVecNear(t, math3d.V3(0, 0, 10), cam.Position, "camera untouched")

	var nilControls *OrbitControls
	nilControls.Dispose()
}
