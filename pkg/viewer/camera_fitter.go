package viewer

import (
	"math"

	"github.com/taigrr/designview/pkg/math3d"
	"github.com/taigrr/designview/pkg/render"
)

// MinFitSize replaces a zero, negative or non-finite bounding box size so
// framing never divides by zero.
const MinFitSize = 1.0

// FitMargin scales the distance at which the model exactly fills the view.
const FitMargin = 2.5

// DefaultPose is where ResetView puts the camera when no model is loaded.
var DefaultPose = math3d.V3(100, 100, 100)

// Fit is the framing computed for a bounding box.
type Fit struct {
	Center      math3d.Vec3
	MaxDim      float64
	Distance    float64
	Near, Far   float64
	Position    math3d.Vec3
	MinDistance float64
	MaxDistance float64
}

// ComputeFit frames box for a camera with the given vertical FOV in
// radians.
func ComputeFit(box math3d.Box3, fov float64) Fit {
	center := box.Center()
	maxDim := box.Size().MaxComponent()
	if !(maxDim > 0) || math.IsInf(maxDim, 0) {
		maxDim = MinFitSize
	}
	if !center.IsFinite() {
		center = math3d.Zero3()
	}

	distance := (maxDim / 2) / math.Tan(fov/2) * FitMargin
	return Fit{
		Center:      center,
		MaxDim:      maxDim,
		Distance:    distance,
		Near:        maxDim / 1000,
		Far:         maxDim * 100,
		Position:    center.Add(math3d.V3(distance*0.5, distance*0.5, distance)),
		MinDistance: maxDim / 10,
		MaxDistance: maxDim * 10,
	}
}

// FitCamera frames group: it moves the camera to a three-quarter view of
// the group's bounds, sets scale-relative clip planes and points the
// controls at the center. controls may be nil.
func FitCamera(group *render.Group, camera *render.Camera, controls *OrbitControls) Fit {
	box := math3d.EmptyBox()
	if group != nil {
		box = group.Bounds()
	}
	fit := ComputeFit(box, camera.FOV)

	camera.SetClipPlanes(fit.Near, fit.Far)
	camera.Position = fit.Position
	camera.LookAt(fit.Center)

	if controls != nil {
		controls.Target = fit.Center
		controls.MinDistance = fit.MinDistance
		controls.MaxDistance = fit.MaxDistance
		controls.Sync()
	}
	return fit
}

// ResetCamera reframes group, or returns to DefaultPose looking at the
// origin when group is nil.
func ResetCamera(group *render.Group, camera *render.Camera, controls *OrbitControls) {
	if group != nil {
		FitCamera(group, camera, controls)
		return
	}
	camera.Position = DefaultPose
	camera.LookAt(math3d.Zero3())
	if controls != nil {
		controls.Target = math3d.Zero3()
		controls.Sync()
	}
}
