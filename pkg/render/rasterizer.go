package render

import (
	"math"

	"github.com/taigrr/designview/pkg/math3d"
)

// lineDepthBias pulls lines slightly toward the viewer so edge overlays win
// against the faces they outline.
const lineDepthBias = 1e-4

// Vertex is a world-space vertex with its normal.
type Vertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
}

// Triangle represents a triangle to be rasterized.
type Triangle struct {
	V [3]Vertex
}

// MeshRenderer is the read-only mesh view the rasterizer needs. It keeps
// this package independent of the decoders in models.
type MeshRenderer interface {
	VertexCount() int
	TriangleCount() int
	GetVertex(i int) (pos, normal math3d.Vec3)
	GetFace(i int) [3]int
	GetBounds() math3d.Box3
}

// Rasterizer draws triangles and lines into a framebuffer with a Z-buffer.
type Rasterizer struct {
	camera       *Camera
	fb           *Framebuffer
	zbuffer      []float64 // row-major, NDC depth
	viewProj     math3d.Mat4
	frustum      Frustum
	CullingStats CullingStats
}

// CullingStats tracks frustum culling for the last frame.
type CullingStats struct {
	MeshesTested int
	MeshesCulled int
	MeshesDrawn  int
}

// NewRasterizer creates a new rasterizer.
func NewRasterizer(camera *Camera, fb *Framebuffer) *Rasterizer {
	r := &Rasterizer{fb: fb}
	r.Resize()
	if camera != nil {
		r.Begin(camera)
	}
	return r
}

// Resize resizes the Z-buffer to match the framebuffer.
func (r *Rasterizer) Resize() {
	if r.fb == nil {
		r.zbuffer = nil
		return
	}
	r.zbuffer = make([]float64, r.fb.Width*r.fb.Height)
}

// Width returns the framebuffer width.
func (r *Rasterizer) Width() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Width
}

// Height returns the framebuffer height.
func (r *Rasterizer) Height() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Height
}

// Begin starts a frame: it caches the camera matrices, rebuilds the frustum
// and clears the Z-buffer and culling stats.
func (r *Rasterizer) Begin(camera *Camera) {
	r.camera = camera
	r.viewProj = camera.ViewProjectionMatrix()
	r.frustum = NewFrustumFromMatrix(r.viewProj)
	r.CullingStats = CullingStats{}
	r.ClearDepth()
}

// ClearDepth resets the Z-buffer.
func (r *Rasterizer) ClearDepth() {
	// copy-doubling
	n := len(r.zbuffer)
	if n == 0 {
		return
	}
	r.zbuffer[0] = math.MaxFloat64
	for i := 1; i < n; i *= 2 {
		copy(r.zbuffer[i:], r.zbuffer[:i])
	}
}

// IsVisible tests a world-space box against the current frustum.
func (r *Rasterizer) IsVisible(box math3d.Box3) bool {
	return r.frustum.IntersectsBox(box)
}

// DepthAt returns the stored depth at (x, y), or MaxFloat64 when nothing
// was drawn there.
func (r *Rasterizer) DepthAt(x, y int) float64 {
	if x < 0 || x >= r.Width() || y < 0 || y >= r.Height() {
		return math.MaxFloat64
	}
	return r.zbuffer[y*r.Width()+x]
}

func (r *Rasterizer) testAndSet(x, y int, z float64) bool {
	if x < 0 || x >= r.Width() || y < 0 || y >= r.Height() {
		return false
	}
	i := y*r.Width() + x
	if z >= r.zbuffer[i] {
		return false
	}
	r.zbuffer[i] = z
	return true
}

// screenVertex holds a vertex transformed to screen space.
type screenVertex struct {
	X, Y float64 // Screen coordinates
	Z    float64 // NDC depth
	W    float64
}

func (r *Rasterizer) project(p math3d.Vec3) screenVertex {
	clip := r.viewProj.MulVec4(math3d.V4FromV3(p, 1))
	sv := screenVertex{W: clip.W}
	if clip.W != 0 {
		sv.X = clip.X / clip.W
		sv.Y = clip.Y / clip.W
		sv.Z = clip.Z / clip.W
	}
	sv.X = (sv.X + 1) * 0.5 * float64(r.Width())
	sv.Y = (1 - sv.Y) * 0.5 * float64(r.Height()) // Y flipped
	return sv
}

// DrawTriangle rasterizes a triangle with Gouraud shading: the material is
// evaluated at each vertex and the colors are interpolated. Back faces are
// skipped unless the material is double-sided, in which case their normals
// are flipped toward the viewer. Triangles crossing the near plane are
// clipped to it.
func (r *Rasterizer) DrawTriangle(tri Triangle, mat Material, env *Lighting) {
	if r.camera == nil || r.fb == nil {
		return
	}

	// Signed distance to the near plane in clip space (w + z >= 0 inside).
	var dist [3]float64
	inside := 0
	for i := range 3 {
		c := r.viewProj.MulVec4(math3d.V4FromV3(tri.V[i].Position, 1))
		dist[i] = c.W + c.Z
		if dist[i] >= 0 {
			inside++
		}
	}
	switch inside {
	case 0:
		return
	case 3:
		r.rasterize(tri, mat, env)
		return
	}

	poly := clipNear(tri.V, dist)
	for i := 1; i+1 < len(poly); i++ {
		r.rasterize(Triangle{V: [3]Vertex{poly[0], poly[i], poly[i+1]}}, mat, env)
	}
}

// clipNear clips a triangle against the near plane given each vertex's
// signed distance to it. The result keeps the winding and has three or four
// vertices.
func clipNear(v [3]Vertex, dist [3]float64) []Vertex {
	out := make([]Vertex, 0, 4)
	for i := range 3 {
		j := (i + 1) % 3
		a, b := v[i], v[j]
		da, db := dist[i], dist[j]
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			t := da / (da - db)
			out = append(out, Vertex{
				Position: a.Position.Add(b.Position.Sub(a.Position).Scale(t)),
				Normal:   a.Normal.Add(b.Normal.Sub(a.Normal).Scale(t)),
			})
		}
	}
	return out
}

// rasterize draws a triangle that lies in front of the near plane.
func (r *Rasterizer) rasterize(tri Triangle, mat Material, env *Lighting) {
	var sv [3]screenVertex
	for i := range 3 {
		sv[i] = r.project(tri.V[i].Position)
		if sv[i].W <= 0 {
			return
		}
	}

	// Screen Y points down, so counter-clockwise front faces have a
	// negative screen-space cross product.
	cross := (sv[1].X-sv[0].X)*(sv[2].Y-sv[0].Y) - (sv[1].Y-sv[0].Y)*(sv[2].X-sv[0].X)
	if cross == 0 {
		return
	}
	back := cross > 0
	if back && mat.Sides() != DoubleSide {
		return
	}

	var colors [3]Color
	for i := range 3 {
		n := tri.V[i].Normal
		if back {
			n = n.Negate()
		}
		view := r.camera.Position.Sub(tri.V[i].Position).Normalize()
		colors[i] = mat.Shade(env, n, view)
	}

	minX := int(math.Max(0, math.Floor(min3(sv[0].X, sv[1].X, sv[2].X))))
	maxX := int(math.Min(float64(r.Width()-1), math.Ceil(max3(sv[0].X, sv[1].X, sv[2].X))))
	minY := int(math.Max(0, math.Floor(min3(sv[0].Y, sv[1].Y, sv[2].Y))))
	maxY := int(math.Min(float64(r.Height()-1), math.Ceil(max3(sv[0].Y, sv[1].Y, sv[2].Y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5

			b0, b1, b2 := barycentric(
				sv[0].X, sv[0].Y,
				sv[1].X, sv[1].Y,
				sv[2].X, sv[2].Y,
				px, py,
			)
			if b0 < 0 || b1 < 0 || b2 < 0 {
				continue
			}

			z := b0*sv[0].Z + b1*sv[1].Z + b2*sv[2].Z
			if z < -1 || z > 1 {
				continue
			}
			if !r.testAndSet(x, y, z) {
				continue
			}
			r.fb.SetPixel(x, y, interpolateColor3(colors[0], colors[1], colors[2], b0, b1, b2))
		}
	}
}

// DrawMesh renders a world-space mesh. Meshes whose bounds lie outside the
// frustum are skipped.
func (r *Rasterizer) DrawMesh(mesh MeshRenderer, mat Material, env *Lighting) {
	r.CullingStats.MeshesTested++
	if !r.IsVisible(mesh.GetBounds()) {
		r.CullingStats.MeshesCulled++
		return
	}
	r.CullingStats.MeshesDrawn++

	for i := range mesh.TriangleCount() {
		face := mesh.GetFace(i)
		var tri Triangle
		for k := range 3 {
			p, n := mesh.GetVertex(face[k])
			tri.V[k] = Vertex{Position: p, Normal: n}
		}
		r.DrawTriangle(tri, mat, env)
	}
}

// DrawLine3D draws a depth-tested world-space line, clipped to the view
// volume.
func (r *Rasterizer) DrawLine3D(a, b math3d.Vec3, c Color) {
	if r.camera == nil || r.fb == nil {
		return
	}

	ca := r.viewProj.MulVec4(math3d.V4FromV3(a, 1))
	cb := r.viewProj.MulVec4(math3d.V4FromV3(b, 1))
	ca, cb, ok := clipLine(ca, cb)
	if !ok {
		return
	}

	w, h := float64(r.Width()), float64(r.Height())
	toScreen := func(v math3d.Vec4) (int, int, float64) {
		ndc := v.PerspectiveDivide()
		x := int(math.Floor((ndc.X + 1) * 0.5 * w))
		y := int(math.Floor((1 - ndc.Y) * 0.5 * h))
		return x, y, ndc.Z
	}
	x0, y0, z0 := toScreen(ca)
	x1, y1, z1 := toScreen(cb)

	bresenham(x0, y0, x1, y1, func(x, y int, t float64) {
		z := z0 + (z1-z0)*t - lineDepthBias
		if r.testAndSet(x, y, z) {
			r.fb.SetPixel(x, y, c)
		}
	})
}

// clipLine clips a clip-space segment against the six planes of the view
// volume (Liang-Barsky in homogeneous coordinates).
func clipLine(a, b math3d.Vec4) (math3d.Vec4, math3d.Vec4, bool) {
	dist := [6][2]float64{
		{a.W + a.X, b.W + b.X},
		{a.W - a.X, b.W - b.X},
		{a.W + a.Y, b.W + b.Y},
		{a.W - a.Y, b.W - b.Y},
		{a.W + a.Z, b.W + b.Z},
		{a.W - a.Z, b.W - b.Z},
	}

	t0, t1 := 0.0, 1.0
	for _, d := range dist {
		da, db := d[0], d[1]
		switch {
		case da < 0 && db < 0:
			return a, b, false
		case da < 0:
			t0 = math.Max(t0, da/(da-db))
		case db < 0:
			t1 = math.Min(t1, da/(da-db))
		}
		if t0 > t1 {
			return a, b, false
		}
	}

	lerp := func(t float64) math3d.Vec4 {
		return math3d.V4(
			a.X+(b.X-a.X)*t,
			a.Y+(b.Y-a.Y)*t,
			a.Z+(b.Z-a.Z)*t,
			a.W+(b.W-a.W)*t,
		)
	}
	return lerp(t0), lerp(t1), true
}

// barycentric calculates barycentric coordinates for point (px, py) in triangle.
func barycentric(x0, y0, x1, y1, x2, y2, px, py float64) (float64, float64, float64) {
	v0x, v0y := x2-x0, y2-y0
	v1x, v1y := x1-x0, y1-y0
	v2x, v2y := px-x0, py-y0

	dot00 := v0x*v0x + v0y*v0y
	dot01 := v0x*v1x + v0y*v1y
	dot02 := v0x*v2x + v0y*v2y
	dot11 := v1x*v1x + v1y*v1y
	dot12 := v1x*v2x + v1y*v2y

	invDenom := 1.0 / (dot00*dot11 - dot01*dot01)
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	return 1 - u - v, v, u
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}
