package render

import (
	"slices"

	"github.com/taigrr/designview/pkg/math3d"
)

// Node is anything a Scene or Group can hold.
type Node interface {
	// Bounds returns the world-space bounding box.
	Bounds() math3d.Box3
	draw(r *Rasterizer, env *Lighting)
}

// MeshNode pairs geometry with a material.
type MeshNode struct {
	Name     string
	Geometry MeshRenderer
	Material Material
}

// Bounds returns the geometry's bounding box.
func (m *MeshNode) Bounds() math3d.Box3 {
	if m.Geometry == nil {
		return math3d.EmptyBox()
	}
	return m.Geometry.GetBounds()
}

func (m *MeshNode) draw(r *Rasterizer, env *Lighting) {
	if m.Geometry == nil || m.Material == nil {
		return
	}
	r.DrawMesh(m.Geometry, m.Material, env)
}

// Segment is one colored line.
type Segment struct {
	A, B  math3d.Vec3
	Color Color
}

// LineSegments is a set of unconnected lines (grids, axes, edge overlays).
type LineSegments struct {
	Name     string
	Segments []Segment
}

// Bounds returns the box around every segment endpoint.
func (l *LineSegments) Bounds() math3d.Box3 {
	b := math3d.EmptyBox()
	for _, s := range l.Segments {
		b = b.ExpandByPoint(s.A).ExpandByPoint(s.B)
	}
	return b
}

func (l *LineSegments) draw(r *Rasterizer, _ *Lighting) {
	for _, s := range l.Segments {
		r.DrawLine3D(s.A, s.B, s.Color)
	}
}

// Group is a named collection of nodes that is attached to a scene as one
// unit.
type Group struct {
	Name        string
	Placeholder bool
	Children    []Node

	disposed bool
}

// NewGroup creates an empty group.
func NewGroup(name string) *Group {
	return &Group{Name: name}
}

// Add appends nodes to the group.
func (g *Group) Add(nodes ...Node) {
	g.Children = append(g.Children, nodes...)
}

// Meshes returns the mesh children in order.
func (g *Group) Meshes() []*MeshNode {
	var out []*MeshNode
	for _, n := range g.Children {
		if m, ok := n.(*MeshNode); ok {
			out = append(out, m)
		}
	}
	return out
}

// Bounds returns the union of the children's bounds.
func (g *Group) Bounds() math3d.Box3 {
	b := math3d.EmptyBox()
	for _, n := range g.Children {
		b = b.Union(n.Bounds())
	}
	return b
}

// Dispose releases the group's children. A disposed group draws nothing.
func (g *Group) Dispose() {
	if g == nil {
		return
	}
	g.Children = nil
	g.disposed = true
}

// Disposed reports whether Dispose was called.
func (g *Group) Disposed() bool {
	return g != nil && g.disposed
}

func (g *Group) draw(r *Rasterizer, env *Lighting) {
	for _, n := range g.Children {
		n.draw(r, env)
	}
}

// Scene holds lights, helper overlays and the current model groups.
type Scene struct {
	Background Color
	Lights     []Light
	Helpers    []Node

	models []*Group
}

// NewScene creates an empty scene with the given background.
func NewScene(background Color) *Scene {
	return &Scene{Background: background}
}

// AddLight adds lights to the scene.
func (s *Scene) AddLight(lights ...Light) {
	s.Lights = append(s.Lights, lights...)
}

// AddHelper adds non-model overlays such as grids and axes.
func (s *Scene) AddHelper(nodes ...Node) {
	s.Helpers = append(s.Helpers, nodes...)
}

// ReplaceModel detaches old (if attached) and attaches next in one step.
// Either may be nil.
func (s *Scene) ReplaceModel(old, next *Group) {
	if old != nil {
		s.models = slices.DeleteFunc(s.models, func(g *Group) bool { return g == old })
	}
	if next != nil && !slices.Contains(s.models, next) {
		s.models = append(s.models, next)
	}
}

// ModelGroups returns a copy of the attached model groups.
func (s *Scene) ModelGroups() []*Group {
	return slices.Clone(s.models)
}

// Model returns the most recently attached model group, or nil.
func (s *Scene) Model() *Group {
	if len(s.models) == 0 {
		return nil
	}
	return s.models[len(s.models)-1]
}

// Lighting summarizes the scene's lights for shading.
func (s *Scene) Lighting() *Lighting {
	return NewLighting(s.Lights)
}

func (s *Scene) draw(r *Rasterizer) {
	env := s.Lighting()
	for _, g := range s.models {
		g.draw(r, env)
	}
	for _, h := range s.Helpers {
		h.draw(r, env)
	}
}
