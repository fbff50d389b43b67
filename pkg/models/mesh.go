// Package models turns design files into triangle meshes the viewer can
// draw. Decoders produce DecodedMesh records; ToMesh converts one record into
// an indexed Mesh with per-vertex normals.
package models

import (
	"github.com/taigrr/designview/pkg/math3d"
)

// Mesh is an indexed triangle mesh ready for rasterization.
type Mesh struct {
	Name     string
	Vertices []MeshVertex
	Faces    []Face

	// Bounds is recomputed by CalculateBounds.
	Bounds math3d.Box3
}

// MeshVertex holds the per-vertex attributes.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
}

// Face is one triangle, as indices into Mesh.Vertices.
type Face struct {
	V [3]int
}

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:   name,
		Bounds: math3d.EmptyBox(),
	}
}

// CalculateBounds recomputes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	b := math3d.EmptyBox()
	for _, v := range m.Vertices {
		b = b.ExpandByPoint(v.Position)
	}
	m.Bounds = b
}

// TriangleCount returns the number of faces.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// CalculateSmoothNormals averages area-weighted face normals into each
// vertex. Vertices that touch only degenerate faces get +Y so every normal
// stays unit length.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}

	for _, f := range m.Faces {
		v0 := m.Vertices[f.V[0]].Position
		v1 := m.Vertices[f.V[1]].Position
		v2 := m.Vertices[f.V[2]].Position

		// Unnormalized, so larger faces weigh more.
		n := v1.Sub(v0).Cross(v2.Sub(v0))

		for _, idx := range f.V {
			m.Vertices[idx].Normal = m.Vertices[idx].Normal.Add(n)
		}
	}

	for i := range m.Vertices {
		n := m.Vertices[i].Normal.Normalize()
		if n == math3d.Zero3() {
			n = math3d.Up()
		}
		m.Vertices[i].Normal = n
	}
}

// GetVertex returns position and normal of vertex i.
// Implements render.MeshRenderer.
func (m *Mesh) GetVertex(i int) (pos, normal math3d.Vec3) {
	v := m.Vertices[i]
	return v.Position, v.Normal
}

// GetFace returns the vertex indices of face i.
// Implements render.MeshRenderer.
func (m *Mesh) GetFace(i int) [3]int {
	return m.Faces[i].V
}

// GetBounds returns the cached bounding box.
// Implements render.MeshRenderer.
func (m *Mesh) GetBounds() math3d.Box3 {
	return m.Bounds
}
