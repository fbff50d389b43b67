package models

import "github.com/taigrr/designview/pkg/math3d"

// NewBox builds an axis-aligned cube of the given edge length centered on
// the origin. Each side has its own four vertices so the normals stay flat.
func NewBox(name string, size float64) *Mesh {
	h := size / 2
	x, y, z := math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), math3d.V3(0, 0, 1)

	// normal, u, v with u × v = normal so corners wind counter-clockwise
	// seen from outside.
	sides := [6][3]math3d.Vec3{
		{x, y, z},
		{x.Negate(), z, y},
		{y, z, x},
		{y.Negate(), x, z},
		{z, x, y},
		{z.Negate(), y, x},
	}

	mesh := NewMesh(name)
	mesh.Vertices = make([]MeshVertex, 0, 24)
	mesh.Faces = make([]Face, 0, 12)

	for _, s := range sides {
		n, u, v := s[0], s[1], s[2]
		c := n.Scale(h)
		base := len(mesh.Vertices)
		for _, k := range [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			p := c.Add(u.Scale(k[0] * h)).Add(v.Scale(k[1] * h))
			mesh.Vertices = append(mesh.Vertices, MeshVertex{Position: p, Normal: n})
		}
		mesh.Faces = append(mesh.Faces,
			Face{V: [3]int{base, base + 1, base + 2}},
			Face{V: [3]int{base, base + 2, base + 3}},
		)
	}

	mesh.CalculateBounds()
	return mesh
}
