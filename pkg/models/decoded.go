package models

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/taigrr/designview/pkg/math3d"
)

// ErrMalformedMesh marks decoded mesh data that cannot form triangles.
var ErrMalformedMesh = errors.New("malformed mesh")

// DecodedMesh is one triangle soup as handed over by a decoder backend.
// Positions and Normals use a stride of 3. Normals and Indices are optional;
// without Indices every three consecutive positions form a triangle.
type DecodedMesh struct {
	Name      string
	Positions []float32
	Normals   []float32
	Indices   []uint32
	Color     *color.RGBA
}

// VertexCount returns len(Positions)/3.
func (d DecodedMesh) VertexCount() int {
	return len(d.Positions) / 3
}

// HasNormals reports whether the decoder supplied normals.
func (d DecodedMesh) HasNormals() bool {
	return len(d.Normals) > 0
}

// Validate checks array strides, index ranges and that every coordinate is
// a finite number.
func (d DecodedMesh) Validate() error {
	switch {
	case len(d.Positions) == 0:
		return fmt.Errorf("%w: no positions", ErrMalformedMesh)
	case len(d.Positions)%3 != 0:
		return fmt.Errorf("%w: %d position floats is not a multiple of 3", ErrMalformedMesh, len(d.Positions))
	case len(d.Normals) > 0 && len(d.Normals) != len(d.Positions):
		return fmt.Errorf("%w: %d normal floats for %d position floats", ErrMalformedMesh, len(d.Normals), len(d.Positions))
	case len(d.Indices)%3 != 0:
		return fmt.Errorf("%w: %d indices is not a multiple of 3", ErrMalformedMesh, len(d.Indices))
	case len(d.Indices) == 0 && d.VertexCount()%3 != 0:
		return fmt.Errorf("%w: %d unindexed vertices is not a multiple of 3", ErrMalformedMesh, d.VertexCount())
	}

	if i := firstNonFinite(d.Positions); i >= 0 {
		return fmt.Errorf("%w: position float %d is %v", ErrMalformedMesh, i, d.Positions[i])
	}
	if i := firstNonFinite(d.Normals); i >= 0 {
		return fmt.Errorf("%w: normal float %d is %v", ErrMalformedMesh, i, d.Normals[i])
	}

	n := uint32(d.VertexCount())
	for i, idx := range d.Indices {
		if idx >= n {
			return fmt.Errorf("%w: index %d at %d out of range (%d vertices)", ErrMalformedMesh, idx, i, n)
		}
	}
	return nil
}

func firstNonFinite(vs []float32) int {
	for i, v := range vs {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return i
		}
	}
	return -1
}

// ToMesh converts the record into an indexed Mesh. Missing normals are
// computed as smooth vertex normals.
func (d DecodedMesh) ToMesh() (*Mesh, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	mesh := NewMesh(d.Name)
	count := d.VertexCount()
	mesh.Vertices = make([]MeshVertex, count)
	for i := range count {
		mesh.Vertices[i].Position = vec3At(d.Positions, i)
		if d.HasNormals() {
			mesh.Vertices[i].Normal = vec3At(d.Normals, i).Normalize()
		}
	}

	if len(d.Indices) > 0 {
		mesh.Faces = make([]Face, 0, len(d.Indices)/3)
		for i := 0; i+2 < len(d.Indices); i += 3 {
			mesh.Faces = append(mesh.Faces, Face{V: [3]int{
				int(d.Indices[i]),
				int(d.Indices[i+1]),
				int(d.Indices[i+2]),
			}})
		}
	} else {
		mesh.Faces = make([]Face, 0, count/3)
		for i := 0; i+2 < count; i += 3 {
			mesh.Faces = append(mesh.Faces, Face{V: [3]int{i, i + 1, i + 2}})
		}
	}

	if !d.HasNormals() {
		mesh.CalculateSmoothNormals()
	}
	mesh.CalculateBounds()
	return mesh, nil
}

func vec3At(buf []float32, i int) math3d.Vec3 {
	return math3d.V3(float64(buf[i*3]), float64(buf[i*3+1]), float64(buf[i*3+2]))
}
