package models

import (
	"errors"
	"math"
	"testing"
)

func TestToMeshComputesUnitNormals(t *testing.T) {
	d := DecodedMesh{
		Name: "quad",
		Positions: []float32{
			0, 0, 0,
			1, 0, 0,
			1, 1, 0,
			0, 1, 0,
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}

	mesh, err := d.ToMesh()
	if err != nil {
		t.Fatalf("ToMesh: %v", err)
	}
	if mesh.TriangleCount() != 2 {
		t.Errorf("expected 2 triangles, got %d", mesh.TriangleCount())
	}
	for i, v := range mesh.Vertices {
		if l := v.Normal.Len(); math.Abs(l-1) > 1e-6 {
			t.Errorf("vertex %d normal length %f, want 1", i, l)
		}
		if v.Normal.Z < 0.999 {
			t.Errorf("vertex %d normal %v should face +Z", i, v.Normal)
		}
	}
}

func TestToMeshUnindexedUsesTriples(t *testing.T) {
	d := DecodedMesh{
		Positions: []float32{
			0, 0, 0, 1, 0, 0, 0, 1, 0,
			0, 0, 1, 1, 0, 1, 0, 1, 1,
		},
	}
	mesh, err := d.ToMesh()
	if err != nil {
		t.Fatalf("ToMesh: %v", err)
	}
	if mesh.TriangleCount() != 2 {
		t.Fatalf("expected 2 triangles, got %d", mesh.TriangleCount())
	}
	if mesh.GetFace(1) != [3]int{3, 4, 5} {
		t.Errorf("second face = %v, want [3 4 5]", mesh.GetFace(1))
	}
	if size := mesh.Bounds.Size(); size.Z != 1 {
		t.Errorf("bounds depth = %f, want 1", size.Z)
	}
}

func TestToMeshKeepsSuppliedNormals(t *testing.T) {
	d := DecodedMesh{
		Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:   []float32{0, 0, 2, 0, 0, 2, 0, 0, 2},
	}
	mesh, err := d.ToMesh()
	if err != nil {
		t.Fatalf("ToMesh: %v", err)
	}
	_, n := mesh.GetVertex(0)
	if n.Z != 1 {
		t.Errorf("supplied normal should be normalized to +Z, got %v", n)
	}
}

func TestValidateRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		mesh DecodedMesh
	}{
		{"empty", DecodedMesh{}},
		{"bad stride", DecodedMesh{Positions: []float32{0, 0}}},
		{"normal mismatch", DecodedMesh{Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, Normals: []float32{0, 0, 1}}},
		{"partial triangle", DecodedMesh{Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, Indices: []uint32{0, 1}}},
		{"index out of range", DecodedMesh{Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, Indices: []uint32{0, 1, 3}}},
		{"unindexed remainder", DecodedMesh{Positions: []float32{0, 0, 0, 1, 0, 0}}},
		{"nan position", DecodedMesh{Positions: []float32{float32(math.NaN()), 1000, 0, 1, 0, 0, 0, 1, 0}}},
		{"infinite position", DecodedMesh{Positions: []float32{0, 0, 0, float32(math.Inf(1)), 0, 0, 0, 1, 0}}},
		{"nan normal", DecodedMesh{
			Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
			Normals:   []float32{0, 0, 1, 0, 0, 1, 0, float32(math.NaN()), 1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mesh.Validate()
			if !errors.Is(err, ErrMalformedMesh) {
				t.Errorf("expected ErrMalformedMesh, got %v", err)
			}
			if _, err := tt.mesh.ToMesh(); err == nil {
				t.Error("ToMesh should fail too")
			}
		})
	}
}

func TestSmoothNormalsOnDegenerateFace(t *testing.T) {
	mesh := NewMesh("point")
	mesh.Vertices = []MeshVertex{{}, {}, {}}
	mesh.Faces = []Face{{V: [3]int{0, 1, 2}}}
	mesh.CalculateSmoothNormals()

	for i, v := range mesh.Vertices {
		if l := v.Normal.Len(); math.Abs(l-1) > 1e-9 {
			t.Errorf("vertex %d normal length %f, want 1", i, l)
		}
	}
}
