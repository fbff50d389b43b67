package models

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/qmuntal/gltf"
)

func intPtr(i int) *int { return &i }

// buildGLB encodes a document with two triangle primitives: one indexed with
// normals and a red material, one unindexed without normals.
func buildGLB(t *testing.T) []byte {
	t.Helper()

	var bin bytes.Buffer
	write := func(v any) int {
		off := bin.Len()
		if err := binary.Write(&bin, binary.LittleEndian, v); err != nil {
			t.Fatal(err)
		}
		return off
	}

	posA := write([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	normA := write([]float32{0, 0, 1, 0, 0, 1, 0, 0, 1})
	idxA := write([]uint16{0, 1, 2, 0}) // padded to 4-byte alignment
	posB := write([]float32{0, 0, 5, 2, 0, 5, 0, 2, 5})

	doc := &gltf.Document{
		Asset:   gltf.Asset{Version: "2.0"},
		Buffers: []*gltf.Buffer{{ByteLength: bin.Len(), Data: bin.Bytes()}},
		BufferViews: []*gltf.BufferView{
			{Buffer: 0, ByteOffset: posA, ByteLength: 36},
			{Buffer: 0, ByteOffset: normA, ByteLength: 36},
			{Buffer: 0, ByteOffset: idxA, ByteLength: 6},
			{Buffer: 0, ByteOffset: posB, ByteLength: 36},
		},
		Accessors: []*gltf.Accessor{
			{BufferView: intPtr(0), ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.AccessorVec3},
			{BufferView: intPtr(1), ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.AccessorVec3},
			{BufferView: intPtr(2), ComponentType: gltf.ComponentUshort, Count: 3, Type: gltf.AccessorScalar},
			{BufferView: intPtr(3), ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.AccessorVec3},
		},
		Materials: []*gltf.Material{{
			Name: "red",
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &[4]float64{1, 0, 0, 1},
			},
		}},
		Meshes: []*gltf.Mesh{
			{Name: "bracket", Primitives: []*gltf.Primitive{{
				Attributes: map[string]int{gltf.POSITION: 0, gltf.NORMAL: 1},
				Indices:    intPtr(2),
				Material:   intPtr(0),
			}}},
			{Name: "plate", Primitives: []*gltf.Primitive{{
				Attributes: map[string]int{gltf.POSITION: 3},
			}}},
		},
	}

	var out bytes.Buffer
	enc := gltf.NewEncoder(&out)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		t.Fatalf("encode glb: %v", err)
	}
	return out.Bytes()
}

func TestGLTFDecodeTwoMeshes(t *testing.T) {
	data := buildGLB(t)
	if got := DetectFormat(data); got != FormatGLB {
		t.Fatalf("DetectFormat = %v, want glb", got)
	}

	meshes, err := NewGLTFDecoder().Decode(context.Background(), data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}

	a, b := meshes[0], meshes[1]
	if a.Name != "bracket" || b.Name != "plate" {
		t.Errorf("names = %q, %q", a.Name, b.Name)
	}
	if !a.HasNormals() || len(a.Indices) != 3 {
		t.Errorf("first mesh should carry normals and 3 indices, got normals=%v indices=%d", a.HasNormals(), len(a.Indices))
	}
	if a.Color == nil || a.Color.R != 255 || a.Color.G != 0 {
		t.Errorf("first mesh color = %v, want red", a.Color)
	}
	if b.HasNormals() || b.Color != nil {
		t.Error("second mesh should have neither normals nor color")
	}
	if b.Positions[2] != 5 {
		t.Errorf("second mesh z = %f, want 5", b.Positions[2])
	}

	mesh, err := b.ToMesh()
	if err != nil {
		t.Fatalf("ToMesh: %v", err)
	}
	_, n := mesh.GetVertex(0)
	if math.Abs(n.Len()-1) > 1e-6 {
		t.Errorf("computed normal length %f, want 1", n.Len())
	}
}

func TestGLTFDecodeInvalid(t *testing.T) {
	_, err := NewGLTFDecoder().Decode(context.Background(), []byte("glTF garbage"))
	if err == nil {
		t.Error("expected error for invalid glb")
	}
}
