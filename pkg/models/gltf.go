package models

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image/color"
	"math"

	"github.com/qmuntal/gltf"
)

// GLTFDecoder decodes GLB payloads and glTF JSON with embedded buffers.
// Every triangle primitive becomes its own DecodedMesh, colored by the
// primitive's base color factor when it has one.
type GLTFDecoder struct{}

// NewGLTFDecoder returns a glTF decoder.
func NewGLTFDecoder() *GLTFDecoder {
	return &GLTFDecoder{}
}

// Init is a no-op; the glTF reader is linked in.
func (d *GLTFDecoder) Init(context.Context) error {
	return nil
}

// Decode parses data as glTF/GLB.
func (d *GLTFDecoder) Decode(_ context.Context, data []byte) ([]DecodedMesh, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode gltf: %w", err)
	}

	var meshes []DecodedMesh
	for mi, m := range doc.Meshes {
		for pi, prim := range m.Primitives {
			dm, ok, err := decodePrimitive(doc, prim)
			if err != nil {
				return nil, fmt.Errorf("mesh %d (%q) primitive %d: %w", mi, m.Name, pi, err)
			}
			if !ok {
				continue
			}
			dm.Name = m.Name
			if len(m.Primitives) > 1 {
				dm.Name = fmt.Sprintf("%s#%d", m.Name, pi)
			}
			meshes = append(meshes, dm)
		}
	}

	if len(meshes) == 0 {
		return nil, fmt.Errorf("%w: gltf has no triangle primitives", ErrMalformedMesh)
	}
	return meshes, nil
}

// decodePrimitive reports ok=false for primitives that are not triangle lists
// or carry no positions.
func decodePrimitive(doc *gltf.Document, prim *gltf.Primitive) (DecodedMesh, bool, error) {
	if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
		return DecodedMesh{}, false, nil
	}
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return DecodedMesh{}, false, nil
	}

	var dm DecodedMesh
	var err error

	dm.Positions, err = readVec3(doc, posIdx)
	if err != nil {
		return dm, false, fmt.Errorf("read positions: %w", err)
	}

	if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
		dm.Normals, err = readVec3(doc, normIdx)
		if err != nil {
			return dm, false, fmt.Errorf("read normals: %w", err)
		}
	}

	if prim.Indices != nil {
		dm.Indices, err = readIndices(doc, *prim.Indices)
		if err != nil {
			return dm, false, fmt.Errorf("read indices: %w", err)
		}
	}

	if prim.Material != nil && *prim.Material < len(doc.Materials) {
		dm.Color = baseColor(doc.Materials[*prim.Material])
	}
	return dm, true, nil
}

func baseColor(mat *gltf.Material) *color.RGBA {
	if mat == nil || mat.PBRMetallicRoughness == nil || mat.PBRMetallicRoughness.BaseColorFactor == nil {
		return nil
	}
	f := mat.PBRMetallicRoughness.BaseColorFactor
	return &color.RGBA{
		R: unitToByte(f[0]),
		G: unitToByte(f[1]),
		B: unitToByte(f[2]),
		A: 255,
	}
}

func unitToByte(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// accessorBytes returns the buffer backing an accessor plus the first byte
// offset and element stride.
func accessorBytes(doc *gltf.Document, idx int, elemSize int) ([]byte, int, int, *gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, 0, 0, nil, fmt.Errorf("%w: accessor %d out of range", ErrMalformedMesh, idx)
	}
	acc := doc.Accessors[idx]
	if acc.BufferView == nil {
		return nil, 0, 0, nil, fmt.Errorf("%w: accessor %d has no buffer view", ErrMalformedMesh, idx)
	}
	if *acc.BufferView >= len(doc.BufferViews) {
		return nil, 0, 0, nil, fmt.Errorf("%w: buffer view %d out of range", ErrMalformedMesh, *acc.BufferView)
	}
	view := doc.BufferViews[*acc.BufferView]
	if view.Buffer >= len(doc.Buffers) {
		return nil, 0, 0, nil, fmt.Errorf("%w: buffer %d out of range", ErrMalformedMesh, view.Buffer)
	}
	buf := doc.Buffers[view.Buffer]
	if buf.Data == nil {
		return nil, 0, 0, nil, fmt.Errorf("%w: buffer %d has no embedded data", ErrMalformedMesh, view.Buffer)
	}

	start := view.ByteOffset + acc.ByteOffset
	stride := view.ByteStride
	if stride == 0 {
		stride = elemSize
	}
	if acc.Count > 0 {
		end := start + (acc.Count-1)*stride + elemSize
		if start < 0 || end > len(buf.Data) {
			return nil, 0, 0, nil, fmt.Errorf("%w: accessor %d reads past buffer end", ErrMalformedMesh, idx)
		}
	}
	return buf.Data, start, stride, acc, nil
}

func readVec3(doc *gltf.Document, idx int) ([]float32, error) {
	if idx >= 0 && idx < len(doc.Accessors) {
		acc := doc.Accessors[idx]
		if acc.Type != gltf.AccessorVec3 || acc.ComponentType != gltf.ComponentFloat {
			return nil, fmt.Errorf("%w: expected float VEC3, got %v/%v", ErrMalformedMesh, acc.Type, acc.ComponentType)
		}
	}
	data, start, stride, acc, err := accessorBytes(doc, idx, 12)
	if err != nil {
		return nil, err
	}

	out := make([]float32, 0, acc.Count*3)
	for i := range acc.Count {
		off := start + i*stride
		for j := range 3 {
			out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(data[off+j*4:])))
		}
	}
	return out, nil
}

func readIndices(doc *gltf.Document, idx int) ([]uint32, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d out of range", ErrMalformedMesh, idx)
	}

	var size int
	switch doc.Accessors[idx].ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("%w: unsupported index type %v", ErrMalformedMesh, doc.Accessors[idx].ComponentType)
	}

	data, start, stride, acc, err := accessorBytes(doc, idx, size)
	if err != nil {
		return nil, err
	}

	out := make([]uint32, acc.Count)
	for i := range acc.Count {
		off := start + i*stride
		switch size {
		case 1:
			out[i] = uint32(data[off])
		case 2:
			out[i] = uint32(binary.LittleEndian.Uint16(data[off:]))
		case 4:
			out[i] = binary.LittleEndian.Uint32(data[off:])
		}
	}
	return out, nil
}
