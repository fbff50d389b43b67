package models

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// STLDecoder parses ASCII and binary STL. The whole file becomes a single
// unindexed mesh; facet normals are kept only when every facet has one.
type STLDecoder struct{}

// NewSTLDecoder returns an STL decoder.
func NewSTLDecoder() *STLDecoder {
	return &STLDecoder{}
}

// Init is a no-op; STL needs no backend.
func (d *STLDecoder) Init(context.Context) error {
	return nil
}

// Decode parses data as STL.
func (d *STLDecoder) Decode(_ context.Context, data []byte) ([]DecodedMesh, error) {
	var (
		mesh DecodedMesh
		err  error
	)
	switch DetectFormat(data) {
	case FormatSTLBinary:
		mesh, err = parseBinarySTL(bytes.NewReader(data))
	case FormatSTLASCII:
		mesh, err = parseASCIISTL(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: not an STL payload", ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	if len(mesh.Positions) == 0 {
		return nil, fmt.Errorf("%w: STL has no facets", ErrMalformedMesh)
	}
	return []DecodedMesh{mesh}, nil
}

type stlBuilder struct {
	mesh          DecodedMesh
	normals       []float32
	missingNormal bool
}

func (b *stlBuilder) addFacet(normal [3]float32, verts [3][3]float32) {
	if normal == [3]float32{} {
		b.missingNormal = true
	}
	for _, v := range verts {
		b.mesh.Positions = append(b.mesh.Positions, v[0], v[1], v[2])
		b.normals = append(b.normals, normal[0], normal[1], normal[2])
	}
}

func (b *stlBuilder) finish() DecodedMesh {
	if !b.missingNormal {
		b.mesh.Normals = b.normals
	}
	return b.mesh
}

func parseASCIISTL(r io.Reader) (DecodedMesh, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		b      stlBuilder
		normal [3]float32
		verts  [][3]float32
		line   int
	)

	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "solid":
			if len(fields) > 1 {
				b.mesh.Name = strings.Join(fields[1:], " ")
			}
		case "facet":
			normal = [3]float32{}
			if len(fields) >= 5 && fields[1] == "normal" {
				v, err := parseTriple(fields[2:5])
				if err != nil {
					return DecodedMesh{}, fmt.Errorf("line %d: facet normal: %w", line, err)
				}
				normal = v
			}
		case "vertex":
			if len(fields) < 4 {
				return DecodedMesh{}, fmt.Errorf("%w: line %d: vertex needs 3 coordinates", ErrMalformedMesh, line)
			}
			v, err := parseTriple(fields[1:4])
			if err != nil {
				return DecodedMesh{}, fmt.Errorf("line %d: vertex: %w", line, err)
			}
			verts = append(verts, v)
		case "endfacet":
			if len(verts) != 3 {
				return DecodedMesh{}, fmt.Errorf("%w: line %d: facet has %d vertices", ErrMalformedMesh, line, len(verts))
			}
			b.addFacet(normal, [3][3]float32{verts[0], verts[1], verts[2]})
			verts = verts[:0]
		}
	}

	if err := scanner.Err(); err != nil {
		return DecodedMesh{}, fmt.Errorf("read ascii stl: %w", err)
	}
	return b.finish(), nil
}

func parseTriple(fields []string) ([3]float32, error) {
	var out [3]float32
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return out, fmt.Errorf("%w: %v", ErrMalformedMesh, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return out, fmt.Errorf("%w: non-finite coordinate %q", ErrMalformedMesh, f)
		}
		out[i] = float32(v)
	}
	return out, nil
}

// stlRecord is the 50-byte binary facet record.
type stlRecord struct {
	Normal    [3]float32
	Vertices  [3][3]float32
	Attribute uint16
}

func parseBinarySTL(r io.Reader) (DecodedMesh, error) {
	header := make([]byte, 80)
	if _, err := io.ReadFull(r, header); err != nil {
		return DecodedMesh{}, fmt.Errorf("read stl header: %w", err)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return DecodedMesh{}, fmt.Errorf("read triangle count: %w", err)
	}

	var b stlBuilder
	b.mesh.Name = strings.TrimSpace(string(bytes.TrimRight(header, "\x00")))
	b.mesh.Positions = make([]float32, 0, int(count)*9)
	b.normals = make([]float32, 0, int(count)*9)

	var rec stlRecord
	for i := range count {
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return DecodedMesh{}, fmt.Errorf("read triangle %d: %w", i, err)
		}
		for _, v := range rec.Vertices {
			for _, c := range v {
				if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
					return DecodedMesh{}, fmt.Errorf("%w: triangle %d has a non-finite coordinate", ErrMalformedMesh, i)
				}
			}
		}
		b.addFacet(rec.Normal, rec.Vertices)
	}
	return b.finish(), nil
}
