package models

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrBackendInit is wrapped by errors from decoder backends that could
	// not be brought up (missing binary, failed self-check).
	ErrBackendInit = errors.New("decoder backend init failed")

	// ErrUnsupportedFormat is returned for payloads no decoder recognizes.
	ErrUnsupportedFormat = errors.New("unsupported design format")
)

// Decoder converts a design file payload into meshes. Init is called once
// before the first Decode and may be slow.
type Decoder interface {
	Init(ctx context.Context) error
	Decode(ctx context.Context, data []byte) ([]DecodedMesh, error)
}

// Format identifies a design file encoding.
type Format int

const (
	FormatUnknown Format = iota
	FormatGLB
	FormatGLTF
	FormatSTLASCII
	FormatSTLBinary
	FormatSTEP
)

func (f Format) String() string {
	switch f {
	case FormatGLB:
		return "glb"
	case FormatGLTF:
		return "gltf"
	case FormatSTLASCII:
		return "stl-ascii"
	case FormatSTLBinary:
		return "stl-binary"
	case FormatSTEP:
		return "step"
	default:
		return "unknown"
	}
}

// DetectFormat sniffs the payload. It never reads past the first 512 bytes
// except to check the binary STL length invariant.
func DetectFormat(data []byte) Format {
	head := data[:min(len(data), 512)]
	trimmed := bytes.TrimLeft(head, " \t\r\n\ufeff")

	switch {
	case bytes.HasPrefix(head, []byte("glTF")):
		return FormatGLB
	case bytes.HasPrefix(trimmed, []byte("ISO-10303-21")):
		return FormatSTEP
	case bytes.HasPrefix(trimmed, []byte("{")):
		return FormatGLTF
	}

	// Binary STL headers may also start with "solid", so check the
	// size invariant first.
	if len(data) >= 84 {
		n := binary.LittleEndian.Uint32(data[80:84])
		if uint64(len(data)) == 84+uint64(n)*50 {
			return FormatSTLBinary
		}
	}
	if bytes.HasPrefix(trimmed, []byte("solid")) {
		return FormatSTLASCII
	}
	return FormatUnknown
}

// AutoDecoder sniffs each payload and hands it to the matching backend.
// A backend whose Init fails only breaks payloads of its own format.
type AutoDecoder struct {
	GLTF *GLTFDecoder
	STL  *STLDecoder
	STEP *STEPDecoder

	mu      sync.Mutex
	initErr map[Format]error
}

// NewAutoDecoder wires the default backends. step may be nil to disable
// STEP support.
func NewAutoDecoder(step *STEPDecoder) *AutoDecoder {
	return &AutoDecoder{
		GLTF: NewGLTFDecoder(),
		STL:  NewSTLDecoder(),
		STEP: step,
	}
}

// Init initializes every configured backend. It fails only when no backend
// at all is usable.
func (a *AutoDecoder) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.initErr = make(map[Format]error)
	var errs []error
	usable := 0

	record := func(err error, formats ...Format) {
		for _, f := range formats {
			a.initErr[f] = err
		}
		if err != nil {
			errs = append(errs, err)
		} else {
			usable++
		}
	}

	if a.GLTF != nil {
		record(a.GLTF.Init(ctx), FormatGLB, FormatGLTF)
	}
	if a.STL != nil {
		record(a.STL.Init(ctx), FormatSTLASCII, FormatSTLBinary)
	}
	if a.STEP != nil {
		record(a.STEP.Init(ctx), FormatSTEP)
	}

	if usable == 0 {
		if len(errs) == 0 {
			return fmt.Errorf("%w: no decoders configured", ErrBackendInit)
		}
		return errors.Join(errs...)
	}
	return nil
}

// Decode dispatches on the sniffed format.
func (a *AutoDecoder) Decode(ctx context.Context, data []byte) ([]DecodedMesh, error) {
	format := DetectFormat(data)

	a.mu.Lock()
	err, known := a.initErr[format]
	a.mu.Unlock()
	if known && err != nil {
		return nil, err
	}

	switch format {
	case FormatGLB, FormatGLTF:
		if a.GLTF != nil {
			return a.GLTF.Decode(ctx, data)
		}
	case FormatSTLASCII, FormatSTLBinary:
		if a.STL != nil {
			return a.STL.Decode(ctx, data)
		}
	case FormatSTEP:
		if a.STEP != nil {
			return a.STEP.Decode(ctx, data)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}
