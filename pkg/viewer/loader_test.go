package viewer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/designview/pkg/models"
)

const asciiSTL = `solid part
facet normal 0 0 1
  outer loop
    vertex 0 0 0
    vertex 1 0 0
    vertex 0 1 0
  endloop
endfacet
endsolid part
`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoaderEmptyReference(t *testing.T) {
	dec := &fakeDecoder{}
	l := NewLoader(nil, dec, nil)

	meshes, err := l.Load(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, meshes)
	assert.Zero(t, dec.inits.Load(), "empty reference must not init the decoder")
}

func TestLoaderNotFound(t *testing.T) {
	srv := serve(t, http.StatusNotFound, "missing")
	l := NewLoader(srv.Client(), &fakeDecoder{}, nil)

	_, err := l.Load(context.Background(), DesignReference(srv.URL+"/part.stl"))
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.Equal(t, "transport", Classify(err))
}

func TestLoaderUnreachable(t *testing.T) {
	srv := serve(t, http.StatusOK, "")
	url := srv.URL
	srv.Close()

	l := NewLoader(nil, &fakeDecoder{}, nil)
	_, err := l.Load(context.Background(), DesignReference(url))
	assert.Equal(t, "transport", Classify(err))
}

func TestLoaderBackendInitRunsOnce(t *testing.T) {
	srv := serve(t, http.StatusOK, asciiSTL)
	dec := &fakeDecoder{initErr: errors.New("no mesher")}
	l := NewLoader(srv.Client(), dec, nil)

	for range 2 {
		_, err := l.Load(context.Background(), DesignReference(srv.URL))
		var be *BackendInitError
		require.ErrorAs(t, err, &be)
	}
	assert.EqualValues(t, 1, dec.inits.Load())
	assert.Zero(t, dec.decodes.Load())
}

func TestLoaderDecodeErrors(t *testing.T) {
	srv := serve(t, http.StatusOK, "payload")

	tests := []struct {
		name string
		dec  *fakeDecoder
		kind string
	}{
		{"decoder error", &fakeDecoder{err: errors.New("bad bytes")}, "decode"},
		{"no meshes", &fakeDecoder{}, "decode"},
		{"malformed mesh", &fakeDecoder{meshes: []models.DecodedMesh{{Positions: []float32{1, 2}}}}, "decode"},
		{"backend unavailable for format", &fakeDecoder{err: fmt.Errorf("%w: gmsh missing", models.ErrBackendInit)}, "backend_init"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader(srv.Client(), tt.dec, nil)
			_, err := l.Load(context.Background(), DesignReference(srv.URL))
			require.Error(t, err)
			assert.Equal(t, tt.kind, Classify(err))
		})
	}
}

func TestLoaderPayloadTooLarge(t *testing.T) {
	srv := serve(t, http.StatusOK, asciiSTL)
	l := NewLoader(srv.Client(), &fakeDecoder{}, nil)
	l.MaxBytes = 16

	_, err := l.Load(context.Background(), DesignReference(srv.URL))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Equal(t, "transport", Classify(err))
}

func TestLoaderDecodesSTL(t *testing.T) {
	srv := serve(t, http.StatusOK, asciiSTL)
	l := NewLoader(srv.Client(), models.NewAutoDecoder(nil), nil)

	meshes, err := l.Load(context.Background(), DesignReference(srv.URL+"/part.stl"))
	require.NoError(t, err)
	require.Len(t, meshes, 1)
	assert.Equal(t, 3, meshes[0].VertexCount())
}

func TestLoaderRejectsNonFiniteSTL(t *testing.T) {
	body := strings.Replace(asciiSTL, "vertex 0 0 0", "vertex nan 1000 0", 1)
	srv := serve(t, http.StatusOK, body)
	l := NewLoader(srv.Client(), models.NewAutoDecoder(nil), nil)

	meshes, err := l.Load(context.Background(), DesignReference(srv.URL+"/part.stl"))
	require.Error(t, err)
	assert.Nil(t, meshes)
	assert.Equal(t, "decode", Classify(err))
	assert.ErrorIs(t, err, models.ErrMalformedMesh)
}

func TestLoaderRejectsNonFiniteDecoderOutput(t *testing.T) {
	srv := serve(t, http.StatusOK, "payload")
	dec := &fakeDecoder{meshes: []models.DecodedMesh{{
		Positions: []float32{float32(math.Inf(-1)), 0, 0, 1, 0, 0, 0, 1, 0},
	}}}
	l := NewLoader(srv.Client(), dec, nil)

	_, err := l.Load(context.Background(), DesignReference(srv.URL))
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.ErrorIs(t, err, models.ErrMalformedMesh)
}

func TestLoaderHonorsContext(t *testing.T) {
	srv := serve(t, http.StatusOK, asciiSTL)
	l := NewLoader(srv.Client(), &fakeDecoder{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Load(ctx, DesignReference(srv.URL))
	assert.ErrorIs(t, err, context.Canceled)
}
