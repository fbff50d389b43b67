package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/taigrr/designview/pkg/models"
)

// DefaultMaxBytes bounds a design file download.
const DefaultMaxBytes = 256 << 20

// DesignReference is the URL of a design file. Empty means no model.
type DesignReference string

// MeshDecoder turns a design file into meshes. Init is called once before
// the first Decode.
type MeshDecoder interface {
	Init(ctx context.Context) error
	Decode(ctx context.Context, data []byte) ([]models.DecodedMesh, error)
}

// Loader fetches design files over HTTP and decodes them.
type Loader struct {
	Client   *http.Client
	Decoder  MeshDecoder
	MaxBytes int64

	log      *zap.Logger
	initOnce sync.Once
	initErr  error
}

// NewLoader creates a loader. A nil client uses http.DefaultClient; a nil
// logger discards output.
func NewLoader(client *http.Client, decoder MeshDecoder, log *zap.Logger) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		Client:   client,
		Decoder:  decoder,
		MaxBytes: DefaultMaxBytes,
		log:      log,
	}
}

// Load runs init, fetch and decode in order. An empty reference returns
// (nil, nil) without touching the network or the decoder.
func (l *Loader) Load(ctx context.Context, ref DesignReference) ([]models.DecodedMesh, error) {
	if ref == "" {
		return nil, nil
	}
	url := string(ref)

	if err := l.initBackend(ctx); err != nil {
		return nil, err
	}

	data, err := l.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	l.log.Debug("fetched design", zap.String("url", url), zap.Int("bytes", len(data)))

	meshes, err := l.Decoder.Decode(ctx, data)
	if errors.Is(err, models.ErrBackendInit) {
		return nil, &BackendInitError{Err: err}
	}
	if err != nil {
		return nil, &DecodeError{URL: url, Err: err}
	}
	if len(meshes) == 0 {
		return nil, &DecodeError{URL: url, Err: errors.New("no meshes in payload")}
	}
	for i := range meshes {
		if err := meshes[i].Validate(); err != nil {
			return nil, &DecodeError{URL: url, Err: fmt.Errorf("mesh %d (%s): %w", i, meshes[i].Name, err)}
		}
	}
	return meshes, nil
}

func (l *Loader) initBackend(ctx context.Context) error {
	l.initOnce.Do(func() {
		if l.Decoder == nil {
			l.initErr = &BackendInitError{Err: errors.New("no decoder configured")}
			return
		}
		if err := l.Decoder.Init(ctx); err != nil {
			l.initErr = &BackendInitError{Err: err}
		}
	})
	return l.initErr
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode}
	}

	limit := l.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > limit {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, limit)}
	}
	return data, nil
}
