package viewer

import (
	"errors"
	"fmt"
)

// ErrTimeoutExceeded is reported when a load does not settle within the
// load timeout. The load itself keeps running; its result is discarded.
var ErrTimeoutExceeded = errors.New("load timeout exceeded")

// ErrPayloadTooLarge is wrapped in a TransportError when a design file is
// larger than the loader's MaxBytes.
var ErrPayloadTooLarge = errors.New("payload too large")

// TransportError is a failed fetch: a network error or a non-2xx status.
type TransportError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BackendInitError means the mesh decoder could not be initialized.
type BackendInitError struct {
	Err error
}

func (e *BackendInitError) Error() string {
	return fmt.Sprintf("init decoder backend: %v", e.Err)
}

func (e *BackendInitError) Unwrap() error { return e.Err }

// DecodeError means the payload arrived but could not be turned into
// meshes.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Classify returns a short label for logs and metrics.
func Classify(err error) string {
	var (
		transport *TransportError
		backend   *BackendInitError
		decode    *DecodeError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeoutExceeded):
		return "timeout"
	case errors.As(err, &transport):
		return "transport"
	case errors.As(err, &backend):
		return "backend_init"
	case errors.As(err, &decode):
		return "decode"
	default:
		return "unknown"
	}
}
