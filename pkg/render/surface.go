package render

import (
	"errors"
	"image"
	"image/png"
	"io"
	"sync"
)

// ErrNoFrame is returned when an image is requested before anything was
// presented.
var ErrNoFrame = errors.New("no frame presented")

// Surface is where a finished frame ends up.
type Surface interface {
	// Resize is called whenever the renderer's pixel size changes.
	Resize(width, height int) error
	// Present shows a completed frame.
	Present(fb *Framebuffer) error
	// Close detaches the surface. Present after Close is a no-op.
	Close() error
}

// ImageSurface keeps a copy of the last presented frame. It is safe to read
// from other goroutines while a viewer renders into it.
type ImageSurface struct {
	mu     sync.Mutex
	width  int
	height int
	last   *image.RGBA
	frames int
	closed bool
}

// NewImageSurface creates an in-memory surface.
func NewImageSurface() *ImageSurface {
	return &ImageSurface{}
}

func (s *ImageSurface) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
	return nil
}

func (s *ImageSurface) Present(fb *Framebuffer) error {
	img := fb.ToImage()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.last = img
	s.frames++
	return nil
}

func (s *ImageSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Size returns the size from the last Resize.
func (s *ImageSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Frames returns how many frames were presented.
func (s *ImageSurface) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Closed reports whether Close was called.
func (s *ImageSurface) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Image returns the last presented frame, or nil.
func (s *ImageSurface) Image() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// WritePNG encodes the last presented frame.
func (s *ImageSurface) WritePNG(w io.Writer) error {
	img := s.Image()
	if img == nil {
		return ErrNoFrame
	}
	return png.Encode(w, img)
}
