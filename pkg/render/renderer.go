package render

import (
	"errors"
	"fmt"
)

// ErrDisposed is returned when rendering after Dispose.
var ErrDisposed = errors.New("renderer disposed")

// Renderer draws a scene from a camera onto its surface.
type Renderer interface {
	SetSize(width, height int) error
	Render(scene *Scene, camera *Camera) error
	Dispose()
}

// SoftwareRenderer rasterizes on the CPU and hands each frame to a Surface.
type SoftwareRenderer struct {
	fb      *Framebuffer
	raster  *Rasterizer
	surface Surface
	frames  uint64
}

var _ Renderer = (*SoftwareRenderer)(nil)

// NewSoftwareRenderer creates a renderer of the given pixel size.
func NewSoftwareRenderer(surface Surface, width, height int) *SoftwareRenderer {
	fb := NewFramebuffer(width, height)
	r := &SoftwareRenderer{
		fb:      fb,
		raster:  NewRasterizer(nil, fb),
		surface: surface,
	}
	if surface != nil {
		_ = surface.Resize(fb.Width, fb.Height)
	}
	return r
}

// SetSize resizes the framebuffer, Z-buffer and surface.
func (r *SoftwareRenderer) SetSize(width, height int) error {
	if r.fb == nil {
		return ErrDisposed
	}
	r.fb.Resize(width, height)
	r.raster.Resize()
	if r.surface != nil {
		if err := r.surface.Resize(r.fb.Width, r.fb.Height); err != nil {
			return fmt.Errorf("resize surface: %w", err)
		}
	}
	return nil
}

// Size returns the framebuffer size in pixels.
func (r *SoftwareRenderer) Size() (int, int) {
	if r.fb == nil {
		return 0, 0
	}
	return r.fb.Width, r.fb.Height
}

// Framebuffer returns the frame being drawn into.
func (r *SoftwareRenderer) Framebuffer() *Framebuffer {
	return r.fb
}

// Stats returns the culling statistics of the last frame.
func (r *SoftwareRenderer) Stats() CullingStats {
	if r.raster == nil {
		return CullingStats{}
	}
	return r.raster.CullingStats
}

// Frames returns the number of frames rendered.
func (r *SoftwareRenderer) Frames() uint64 {
	return r.frames
}

// Render draws one frame and presents it.
func (r *SoftwareRenderer) Render(scene *Scene, camera *Camera) error {
	if r.fb == nil {
		return ErrDisposed
	}
	r.fb.Clear(scene.Background)
	r.raster.Begin(camera)
	scene.draw(r.raster)
	r.frames++

	if r.surface == nil {
		return nil
	}
	if err := r.surface.Present(r.fb); err != nil {
		return fmt.Errorf("present frame: %w", err)
	}
	return nil
}

// Dispose releases the buffers and closes the surface. It is safe to call
// more than once and on a nil renderer.
func (r *SoftwareRenderer) Dispose() {
	if r == nil || r.fb == nil {
		return
	}
	if r.surface != nil {
		_ = r.surface.Close()
	}
	r.fb = nil
	r.raster = nil
}
