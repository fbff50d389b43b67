package render

import (
	"image"
	"image/color"
	"sync"

	uv "github.com/charmbracelet/ultraviolet"
)

// Draw converts the framebuffer to terminal cells and draws them on the
// screen. The framebuffer height should be 2x the terminal height.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	// Each terminal row represents 2 framebuffer rows:
	// ▀ (upper half block) with fg=top color and bg=bottom color.
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := row * 2
		botY := topY + 1

		for col := area.Min.X; col < area.Max.X && col < fb.Width; col++ {
			cell := &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: rgbaToColor(fb.GetPixel(col, topY)),
					Bg: rgbaToColor(fb.GetPixel(col, botY)),
				},
			}
			scr.SetCell(col, row, cell)
		}
	}
}

// rgbaToColor converts color.RGBA to Go's color.Color interface.
func rgbaToColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil // Transparent = no color
	}
	return c
}

// TerminalScreen is the part of *uv.Terminal a TerminalSurface draws on.
type TerminalScreen interface {
	Draw(d uv.Drawable)
	Display() error
}

// TerminalSurface presents frames as half-block cells with an optional
// status line on the bottom row.
type TerminalSurface struct {
	scr TerminalScreen

	mu     sync.Mutex
	status string
	closed bool
}

// NewTerminalSurface wraps a terminal screen.
func NewTerminalSurface(scr TerminalScreen) *TerminalSurface {
	return &TerminalSurface{scr: scr}
}

// SetStatus sets the text drawn over the bottom row. Empty hides it.
func (s *TerminalSurface) SetStatus(text string) {
	s.mu.Lock()
	s.status = text
	s.mu.Unlock()
}

// resizableScreen is implemented by *uv.Terminal.
type resizableScreen interface {
	Erase()
	Resize(width, height int) error
}

// Resize resizes the terminal buffer to hold a width x height framebuffer.
// Screens that cannot resize are left alone.
func (s *TerminalSurface) Resize(width, height int) error {
	rs, ok := s.scr.(resizableScreen)
	if !ok || width <= 0 || height <= 0 {
		return nil
	}
	rs.Erase()
	return rs.Resize(width, (height+1)/2)
}

func (s *TerminalSurface) Present(fb *Framebuffer) error {
	s.mu.Lock()
	status, closed := s.status, s.closed
	s.mu.Unlock()
	if closed {
		return nil
	}

	s.scr.Draw(uv.DrawableFunc(func(scr uv.Screen, area uv.Rectangle) {
		fb.Draw(scr, area)
		if status != "" && area.Dy() > 0 {
			line := image.Rect(area.Min.X, area.Max.Y-1, area.Max.X, area.Max.Y)
			uv.NewStyledString(status).Draw(scr, line)
		}
	}))
	return s.scr.Display()
}

func (s *TerminalSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
