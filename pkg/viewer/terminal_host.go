package viewer

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/designview/pkg/render"
)

const (
	// mouse drag in cells to orbit radians
	dragRotateSpeed = 0.03
	wheelZoomIn     = 0.9
	wheelZoomOut    = 1.1
	keyRotateStep   = 0.1

	helpText    = " drag: orbit | right/shift-drag: pan | wheel +/-: zoom | r: reset | q: quit "
	loadingText = " loading design... "
)

// TerminalHost shows the viewer in a terminal using half-block cells, two
// framebuffer rows per terminal row.
type TerminalHost struct {
	term    *uv.Terminal
	out     io.Writer
	surface *render.TerminalSurface

	resizes chan Size
	input   chan InputEvent
	stop    chan struct{}

	mu       sync.Mutex
	size     Size
	loading  bool
	help     bool
	started  bool
	released bool

	releaseOnce sync.Once
	wg          sync.WaitGroup
}

var _ Host = (*TerminalHost)(nil)

// NewTerminalHost wraps the process terminal.
func NewTerminalHost() (*TerminalHost, error) {
	term := uv.DefaultTerminal()
	cols, rows, err := term.GetSize()
	if err != nil {
		return nil, fmt.Errorf("get terminal size: %w", err)
	}
	return &TerminalHost{
		term:    term,
		out:     os.Stdout,
		surface: render.NewTerminalSurface(term),
		resizes: make(chan Size, 4),
		input:   make(chan InputEvent, 64),
		stop:    make(chan struct{}),
		size:    Size{cols, rows * 2},
	}, nil
}

// Start puts the terminal into the alternate screen with mouse tracking
// and begins translating its events.
func (h *TerminalHost) Start() error {
	if err := h.term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	h.term.EnterAltScreen()
	h.term.HideCursor()

	fmt.Fprint(h.out, "\x1b[?1003h") // any-event mouse tracking
	fmt.Fprint(h.out, "\x1b[?1006h") // SGR extended mouse mode

	h.mu.Lock()
	h.started = true
	h.mu.Unlock()

	h.wg.Add(1)
	go h.pump()
	return nil
}

func (h *TerminalHost) Size() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size.Width, h.size.Height
}

func (h *TerminalHost) Surface() render.Surface { return h.surface }

func (h *TerminalHost) Resizes() <-chan Size { return h.resizes }

func (h *TerminalHost) Input() <-chan InputEvent { return h.input }

func (h *TerminalHost) SetLoading(loading bool) {
	h.mu.Lock()
	h.loading = loading
	h.mu.Unlock()
	h.updateStatus()
}

// Release stops event delivery. The terminal stays in the alternate
// screen until Close.
func (h *TerminalHost) Release() {
	h.releaseOnce.Do(func() {
		h.mu.Lock()
		h.released = true
		h.mu.Unlock()
		close(h.stop)
	})
}

// Close releases the host and restores the terminal.
func (h *TerminalHost) Close(ctx context.Context) error {
	h.Release()

	h.mu.Lock()
	started := h.started
	h.started = false
	h.mu.Unlock()
	if !started {
		return nil
	}

	fmt.Fprint(h.out, "\x1b[?1003l")
	fmt.Fprint(h.out, "\x1b[?1006l")
	h.term.ExitAltScreen()
	h.term.ShowCursor()
	err := h.term.Shutdown(ctx)
	h.wg.Wait()
	return err
}

func (h *TerminalHost) updateStatus() {
	h.mu.Lock()
	loading, help := h.loading, h.help
	h.mu.Unlock()

	switch {
	case loading:
		h.surface.SetStatus(loadingText)
	case help:
		h.surface.SetStatus(helpText)
	default:
		h.surface.SetStatus("")
	}
}

func (h *TerminalHost) pump() {
	defer h.wg.Done()

	var t inputTranslator
	events := h.term.Events()
	for {
		select {
		case <-h.stop:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if sz, ok := ev.(uv.WindowSizeEvent); ok {
				h.resized(sz.Width, sz.Height)
				continue
			}
			if k, ok := ev.(uv.KeyPressEvent); ok && k.MatchString("?", "shift+/") {
				h.mu.Lock()
				h.help = !h.help
				h.mu.Unlock()
				h.updateStatus()
				continue
			}
			h.mu.Lock()
			cols := h.size.Width
			h.mu.Unlock()
			for _, in := range t.translate(ev, cols) {
				h.deliver(in)
			}
		}
	}
}

func (h *TerminalHost) resized(cols, rows int) {
	sz := Size{cols, rows * 2}
	h.mu.Lock()
	h.size = sz
	h.mu.Unlock()
	select {
	case h.resizes <- sz:
	case <-h.stop:
	}
}

func (h *TerminalHost) deliver(ev InputEvent) {
	select {
	case h.input <- ev:
	case <-h.stop:
	}
}

// inputTranslator turns raw terminal events into viewer input, tracking
// the drag in progress.
type inputTranslator struct {
	dragging bool
	panning  bool
	lastX    int
	lastY    int
}

func (t *inputTranslator) translate(ev uv.Event, cols int) []InputEvent {
	switch ev := ev.(type) {
	case uv.KeyPressEvent:
		switch {
		case ev.MatchString("q", "escape", "ctrl+c"):
			return []InputEvent{{Kind: InputQuit}}
		case ev.MatchString("r"):
			return []InputEvent{{Kind: InputReset}}
		case ev.MatchString("+", "="):
			return []InputEvent{{Kind: InputZoom, Factor: wheelZoomIn}}
		case ev.MatchString("-", "_"):
			return []InputEvent{{Kind: InputZoom, Factor: wheelZoomOut}}
		case ev.MatchString("a", "left"):
			return []InputEvent{{Kind: InputRotate, DX: keyRotateStep}}
		case ev.MatchString("d", "right"):
			return []InputEvent{{Kind: InputRotate, DX: -keyRotateStep}}
		case ev.MatchString("w", "up"):
			return []InputEvent{{Kind: InputRotate, DY: keyRotateStep}}
		case ev.MatchString("s", "down"):
			return []InputEvent{{Kind: InputRotate, DY: -keyRotateStep}}
		}

	case uv.MouseClickEvent:
		t.dragging = true
		t.panning = ev.Button == uv.MouseRight || ev.Mod.Contains(uv.ModShift)
		t.lastX, t.lastY = ev.X, ev.Y

	case uv.MouseReleaseEvent:
		t.dragging, t.panning = false, false

	case uv.MouseMotionEvent:
		if !t.dragging {
			return nil
		}
		dx, dy := ev.X-t.lastX, ev.Y-t.lastY
		t.lastX, t.lastY = ev.X, ev.Y
		if dx == 0 && dy == 0 {
			return nil
		}
		if t.panning {
			scale := 1 / float64(max(cols, 1))
			return []InputEvent{{Kind: InputPan, DX: float64(dx) * scale, DY: float64(dy) * scale}}
		}
		return []InputEvent{{Kind: InputRotate, DX: -float64(dx) * dragRotateSpeed, DY: -float64(dy) * dragRotateSpeed}}

	case uv.MouseWheelEvent:
		switch ev.Button {
		case uv.MouseWheelUp:
			return []InputEvent{{Kind: InputZoom, Factor: wheelZoomIn}}
		case uv.MouseWheelDown:
			return []InputEvent{{Kind: InputZoom, Factor: wheelZoomOut}}
		}
	}
	return nil
}
