package viewer

import (
	"sync"

	"github.com/taigrr/designview/pkg/render"
)

// Size is a viewport size in framebuffer pixels.
type Size struct {
	Width, Height int
}

// InputKind enumerates what a host input event asks for.
type InputKind int

const (
	InputRotate InputKind = iota // DX, DY in radians
	InputPan                     // DX, DY as fractions of the orbit distance
	InputZoom                    // Factor, <1 moves closer
	InputReset
	InputQuit
)

// InputEvent is an interaction already translated from device events.
type InputEvent struct {
	Kind   InputKind
	DX, DY float64
	Factor float64
}

// LoadingIndicator is shown while a design loads.
type LoadingIndicator interface {
	SetLoading(loading bool)
}

// Host is the environment a Viewer draws into.
type Host interface {
	LoadingIndicator

	// Size returns the current drawable size in pixels.
	Size() (width, height int)
	Surface() render.Surface
	// Resizes delivers viewport changes.
	Resizes() <-chan Size
	// Input delivers user interaction.
	Input() <-chan InputEvent
	// Release stops resize and input delivery. It must be idempotent.
	Release()
}

// HeadlessHost is a fixed-size host that renders into memory. Tests and
// the snapshot command use it.
type HeadlessHost struct {
	surface *render.ImageSurface
	resizes chan Size
	input   chan InputEvent
	stop    chan struct{}

	releaseOnce sync.Once

	mu      sync.Mutex
	size    Size
	loading bool
	toggles []bool
}

var _ Host = (*HeadlessHost)(nil)

// NewHeadlessHost creates a host of the given pixel size.
func NewHeadlessHost(width, height int) *HeadlessHost {
	return &HeadlessHost{
		surface: render.NewImageSurface(),
		resizes: make(chan Size, 4),
		input:   make(chan InputEvent, 16),
		stop:    make(chan struct{}),
		size:    Size{width, height},
	}
}

func (h *HeadlessHost) Size() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size.Width, h.size.Height
}

func (h *HeadlessHost) Surface() render.Surface { return h.surface }

// Image returns the surface holding presented frames.
func (h *HeadlessHost) Image() *render.ImageSurface { return h.surface }

func (h *HeadlessHost) Resizes() <-chan Size { return h.resizes }

func (h *HeadlessHost) Input() <-chan InputEvent { return h.input }

func (h *HeadlessHost) SetLoading(loading bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loading = loading
	h.toggles = append(h.toggles, loading)
}

// Loading reports the indicator's state.
func (h *HeadlessHost) Loading() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loading
}

// LoadingHistory returns every SetLoading call in order.
func (h *HeadlessHost) LoadingHistory() []bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bool(nil), h.toggles...)
}

// Resize changes the viewport and notifies the viewer. After Release the
// notification is dropped instead of blocking.
func (h *HeadlessHost) Resize(width, height int) {
	h.mu.Lock()
	h.size = Size{width, height}
	h.mu.Unlock()
	select {
	case h.resizes <- Size{width, height}:
	case <-h.stop:
	}
}

// Send queues an input event, or drops it once the host is released.
func (h *HeadlessHost) Send(ev InputEvent) {
	select {
	case h.input <- ev:
	case <-h.stop:
	}
}

func (h *HeadlessHost) Release() {
	h.releaseOnce.Do(func() { close(h.stop) })
}

// Released reports whether Release was called.
func (h *HeadlessHost) Released() bool {
	select {
	case <-h.stop:
		return true
	default:
		return false
	}
}
