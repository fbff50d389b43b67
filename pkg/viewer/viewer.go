// Package viewer loads a design file, builds a scene from it and keeps the
// scene on screen with orbit controls until disposed. One goroutine (Run)
// owns the scene, camera, controls and renderer; everything else talks to
// it through channels.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taigrr/designview/pkg/math3d"
	"github.com/taigrr/designview/pkg/models"
	"github.com/taigrr/designview/pkg/render"
)

var (
	// ErrInvalidState is returned when an operation is called in the wrong
	// lifecycle state.
	ErrInvalidState = errors.New("invalid viewer state")

	// ErrDisposed is returned by requests made after Dispose.
	ErrDisposed = errors.New("viewer disposed")
)

// State is the viewer lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateInitialized
	StateRunning
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// FrameScheduler paces the render loop.
type FrameScheduler interface {
	C() <-chan time.Time
	Stop()
}

type tickerScheduler struct{ t *time.Ticker }

// NewTickerScheduler ticks fps times per second.
func NewTickerScheduler(fps int) FrameScheduler {
	return tickerScheduler{t: time.NewTicker(time.Second / time.Duration(max(fps, 1)))}
}

func (s tickerScheduler) C() <-chan time.Time { return s.t.C }
func (s tickerScheduler) Stop()               { s.t.Stop() }

// Options configures a Viewer.
type Options struct {
	FPS           int
	LoadTimeout   time.Duration
	FOV           float64 // vertical, degrees
	Background    render.Color
	DampingFactor float64

	// Scheduler overrides the frame ticker.
	Scheduler FrameScheduler
	Logger    *zap.Logger
}

// DefaultOptions returns the stock viewer settings.
func DefaultOptions() Options {
	return Options{
		FPS:           30,
		LoadTimeout:   15 * time.Second,
		FOV:           45,
		Background:    render.Hex(0x1a1a2e),
		DampingFactor: DefaultDampingFactor,
	}
}

// Snapshot is a consistent copy of the viewer's state.
type Snapshot struct {
	State       State
	Model       *render.Group
	ModelGroups int
	Camera      render.Camera
	Target      math3d.Vec3
	MinDistance float64
	MaxDistance float64
	Width       int
	Height      int
	Loading     bool
	Err         error
	Frames      uint64
	Generation  uint64
}

type (
	loadResult struct {
		gen    uint64
		meshes []models.DecodedMesh
		err    error
	}
	loadTimeout     struct{ gen uint64 }
	resizeRequest   struct{ size Size }
	resetRequest    struct{}
	frameRequest    struct{ reply chan error }
	snapshotRequest struct{ reply chan Snapshot }
)

// Viewer is the interactive design viewer.
type Viewer struct {
	opts   Options
	host   Host
	loader *Loader
	log    *zap.Logger

	state atomic.Int32

	mu       sync.Mutex
	running  bool
	disposed bool
	settled  chan struct{}

	done         chan struct{}
	events       chan any
	disposeOnce  sync.Once
	teardownOnce sync.Once

	// Owned by the Run goroutine once it starts.
	scene       *render.Scene
	camera      *render.Camera
	controls    *OrbitControls
	renderer    *render.SoftwareRenderer
	builder     *SceneBuilder
	ref         DesignReference
	gen         uint64
	loading     bool
	timer       *time.Timer
	lastErr     error
	loadCtx     context.Context
	cancelLoads context.CancelFunc
}

// New creates a viewer in the Uninitialized state.
func New(host Host, loader *Loader, opts Options) *Viewer {
	def := DefaultOptions()
	if opts.FPS <= 0 {
		opts.FPS = def.FPS
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = def.LoadTimeout
	}
	if opts.FOV <= 0 || opts.FOV >= 180 {
		opts.FOV = def.FOV
	}
	if opts.Background == (render.Color{}) {
		opts.Background = def.Background
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Viewer{
		opts:   opts,
		host:   host,
		loader: loader,
		log:    opts.Logger,
		done:   make(chan struct{}),
		events: make(chan any, 16),
	}
}

// State returns the lifecycle state. Safe from any goroutine.
func (v *Viewer) State() State {
	if v == nil {
		return StateDisposed
	}
	return State(v.state.Load())
}

// Activate builds the scene, camera, controls and renderer, then starts
// loading ref. It must be called once, before Run.
func (v *Viewer) Activate(ctx context.Context, ref DesignReference) error {
	v.mu.Lock()
	if v.disposed || v.State() != StateUninitialized {
		v.mu.Unlock()
		return fmt.Errorf("activate: %w (%s)", ErrInvalidState, v.State())
	}
	v.mu.Unlock()

	if v.host == nil {
		return errors.New("activate: no host")
	}
	if v.loader == nil {
		return errors.New("activate: no loader")
	}

	w, h := v.host.Size()

	v.scene = render.NewScene(v.opts.Background)
	v.scene.AddLight(
		render.NewAmbientLight(render.ColorWhite, 0.6),
		render.NewDirectionalLight(render.ColorWhite, 0.8, math3d.V3(100, 100, 100)),
		render.NewDirectionalLight(render.ColorWhite, 0.4, math3d.V3(-100, -100, -100)),
	)
	v.scene.AddHelper(
		render.NewGridHelper(200, 20, render.Hex(0x444444), render.Hex(0x888888)),
		render.NewAxesHelper(50),
	)

	v.camera = render.NewCamera(v.opts.FOV)
	v.camera.SetAspect(w, h)
	v.controls = NewOrbitControls(v.camera, v.opts.FPS, v.opts.DampingFactor)
	v.renderer = render.NewSoftwareRenderer(v.host.Surface(), w, h)
	v.builder = NewSceneBuilder(v.scene)
	v.loadCtx, v.cancelLoads = context.WithCancel(ctx)

	v.state.Store(int32(StateInitialized))
	v.log.Debug("viewer initialized", zap.Int("width", w), zap.Int("height", h))

	v.startLoad(ref)
	return nil
}

// Run drives frames, loads, resizes and input until ctx is done or the
// viewer is disposed. Everything the viewer owns is released before Run
// returns.
func (v *Viewer) Run(ctx context.Context) error {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return ErrDisposed
	}
	if v.State() != StateInitialized {
		v.mu.Unlock()
		return fmt.Errorf("run: %w (%s)", ErrInvalidState, v.State())
	}
	v.running = true
	v.state.Store(int32(StateRunning))
	v.mu.Unlock()

	sched := v.opts.Scheduler
	if sched == nil {
		sched = NewTickerScheduler(v.opts.FPS)
	}
	defer sched.Stop()
	defer v.teardown()

	resizes := v.host.Resizes()
	input := v.host.Input()

	for {
		select {
		case <-ctx.Done():
			v.Dispose()
			return nil
		case <-v.done:
			return nil
		case <-sched.C():
			_ = v.frame()
		case sz, ok := <-resizes:
			if !ok {
				resizes = nil
				continue
			}
			v.resize(sz)
		case ev, ok := <-input:
			if !ok {
				input = nil
				continue
			}
			if v.handleInput(ev) {
				v.Dispose()
				return nil
			}
		case ev := <-v.events:
			v.handle(ev)
		}
	}
}

// Settle blocks until the current load has settled (success or fallback).
func (v *Viewer) Settle(ctx context.Context) error {
	v.mu.Lock()
	settled := v.settled
	v.mu.Unlock()
	if settled == nil {
		return fmt.Errorf("settle: %w (%s)", ErrInvalidState, v.State())
	}

	select {
	case <-settled:
		return nil
	case <-v.done:
		return ErrDisposed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resize asks the render loop to adapt to a new viewport size.
func (v *Viewer) Resize(width, height int) {
	v.post(resizeRequest{Size{width, height}})
}

// ResetView asks the render loop to reframe the current model, or return
// to the default pose when there is none.
func (v *Viewer) ResetView() {
	v.post(resetRequest{})
}

// Frame renders one frame immediately and waits for it.
func (v *Viewer) Frame(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := v.request(ctx, frameRequest{reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-v.done:
		return ErrDisposed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the viewer state taken on the render loop.
func (v *Viewer) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := v.request(ctx, snapshotRequest{reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-v.done:
		return Snapshot{}, ErrDisposed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Dispose stops the viewer and releases everything it owns. It is safe to
// call more than once, from any goroutine, on a nil viewer, and after a
// partially failed Activate.
func (v *Viewer) Dispose() {
	if v == nil {
		return
	}
	v.disposeOnce.Do(func() {
		v.mu.Lock()
		v.disposed = true
		running := v.running
		v.mu.Unlock()

		close(v.done)
		if !running {
			v.teardown()
		}
	})
}

func (v *Viewer) teardown() {
	v.teardownOnce.Do(func() {
		if v.timer != nil {
			v.timer.Stop()
		}
		if v.cancelLoads != nil {
			v.cancelLoads()
		}
		if v.host != nil {
			v.host.Release()
		}
		v.controls.Dispose()
		v.renderer.Dispose()
		v.state.Store(int32(StateDisposed))
		v.log.Debug("viewer disposed")
	})
}

func (v *Viewer) post(ev any) {
	select {
	case v.events <- ev:
	case <-v.done:
	}
}

func (v *Viewer) request(ctx context.Context, ev any) error {
	select {
	case v.events <- ev:
		return nil
	case <-v.done:
		return ErrDisposed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startLoad tags a new load attempt with a fresh generation. Completions
// and timeouts carrying an older generation are ignored.
func (v *Viewer) startLoad(ref DesignReference) {
	v.gen++
	gen := v.gen
	v.ref = ref
	v.loading = true

	v.mu.Lock()
	v.settled = make(chan struct{})
	v.mu.Unlock()

	v.host.SetLoading(true)

	if ref == "" {
		v.settle(nil, nil)
		return
	}

	v.log.Info("loading design", zap.String("url", string(ref)))
	v.timer = time.AfterFunc(v.opts.LoadTimeout, func() {
		v.post(loadTimeout{gen: gen})
	})

	ctx := v.loadCtx
	go func() {
		meshes, err := v.loader.Load(ctx, ref)
		v.post(loadResult{gen: gen, meshes: meshes, err: err})
	}()
}

// settle installs the outcome of the current load. Any failure leaves the
// placeholder attached.
func (v *Viewer) settle(meshes []models.DecodedMesh, err error) {
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.loading = false

	if err == nil && len(meshes) > 0 {
		if _, ierr := v.builder.Install(meshes); ierr != nil {
			err = &DecodeError{URL: string(v.ref), Err: ierr}
		}
	}
	if err != nil || len(meshes) == 0 {
		v.builder.InstallPlaceholder()
	}

	if err != nil {
		v.log.Warn("design load failed, showing placeholder",
			zap.String("url", string(v.ref)),
			zap.String("kind", Classify(err)),
			zap.Error(err))
	} else if len(meshes) > 0 {
		v.log.Info("design loaded", zap.String("url", string(v.ref)), zap.Int("meshes", len(meshes)))
	}

	FitCamera(v.builder.Current(), v.camera, v.controls)
	v.lastErr = err
	v.host.SetLoading(false)

	v.mu.Lock()
	close(v.settled)
	v.mu.Unlock()
}

func (v *Viewer) handle(ev any) {
	switch ev := ev.(type) {
	case loadResult:
		if ev.gen != v.gen || !v.loading {
			v.log.Debug("discarding stale load result", zap.Uint64("generation", ev.gen))
			return
		}
		v.settle(ev.meshes, ev.err)
	case loadTimeout:
		if ev.gen != v.gen || !v.loading {
			return
		}
		// Move on; the in-flight load now carries a stale generation.
		v.gen++
		v.settle(nil, fmt.Errorf("%w after %s", ErrTimeoutExceeded, v.opts.LoadTimeout))
	case resizeRequest:
		v.resize(ev.size)
	case resetRequest:
		v.resetView()
	case frameRequest:
		ev.reply <- v.frame()
	case snapshotRequest:
		ev.reply <- v.snapshot()
	}
}

// handleInput applies one input event and reports whether it asked to
// quit.
func (v *Viewer) handleInput(ev InputEvent) bool {
	switch ev.Kind {
	case InputRotate:
		v.controls.Rotate(ev.DX, ev.DY)
	case InputPan:
		v.controls.Pan(ev.DX, ev.DY)
	case InputZoom:
		v.controls.Zoom(ev.Factor)
	case InputReset:
		v.resetView()
	case InputQuit:
		return true
	}
	return false
}

func (v *Viewer) frame() error {
	v.controls.Update()
	if err := v.renderer.Render(v.scene, v.camera); err != nil {
		v.log.Debug("render frame", zap.Error(err))
		return err
	}
	return nil
}

// resize updates the aspect ratio and drawable size; the camera position
// is left alone.
func (v *Viewer) resize(sz Size) {
	if sz.Width <= 0 || sz.Height <= 0 {
		return
	}
	v.camera.SetAspect(sz.Width, sz.Height)
	if err := v.renderer.SetSize(sz.Width, sz.Height); err != nil {
		v.log.Warn("resize renderer", zap.Error(err))
	}
}

func (v *Viewer) resetView() {
	ResetCamera(v.builder.Current(), v.camera, v.controls)
}

func (v *Viewer) snapshot() Snapshot {
	w, h := v.renderer.Size()
	return Snapshot{
		State:       v.State(),
		Model:       v.builder.Current(),
		ModelGroups: len(v.scene.ModelGroups()),
		Camera:      *v.camera,
		Target:      v.controls.Target,
		MinDistance: v.controls.MinDistance,
		MaxDistance: v.controls.MaxDistance,
		Width:       w,
		Height:      h,
		Loading:     v.loading,
		Err:         v.lastErr,
		Frames:      v.renderer.Frames(),
		Generation:  v.gen,
	}
}
