package viewer

import (
	"context"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taigrr/designview/pkg/math3d"
	"github.com/taigrr/designview/pkg/models"
)

// manualScheduler never ticks; tests drive frames with Viewer.Frame.
type manualScheduler struct{ c chan time.Time }

func (m manualScheduler) C() <-chan time.Time { return m.c }
func (m manualScheduler) Stop()               {}

type harness struct {
	viewer *Viewer
	host   *HeadlessHost
	dec    *fakeDecoder
	logs   *observer.ObservedLogs
	runErr chan error
}

func testOptions(log *zap.Logger) Options {
	opts := DefaultOptions()
	opts.Scheduler = manualScheduler{}
	opts.Logger = log
	opts.DampingFactor = 0
	return opts
}

func startViewer(t *testing.T, ref DesignReference, dec *fakeDecoder, client *http.Client, tweak func(*Options)) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	host := NewHeadlessHost(800, 600)
	opts := testOptions(log)
	if tweak != nil {
		tweak(&opts)
	}
	v := New(host, NewLoader(client, dec, log), opts)
	require.NoError(t, v.Activate(context.Background(), ref))

	h := &harness{viewer: v, host: host, dec: dec, logs: logs, runErr: make(chan error, 1)}
	go func() { h.runErr <- v.Run(context.Background()) }()
	t.Cleanup(func() {
		v.Dispose()
		select {
		case <-h.runErr:
		case <-time.After(2 * time.Second):
			t.Error("Run did not return after Dispose")
		}
	})
	return h
}

func (h *harness) settle(t *testing.T) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.viewer.Settle(ctx))
	return h.snapshot(t)
}

func (h *harness) snapshot(t *testing.T) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := h.viewer.Snapshot(ctx)
	require.NoError(t, err)
	return s
}

func assertVecNear(t *testing.T, want, got math3d.Vec3, msg string) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-6, msg)
	assert.InDelta(t, want.Y, got.Y, 1e-6, msg)
	assert.InDelta(t, want.Z, got.Z, 1e-6, msg)
}

func TestViewerEmptyReferenceShowsPlaceholder(t *testing.T) {
	h := startViewer(t, "", &fakeDecoder{}, nil, nil)
	s := h.settle(t)

	assert.Equal(t, StateRunning, s.State)
	require.NotNil(t, s.Model)
	assert.True(t, s.Model.Placeholder)
	assert.Equal(t, 1, s.ModelGroups)
	assert.NoError(t, s.Err)
	assert.False(t, s.Loading)
	assert.Zero(t, h.dec.inits.Load())
	assert.Equal(t, []bool{true, false}, h.host.LoadingHistory())

	// A 20 unit cube framed with a 45 degree FOV.
	want := ComputeFit(s.Model.Bounds(), 45*math.Pi/180)
	assert.InDelta(t, 20, want.MaxDim, 1e-9)
	assertVecNear(t, want.Position, s.Camera.Position, "camera position")
	assertVecNear(t, math3d.Zero3(), s.Target, "controls target")
	assert.InDelta(t, 0.02, s.Camera.Near, 1e-9)
	assert.InDelta(t, 2000, s.Camera.Far, 1e-9)
	assert.InDelta(t, 2, s.MinDistance, 1e-9)
	assert.InDelta(t, 200, s.MaxDistance, 1e-9)
}

func TestViewerNotFoundFallsBack(t *testing.T) {
	srv := serve(t, http.StatusNotFound, "")
	h := startViewer(t, DesignReference(srv.URL+"/missing.stl"), &fakeDecoder{}, srv.Client(), nil)
	s := h.settle(t)

	require.NotNil(t, s.Model)
	assert.True(t, s.Model.Placeholder)
	assert.Equal(t, 1, s.ModelGroups)
	assert.Equal(t, "transport", Classify(s.Err))
	assert.False(t, h.host.Loading())

	warned := h.logs.FilterMessage("design load failed, showing placeholder").All()
	require.Len(t, warned, 1)
	assert.Equal(t, "transport", warned[0].ContextMap()["kind"])
}

func TestViewerLoadsMeshes(t *testing.T) {
	srv := serve(t, http.StatusOK, "payload")
	dec := &fakeDecoder{meshes: []models.DecodedMesh{
		triangleMesh("lid", 0, true),
		triangleMesh("base", 10, false),
	}}
	h := startViewer(t, DesignReference(srv.URL), dec, srv.Client(), nil)
	s := h.settle(t)

	require.NoError(t, s.Err)
	require.NotNil(t, s.Model)
	assert.False(t, s.Model.Placeholder)
	assert.Equal(t, 1, s.ModelGroups)

	meshes := s.Model.Meshes()
	require.Len(t, meshes, 2)
	for _, m := range meshes {
		for i := range m.Geometry.VertexCount() {
			_, n := m.Geometry.GetVertex(i)
			assert.InDelta(t, 1, n.Len(), 1e-6, "mesh %s vertex %d normal", m.Name, i)
		}
	}

	assertVecNear(t, math3d.V3(5, 5, 5), s.Target, "target at bounds center")
	assertVecNear(t, ComputeFit(s.Model.Bounds(), s.Camera.FOV).Position, s.Camera.Position, "camera position")
}

func TestViewerTimeoutDiscardsLateResult(t *testing.T) {
	tests := []struct {
		name  string
		block func(dec *fakeDecoder, release chan struct{})
	}{
		{"slow decode", func(dec *fakeDecoder, release chan struct{}) { dec.block = release }},
		{"slow backend init", func(dec *fakeDecoder, release chan struct{}) { dec.initBlock = release }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, http.StatusOK, "payload")
			release := make(chan struct{})
			dec := &fakeDecoder{meshes: []models.DecodedMesh{triangleMesh("late", 0, true)}}
			tt.block(dec, release)
			h := startViewer(t, DesignReference(srv.URL), dec, srv.Client(), func(o *Options) {
				o.LoadTimeout = 50 * time.Millisecond
			})

			s := h.settle(t)
			assert.ErrorIs(t, s.Err, ErrTimeoutExceeded)
			require.NotNil(t, s.Model)
			assert.True(t, s.Model.Placeholder)
			assert.False(t, h.host.Loading())
			placeholder := s.Model

			close(release)
			require.Eventually(t, func() bool {
				return h.logs.FilterMessage("discarding stale load result").Len() == 1
			}, 2*time.Second, 10*time.Millisecond)

			s = h.snapshot(t)
			assert.Same(t, placeholder, s.Model, "late result must not replace the placeholder")
			assert.Equal(t, 1, s.ModelGroups)
			assert.False(t, placeholder.Disposed())
			assert.Equal(t, int32(1), dec.decodes.Load())
		})
	}
}

func TestViewerResizeKeepsCameraPosition(t *testing.T) {
	h := startViewer(t, "", &fakeDecoder{}, nil, nil)
	before := h.settle(t)
	assert.InDelta(t, 800.0/600.0, before.Camera.Aspect, 1e-9)

	h.host.Resize(400, 300)
	require.Eventually(t, func() bool {
		return h.snapshot(t).Width == 400
	}, 2*time.Second, 5*time.Millisecond)

	after := h.snapshot(t)
	assert.Equal(t, 300, after.Height)
	assert.InDelta(t, 4.0/3.0, after.Camera.Aspect, 1e-9)
	assertVecNear(t, before.Camera.Position, after.Camera.Position, "camera position")

	w, hh := h.host.Image().Size()
	assert.Equal(t, 400, w)
	assert.Equal(t, 300, hh)

	require.NoError(t, h.viewer.Frame(context.Background()))
	img := h.host.Image().Image()
	require.NotNil(t, img)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
}

func TestViewerFrameDrawsBackground(t *testing.T) {
	h := startViewer(t, "", &fakeDecoder{}, nil, nil)
	h.settle(t)

	require.NoError(t, h.viewer.Frame(context.Background()))
	img := h.host.Image().Image()
	require.NotNil(t, img)
	bg := DefaultOptions().Background
	background := 0
	for y := range img.Bounds().Dy() {
		for x := range img.Bounds().Dx() {
			if img.RGBAAt(x, y) == bg {
				background++
			}
		}
	}
	assert.Positive(t, background, "background should show around the model")
	assert.NotEqual(t, bg, img.RGBAAt(400, 300), "model should cover the center")
	assert.EqualValues(t, 1, h.snapshot(t).Frames)
}

func TestViewerResetViewAfterOrbit(t *testing.T) {
	h := startViewer(t, "", &fakeDecoder{}, nil, nil)
	home := h.settle(t).Camera.Position

	h.host.Send(InputEvent{Kind: InputRotate, DX: 0.5, DY: 0.2})
	require.Eventually(t, func() bool {
		_ = h.viewer.Frame(context.Background())
		return h.snapshot(t).Camera.Position.Sub(home).Len() > 1e-3
	}, 2*time.Second, 5*time.Millisecond)

	h.viewer.ResetView()
	require.Eventually(t, func() bool {
		return h.snapshot(t).Camera.Position.Sub(home).Len() < 1e-6
	}, 2*time.Second, 5*time.Millisecond)
}

func TestViewerQuitInputDisposes(t *testing.T) {
	h := startViewer(t, "", &fakeDecoder{}, nil, nil)
	h.settle(t)

	h.host.Send(InputEvent{Kind: InputQuit})
	select {
	case err := <-h.runErr:
		require.NoError(t, err)
		h.runErr <- err // let cleanup see it
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after quit")
	}
	assert.Equal(t, StateDisposed, h.viewer.State())
	assert.True(t, h.host.Released())
}

func TestViewerDispose(t *testing.T) {
	h := startViewer(t, "", &fakeDecoder{}, nil, nil)
	h.settle(t)

	h.viewer.Dispose()
	h.viewer.Dispose()

	select {
	case err := <-h.runErr:
		require.NoError(t, err)
		h.runErr <- err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Dispose")
	}

	assert.Equal(t, StateDisposed, h.viewer.State())
	assert.True(t, h.host.Released())
	assert.True(t, h.host.Image().Closed())

	_, err := h.viewer.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrDisposed)
	assert.ErrorIs(t, h.viewer.Frame(context.Background()), ErrDisposed)
	h.viewer.Resize(10, 10)
	h.viewer.ResetView()
}

func TestViewerDisposeWithoutRun(t *testing.T) {
	var nilViewer *Viewer
	nilViewer.Dispose()
	assert.Equal(t, StateDisposed, nilViewer.State())

	host := NewHeadlessHost(10, 10)
	v := New(host, NewLoader(nil, &fakeDecoder{}, nil), DefaultOptions())
	v.Dispose()
	v.Dispose()
	assert.Equal(t, StateDisposed, v.State())
	assert.True(t, host.Released())

	assert.ErrorIs(t, v.Activate(context.Background(), ""), ErrInvalidState)
	assert.ErrorIs(t, v.Run(context.Background()), ErrDisposed)
}

func TestViewerLifecycleErrors(t *testing.T) {
	v := New(NewHeadlessHost(10, 10), NewLoader(nil, &fakeDecoder{}, nil), testOptions(nil))
	assert.ErrorIs(t, v.Run(context.Background()), ErrInvalidState)
	assert.ErrorIs(t, v.Settle(context.Background()), ErrInvalidState)

	require.NoError(t, v.Activate(context.Background(), ""))
	assert.Equal(t, StateInitialized, v.State())
	assert.ErrorIs(t, v.Activate(context.Background(), ""), ErrInvalidState)
	v.Dispose()
}

func TestViewerRunStopsOnContextCancel(t *testing.T) {
	host := NewHeadlessHost(10, 10)
	v := New(host, NewLoader(nil, &fakeDecoder{}, nil), testOptions(nil))
	require.NoError(t, v.Activate(context.Background(), ""))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- v.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run ignored context cancellation")
	}
	assert.Equal(t, StateDisposed, v.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "State(9)", State(9).String())
}
