package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWatcherReloadsOnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, New().SaveTo(path))

	live, err := Load(path)
	require.NoError(t, err)

	w, err := NewWatcher(path, live, 20*time.Millisecond, nil)
	require.NoError(t, err)
	reloads := make(chan error, 8)
	w.OnReload = func(err error) { reloads <- err }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	edited := New()
	_, err = edited.AddMaterial("Oak")
	require.NoError(t, err)
	require.NoError(t, edited.SaveTo(path))

	select {
	case err := <-reloads:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after save")
	}

	mats := live.Materials()
	require.Len(t, mats, 1)
	assert.Equal(t, "Oak", mats[0].Name)
}

func TestWatcherKeepsCatalogWhenFileMoved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	saved := New()
	_, err := saved.AddMaterial("Oak")
	require.NoError(t, err)
	require.NoError(t, saved.SaveTo(path))

	live, err := Load(path)
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)
	w, err := NewWatcher(path, live, 20*time.Millisecond, zap.New(core))
	require.NoError(t, err)
	reloads := make(chan error, 8)
	w.OnReload = func(err error) { reloads <- err }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.NoError(t, os.Rename(path, filepath.Join(dir, "catalog.yaml.bak")))

	require.Eventually(t, func() bool {
		return logs.FilterMessage("catalog file missing, keeping previous contents").Len() > 0
	}, 5*time.Second, 10*time.Millisecond)

	assert.Empty(t, reloads)
	mats := live.Materials()
	require.Len(t, mats, 1)
	assert.Equal(t, "Oak", mats[0].Name)
}

func TestWatcherRunStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	w, err := NewWatcher(path, New(), 0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, w.Run(ctx))
}
