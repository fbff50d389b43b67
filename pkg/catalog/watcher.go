package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the burst of events one save produces.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a catalog file into a live Catalog whenever the file
// changes on disk.
type Watcher struct {
	path     string
	target   *Catalog
	debounce time.Duration
	log      *zap.Logger
	watcher  *fsnotify.Watcher

	// OnReload, if set, is called after every reload attempt.
	OnReload func(err error)

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches path and reloads it into target. The parent
// directory is watched so saves that replace the file are seen.
func NewWatcher(path string, target *Catalog, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		target:   target,
		debounce: debounce,
		log:      log,
		watcher:  fw,
	}, nil
}

// Run handles file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("catalog watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

// reload swaps the file's contents into the target. A file that was moved
// or deleted leaves the live catalog as it is.
func (w *Watcher) reload() {
	next, err := loadFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		w.log.Warn("catalog file missing, keeping previous contents", zap.String("path", w.path))
		return
	}
	if err != nil {
		w.log.Warn("catalog reload failed, keeping previous contents", zap.String("path", w.path), zap.Error(err))
	} else {
		w.target.Replace(next)
		m, r, d := w.target.Counts()
		w.log.Info("catalog reloaded",
			zap.String("path", w.path),
			zap.Int("materials", m),
			zap.Int("requirements", r),
			zap.Int("designs", d))
	}
	if w.OnReload != nil {
		w.OnReload(err)
	}
}

func (w *Watcher) close() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.watcher.Close()
}
