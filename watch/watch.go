// Package watch reloads theory files when they change on disk.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 200 * time.Millisecond

// ReloadFunc is called with the path of a file that settled after changes.
type ReloadFunc func(ctx context.Context, path string) error

type Stats struct {
	Events        int
	Reloads       int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// Watcher watches the directories of a set of files. Editors often replace
// files instead of writing them, so events are matched by path.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	files    map[string]bool
	reload   ReloadFunc
	debounce time.Duration
	pending  map[string]time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stats    Stats
	log      *zap.Logger
}

func New(files []string, debounce time.Duration, reload ReloadFunc, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	tracked := make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		tracked[abs] = true
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  w,
		files:    tracked,
		reload:   reload,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		log:      log,
	}, nil
}

// Start watches in a new goroutine until ctx ends or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.mu.Unlock()
			return err
		}
		w.log.Debug("watching", zap.String("dir", dir))
	}
	w.running = true
	w.mu.Unlock()

	go w.run(ctx)
	return nil
}

// Stop ends watching and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.log.Error("closing watcher", zap.Error(err))
	}
}

func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 2
	debounceTicker := time.NewTicker(tick)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-debounceTicker.C:
			w.processDebounced(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	path, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.files[path] {
		return
	}
	w.stats.Events++
	w.stats.LastEventPath = path
	w.stats.LastEventTime = time.Now()
	w.pending[path] = time.Now()
}

func (w *Watcher) processDebounced(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		err := w.reload(ctx, path)
		w.mu.Lock()
		if err != nil {
			w.stats.Errors++
		} else {
			w.stats.Reloads++
		}
		w.mu.Unlock()
		if err != nil {
			w.log.Error("reload failed", zap.String("path", path), zap.Error(err))
			continue
		}
		w.log.Info("reloaded", zap.String("path", path))
	}
}
