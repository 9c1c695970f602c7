// Package preview turns filesystem changes under the source tree into
// debounced rebuilds.
package preview

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/metrics"
	"git.home.luguber.info/inful/mdsite/internal/rebuild"
)

// DefaultDebounce is the quiet period after the last event before a rebuild starts.
const DefaultDebounce = 300 * time.Millisecond

// Rebuilder performs one full build.
type Rebuilder interface {
	Rebuild(ctx context.Context, trigger string) rebuild.Result
}

// Watcher watches a source directory recursively and rebuilds on change.
type Watcher struct {
	sourceDir string
	outputDir string
	debounce  time.Duration
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(w *Watcher) { w.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher creates a watcher for sourceDir. Events under outputDir, or its
// staging siblings, never trigger rebuilds.
func NewWatcher(sourceDir, outputDir string, opts ...Option) *Watcher {
	w := &Watcher{
		sourceDir: sourceDir,
		outputDir: outputDir,
		debounce:  DefaultDebounce,
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
	}
	if abs, err := filepath.Abs(sourceDir); err == nil {
		w.sourceDir = abs
	}
	if abs, err := filepath.Abs(outputDir); err == nil {
		w.outputDir = abs
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. A failure to set up the watcher is
// returned as a watcher error; failures of individual rebuilds are left to
// the Rebuilder to report and never stop the loop.
func (w *Watcher) Run(ctx context.Context, rb Rebuilder) error {
	fsw, err := w.setupFileWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	rebuildReq, trigger, stop := w.setupRebuildDebouncer()
	defer stop()
	done := w.startRebuildWorker(ctx, rb, rebuildReq)

	w.logger.Info("Watching for changes", logfields.Source(w.sourceDir))
	for {
		select {
		case <-ctx.Done():
			stop()
			close(rebuildReq)
			<-done
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleFileEvent(fsw, ev, trigger)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// setupFileWatcher creates and configures the filesystem watcher.
func (w *Watcher) setupFileWatcher() (*fsnotify.Watcher, error) {
	if st, err := os.Stat(w.sourceDir); err != nil || !st.IsDir() {
		return nil, ferrors.WatcherError("source directory not found or not a directory").
			WithCause(err).
			WithContext("path", w.sourceDir).
			Build()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WatcherError("create filesystem watcher").WithCause(err).Build()
	}
	if err := w.addDirsRecursive(fsw, w.sourceDir); err != nil {
		_ = fsw.Close()
		return nil, ferrors.WatcherError("watch source directory").WithCause(err).WithContext("path", w.sourceDir).Build()
	}
	return fsw, nil
}

// setupRebuildDebouncer returns the rebuild channel, a trigger that (re)arms
// the debounce timer, and a stop func that disarms it.
func (w *Watcher) setupRebuildDebouncer() (chan struct{}, func(), func()) {
	var mu sync.Mutex
	var timer *time.Timer
	stopped := false
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			mu.Lock()
			defer mu.Unlock()
			if stopped {
				return
			}
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		stopped = true
		if timer != nil {
			timer.Stop()
		}
	}
	return rebuildReq, trigger, stop
}

// startRebuildWorker processes rebuild requests one at a time. Requests that
// arrive while a build runs collapse into a single follow-up build.
func (w *Watcher) startRebuildWorker(ctx context.Context, rb Rebuilder, rebuildReq chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-rebuildReq:
				if !ok {
					return
				}
				w.logger.Info("Change detected; rebuilding site")
				rb.Rebuild(ctx, rebuild.TriggerWatch)
			}
		}
	}()
	return done
}

// handleFileEvent processes a filesystem event and triggers a rebuild if needed.
func (w *Watcher) handleFileEvent(fsw *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if w.shouldIgnorePath(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addDirsRecursive(fsw, ev.Name)
		}
	}
	w.recorder.IncWatchEvent(opLabel(ev.Op))
	w.logger.Debug("File change detected", logfields.Path(ev.Name), logfields.Op(ev.Op.String()))
	trigger()
}

func (w *Watcher) addDirsRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || w.underOutput(path)) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			if path == root {
				return err
			}
			w.logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

func (w *Watcher) shouldIgnorePath(path string) bool {
	return shouldIgnoreEvent(path) || w.underOutput(path)
}

// underOutput reports whether path is the output directory, inside it, or one
// of its staging siblings.
func (w *Watcher) underOutput(path string) bool {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if path == w.outputDir || strings.HasPrefix(path, w.outputDir+string(filepath.Separator)) {
		return true
	}
	return strings.HasPrefix(path, w.outputDir+".staging-") || strings.HasPrefix(path, w.outputDir+".old-")
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger rebuilds.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	// hidden files are never part of the site
	if strings.HasPrefix(base, ".") {
		return true
	}

	// editor temp/swap files
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	return base == "Thumbs.db"
}

func opLabel(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Chmod):
		return "chmod"
	default:
		return "other"
	}
}
