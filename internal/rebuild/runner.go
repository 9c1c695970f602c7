// Package rebuild runs full site builds one at a time and tracks their outcome.
//
// A Runner wraps site.Builder with a single-flight guard, an optional staged
// output swap, build IDs, metrics and post-build hooks (live reload, history,
// notifications). Every call to Rebuild performs exactly one full build.
package rebuild

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/metrics"
	"git.home.luguber.info/inful/mdsite/internal/site"
	"git.home.luguber.info/inful/mdsite/internal/sourcerev"
)

// Trigger names the cause of a build.
const (
	TriggerStartup  = "startup"
	TriggerWatch    = "watch"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Result describes one finished build.
type Result struct {
	ID        string
	Trigger   string
	StartedAt time.Time
	Duration  time.Duration
	Stats     site.Stats
	Revision  string
	Err       error
}

// Success reports whether the build completed without error.
func (r Result) Success() bool { return r.Err == nil }

// Hook runs after every build, successful or not. Hook errors are logged.
type Hook func(ctx context.Context, res Result) error

// Runner serializes builds of one source tree into one output directory.
type Runner struct {
	mu sync.Mutex

	builder    *site.Builder
	sourceDir  string
	outputDir  string
	atomicSwap bool
	recorder   metrics.Recorder
	logger     *slog.Logger
	revision   func(dir string) (sourcerev.Revision, error)
	hooks      []namedHook

	status *Status
}

type namedHook struct {
	name string
	fn   Hook
}

// Option configures a Runner.
type Option func(*Runner)

// WithAtomicSwap builds into a staging directory next to the output and
// renames it into place, so the output directory never appears empty.
func WithAtomicSwap(enabled bool) Option {
	return func(r *Runner) { r.atomicSwap = enabled }
}

func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithRevisionFunc overrides how the source revision is detected.
func WithRevisionFunc(fn func(dir string) (sourcerev.Revision, error)) Option {
	return func(r *Runner) { r.revision = fn }
}

// WithHook registers a post-build hook. Hooks run in registration order.
func WithHook(name string, fn Hook) Option {
	return func(r *Runner) { r.hooks = append(r.hooks, namedHook{name: name, fn: fn}) }
}

// New creates a Runner building sourceDir into outputDir.
func New(builder *site.Builder, sourceDir, outputDir string, opts ...Option) *Runner {
	r := &Runner{
		builder:   builder,
		sourceDir: sourceDir,
		outputDir: outputDir,
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
		revision:  sourcerev.Detect,
		status:    &Status{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddHook registers a hook after construction, e.g. once the server exists.
func (r *Runner) AddHook(name string, fn Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, namedHook{name: name, fn: fn})
}

// Status returns the shared build status.
func (r *Runner) Status() *Status { return r.status }

// SourceDir returns the configured source directory.
func (r *Runner) SourceDir() string { return r.sourceDir }

// OutputDir returns the configured output directory.
func (r *Runner) OutputDir() string { return r.outputDir }

// Rebuild performs one full build. Concurrent callers wait for the running
// build to finish and then run their own.
func (r *Runner) Rebuild(ctx context.Context, trigger string) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := Result{ID: uuid.NewString(), Trigger: trigger, StartedAt: time.Now()}
	log := r.logger.With(logfields.BuildID(res.ID), logfields.Trigger(trigger))
	r.recorder.IncRebuildTrigger(trigger)
	r.status.setRunning(true)
	log.Info("Building site", logfields.Source(r.sourceDir), logfields.Output(r.outputDir))

	if rev, err := r.revision(r.sourceDir); err != nil {
		log.Debug("Source revision unavailable", logfields.Error(err))
	} else {
		res.Revision = rev.String()
	}

	if r.atomicSwap {
		res.Stats, res.Err = r.buildStaged(res.ID)
	} else {
		res.Stats, res.Err = r.builder.BuildWithStats(r.sourceDir, r.outputDir)
	}
	res.Duration = time.Since(res.StartedAt)

	r.recorder.ObserveBuildDuration(res.Duration)
	if res.Err != nil {
		r.recorder.IncBuildOutcome(metrics.OutcomeFailed)
		log.Error("Build failed", logfields.Duration(res.Duration), logfields.Error(res.Err))
	} else {
		r.recorder.IncBuildOutcome(metrics.OutcomeSuccess)
		r.recorder.SetLastBuildPages(res.Stats.Pages)
		log.Info("Build completed",
			logfields.Pages(res.Stats.Pages),
			logfields.Assets(res.Stats.Assets),
			logfields.Duration(res.Duration),
			logfields.Revision(res.Revision))
	}
	r.status.record(res)

	for _, h := range r.hooks {
		if err := h.fn(ctx, res); err != nil {
			log.Warn("Post-build hook failed", slog.String("hook", h.name), logfields.Error(err))
		}
	}
	return res
}

// buildStaged builds into <out>.staging-<id> and swaps it into place.
func (r *Runner) buildStaged(id string) (site.Stats, error) {
	staging := r.outputDir + ".staging-" + id
	stats, err := r.builder.BuildWithStats(r.sourceDir, staging)
	if err != nil {
		_ = os.RemoveAll(staging)
		return stats, err
	}
	if err := swapDir(staging, r.outputDir, id); err != nil {
		_ = os.RemoveAll(staging)
		return stats, err
	}
	return stats, nil
}

// swapDir replaces dst with src. The previous dst is renamed aside first and
// removed after src is in place.
func swapDir(src, dst, id string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ferrors.FileSystemError("create output parent").WithCause(err).WithContext("path", dst).Build()
	}
	old := dst + ".old-" + id
	moved := false
	if _, err := os.Lstat(dst); err == nil {
		if err := os.Rename(dst, old); err != nil {
			return ferrors.FileSystemError("move previous output aside").WithCause(err).WithContext("path", dst).Build()
		}
		moved = true
	}
	if err := os.Rename(src, dst); err != nil {
		if moved {
			_ = os.Rename(old, dst)
		}
		return ferrors.FileSystemError("swap in new output").WithCause(err).WithContext("path", dst).Build()
	}
	if moved {
		if err := os.RemoveAll(old); err != nil {
			return ferrors.FileSystemError("remove previous output").WithCause(err).WithContext("path", old).Build()
		}
	}
	return nil
}
