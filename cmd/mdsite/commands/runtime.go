package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/mdsite/internal/config"
	"git.home.luguber.info/inful/mdsite/internal/content"
	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/history"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/metrics"
	"git.home.luguber.info/inful/mdsite/internal/notify"
	"git.home.luguber.info/inful/mdsite/internal/rebuild"
	"git.home.luguber.info/inful/mdsite/internal/site"
)

// runtime holds the components shared by the build-running commands.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prom.Registry
	recorder metrics.Recorder
	history  history.Store
	runner   *rebuild.Runner
	closers  []func() error
}

// newRuntime wires converter, builder, runner and the optional history,
// notification and metrics components from cfg.
func newRuntime(cfg *config.Config, logger *slog.Logger, withMetrics bool) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger, recorder: metrics.NoopRecorder{}}
	if withMetrics {
		rt.registry = metrics.NewRegistry()
		rt.recorder = metrics.NewPrometheusRecorder(rt.registry)
	}

	var conv content.Converter = content.NewMarkdownConverter(logger)
	conv, err := content.NewCachingConverter(conv, cfg.Build.CacheSize)
	if err != nil {
		return nil, ferrors.ConfigError("create conversion cache").WithCause(err).Build()
	}
	builder := site.NewBuilder(
		site.WithConverter(conv),
		site.WithClassifier(site.NewClassifier(cfg.Build.Passthrough...)),
		site.WithRecorder(rt.recorder),
		site.WithLogger(logger),
	)

	opts := []rebuild.Option{
		rebuild.WithAtomicSwap(cfg.Build.AtomicSwap),
		rebuild.WithRecorder(rt.recorder),
		rebuild.WithLogger(logger),
	}

	if cfg.History.Path != "" {
		store, err := openHistory(cfg.History.Path)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.history = store
		rt.closers = append(rt.closers, store.Close)
		opts = append(opts, rebuild.WithHook("history", rebuild.HistoryHook(store)))
	}

	if cfg.Notify.NATSURL != "" {
		pub, err := notify.NewNATSPublisher(cfg.Notify.NATSURL, cfg.Notify.Subject, logger)
		if err != nil {
			// notifications are optional; builds proceed without them
			logger.Warn("Build notifications disabled", logfields.Error(err))
		} else {
			rt.closers = append(rt.closers, pub.Close)
			opts = append(opts, rebuild.WithHook("notify", rebuild.NotifyHook(pub, cfg.OutputDir)))
		}
	}

	rt.runner = rebuild.New(builder, cfg.SourceDir, cfg.OutputDir, opts...)
	return rt, nil
}

func openHistory(path string) (*history.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ferrors.FileSystemError("create history directory").WithCause(err).WithContext("path", dir).Build()
		}
	}
	return history.NewSQLiteStore(path)
}

// Close releases everything newRuntime opened, in reverse order.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.logger.Warn("Close failed", logfields.Error(err))
		}
	}
	rt.closers = nil
}
