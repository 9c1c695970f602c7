package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/mdsite/internal/config"
	"git.home.luguber.info/inful/mdsite/internal/metrics"
	"git.home.luguber.info/inful/mdsite/internal/preview"
	"git.home.luguber.info/inful/mdsite/internal/rebuild"
	"git.home.luguber.info/inful/mdsite/internal/scheduler"
	"git.home.luguber.info/inful/mdsite/internal/server"
)

// ServeCmd builds the site, watches the source tree and serves the output.
type ServeCmd struct {
	SiteFlags    `embed:""`
	Address      string `short:"a" name:"address" help:"Listen address (overrides server.address)"`
	NoLiveReload bool   `name:"no-live-reload" help:"Disable live reload script injection"`
	NoWatch      bool   `name:"no-watch" help:"Serve without rebuilding on change"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return s.run(ctx, root)
}

func (s *ServeCmd) run(ctx context.Context, root *CLI) error {
	cfg, logger, err := loadConfig(root, s.SiteFlags.apply, s.applyServer)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg, logger, cfg.Server.Metrics)
	if err != nil {
		return err
	}
	defer rt.Close()

	opts := server.Options{
		Address:    cfg.Server.Address,
		OutputDir:  cfg.OutputDir,
		LiveReload: cfg.Server.LiveReload,
		Status:     rt.runner.Status(),
		History:    rt.history,
		Logger:     logger,
	}
	if rt.registry != nil {
		opts.Metrics = metrics.HTTPHandler(rt.registry)
	}
	srv := server.New(opts)
	rt.runner.AddHook("livereload", srv.BuildHook())

	// A failed first build is shown by the server; the watcher picks up the fix.
	rt.runner.Rebuild(ctx, rebuild.TriggerStartup)

	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown error", "error", err)
		}
	}()

	if cfg.Build.RebuildInterval > 0 {
		sched, err := scheduler.New(logger)
		if err != nil {
			return err
		}
		if _, err := sched.SchedulePeriodicRebuild(ctx, cfg.Build.RebuildInterval, rt.runner); err != nil {
			return err
		}
		sched.Start()
		defer func() {
			if err := sched.Stop(); err != nil {
				logger.Warn("Scheduler shutdown error", "error", err)
			}
		}()
	}

	if s.NoWatch {
		<-ctx.Done()
		return nil
	}
	watcher := preview.NewWatcher(cfg.SourceDir, cfg.OutputDir,
		preview.WithDebounce(cfg.Build.Debounce),
		preview.WithRecorder(rt.recorder),
		preview.WithLogger(logger),
	)
	if err := watcher.Run(ctx, rt.runner); err != nil {
		return err
	}
	logger.Info("Shutting down")
	return nil
}

func (s *ServeCmd) applyServer(cfg *config.Config) {
	if s.Address != "" {
		cfg.Server.Address = s.Address
	}
	if s.NoLiveReload {
		cfg.Server.LiveReload = false
	}
}

