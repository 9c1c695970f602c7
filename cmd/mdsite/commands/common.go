package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mdsite/internal/config"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default: ./mdsite.yaml if present)" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve   ServeCmd   `cmd:"" default:"withargs" help:"Build the site, rebuild on change and serve it (default)"`
	Build   BuildCmd   `cmd:"" help:"Build the site once"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
	History HistoryCmd `cmd:"" help:"List recent builds from the history database"`
	Publish PublishCmd `cmd:"" help:"Build the site and upload it to S3-compatible storage"`
}

// AfterApply runs after flag parsing; it installs a default logger until the
// configuration is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// SiteFlags override the configured source and output directories.
type SiteFlags struct {
	Source string `short:"s" name:"source" help:"Source directory (overrides source_dir)"`
	Output string `short:"o" name:"output" help:"Output directory (overrides output_dir)"`
}

func (f SiteFlags) apply(cfg *config.Config) {
	if f.Source != "" {
		cfg.SourceDir = f.Source
	}
	if f.Output != "" {
		cfg.OutputDir = f.Output
	}
}

// loadConfig loads the configuration, applies overrides and installs the
// configured logger as the default.
func loadConfig(root *CLI, overrides ...func(*config.Config)) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, setupLogging(cfg, root.Verbose), nil
}

func setupLogging(cfg *config.Config, verbose bool) *slog.Logger {
	level := config.NormalizeLogLevel(cfg.Logging.Level).SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if config.NormalizeLogFormat(cfg.Logging.Format) == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
