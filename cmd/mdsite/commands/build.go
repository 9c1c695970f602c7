package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"git.home.luguber.info/inful/mdsite/internal/rebuild"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	SiteFlags `embed:""`

	out io.Writer
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	return b.run(context.Background(), root)
}

func (b *BuildCmd) run(ctx context.Context, root *CLI) error {
	cfg, logger, err := loadConfig(root, b.SiteFlags.apply)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg, logger, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	res := rt.runner.Rebuild(ctx, rebuild.TriggerManual)
	if res.Err != nil {
		return res.Err
	}
	out := b.out
	if out == nil {
		out = os.Stdout
	}
	_, _ = fmt.Fprintf(out, "Built %d pages, %d assets, %d directories into %s in %s\n",
		res.Stats.Pages, res.Stats.Assets, res.Stats.Directories, cfg.OutputDir, res.Duration.Round(time.Millisecond))
	return nil
}
