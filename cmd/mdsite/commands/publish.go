package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/mdsite/internal/config"
	"git.home.luguber.info/inful/mdsite/internal/publish"
	"git.home.luguber.info/inful/mdsite/internal/rebuild"
)

// PublishCmd builds the site and uploads the output tree.
type PublishCmd struct {
	SiteFlags `embed:""`
	Prefix    string `name:"prefix" help:"Object key prefix (overrides publish.prefix)"`
	Prune     bool   `name:"prune" help:"Remove objects under the prefix that are not in the output"`
	SkipBuild bool   `name:"skip-build" help:"Upload the existing output without building"`
}

func (p *PublishCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, logger, err := loadConfig(root, p.SiteFlags.apply, p.applyPublish)
	if err != nil {
		return err
	}
	publisher, err := publish.NewS3Publisher(cfg.PublishTarget(), logger)
	if err != nil {
		return err
	}

	if !p.SkipBuild {
		rt, err := newRuntime(cfg, logger, false)
		if err != nil {
			return err
		}
		res := rt.runner.Rebuild(ctx, rebuild.TriggerManual)
		rt.Close()
		if res.Err != nil {
			return res.Err
		}
	}

	sum, err := publisher.Publish(ctx, cfg.OutputDir)
	if err != nil {
		return err
	}
	fmt.Printf("Published %d files (%d bytes) to %s; removed %d\n", sum.Uploaded, sum.Bytes, cfg.Publish.Bucket, sum.Removed)
	return nil
}

func (p *PublishCmd) applyPublish(cfg *config.Config) {
	if p.Prefix != "" {
		cfg.Publish.Prefix = p.Prefix
	}
	if p.Prune {
		cfg.Publish.Prune = true
	}
}
