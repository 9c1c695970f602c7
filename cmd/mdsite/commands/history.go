package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/history"
)

// HistoryCmd lists recent builds.
type HistoryCmd struct {
	Limit int  `short:"n" default:"20" help:"Number of builds to show"`
	JSON  bool `name:"json" help:"Print JSON instead of a table"`

	out io.Writer
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, _, err := loadConfig(root)
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return ferrors.ConfigError("build history is disabled; set history.path").Build()
	}
	store, err := history.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return h.print(context.Background(), store)
}

func (h *HistoryCmd) print(ctx context.Context, store history.Store) error {
	recs, err := store.Recent(ctx, h.Limit)
	if err != nil {
		return err
	}
	out := h.out
	if out == nil {
		out = os.Stdout
	}
	if h.JSON {
		if recs == nil {
			recs = []history.Record{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tTRIGGER\tRESULT\tPAGES\tDURATION\tREVISION\tID")
	for _, r := range recs {
		result := "ok"
		if !r.Success {
			result = "failed"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), r.Trigger, result, r.Pages,
			r.Duration.Round(time.Millisecond), dash(r.Revision), r.ID)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
