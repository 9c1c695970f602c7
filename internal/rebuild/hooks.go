package rebuild

import (
	"context"

	"git.home.luguber.info/inful/mdsite/internal/history"
	"git.home.luguber.info/inful/mdsite/internal/notify"
)

// HistoryRecord converts a Result into its persisted form.
func HistoryRecord(res Result) history.Record {
	rec := history.Record{
		ID:          res.ID,
		Trigger:     res.Trigger,
		StartedAt:   res.StartedAt,
		Duration:    res.Duration,
		Success:     res.Success(),
		Pages:       res.Stats.Pages,
		Directories: res.Stats.Directories,
		Assets:      res.Stats.Assets,
		Revision:    res.Revision,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	return rec
}

// HistoryHook records every build in store.
func HistoryHook(store history.Store) Hook {
	return func(ctx context.Context, res Result) error {
		return store.Record(ctx, HistoryRecord(res))
	}
}

// NotifyHook publishes every build outcome.
func NotifyHook(pub notify.Publisher, outputDir string) Hook {
	return func(ctx context.Context, res Result) error {
		ev := notify.Event{
			BuildID:    res.ID,
			Trigger:    res.Trigger,
			Success:    res.Success(),
			Pages:      res.Stats.Pages,
			DurationMS: res.Duration.Milliseconds(),
			Revision:   res.Revision,
			Output:     outputDir,
			FinishedAt: res.StartedAt.Add(res.Duration),
		}
		if res.Err != nil {
			ev.Error = res.Err.Error()
		}
		return pub.Publish(ctx, ev)
	}
}
