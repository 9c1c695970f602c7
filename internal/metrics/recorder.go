package metrics

import "time"

// BuildOutcomeLabel enumerates final build states.
type BuildOutcomeLabel string

const (
	OutcomeSuccess BuildOutcomeLabel = "success"
	OutcomeFailed  BuildOutcomeLabel = "failed"
)

// Recorder defines observability hooks for builds, watch events and triggers.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	// IncFiles counts source entries processed by kind (content, passthrough, ignored, directory).
	IncFiles(kind string)
	IncRebuildTrigger(trigger string)
	IncWatchEvent(op string)
	SetLastBuildPages(n int)
}

// NoopRecorder is the Recorder used when metrics are not configured.
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration) {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)  {}
func (NoopRecorder) IncFiles(string)                    {}
func (NoopRecorder) IncRebuildTrigger(string)           {}
func (NoopRecorder) IncWatchEvent(string)               {}
func (NoopRecorder) SetLastBuildPages(int)              {}

var _ Recorder = NoopRecorder{}
