package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	buildDuration  prom.Histogram
	buildOutcome   *prom.CounterVec
	files          *prom.CounterVec
	triggers       *prom.CounterVec
	watchEvents    *prom.CounterVec
	lastBuildPages prom.Gauge
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
// A nil registry gets a private one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "mdsite",
			Name:      "build_duration_seconds",
			Help:      "Duration of full site builds",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mdsite",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		files: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mdsite",
			Name:      "source_entries_total",
			Help:      "Source entries processed by disposition",
		}, []string{"kind"}),
		triggers: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mdsite",
			Name:      "rebuild_triggers_total",
			Help:      "Rebuilds requested by trigger source",
		}, []string{"trigger"}),
		watchEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mdsite",
			Name:      "watch_events_total",
			Help:      "Filesystem change events observed on the source tree",
		}, []string{"op"}),
		lastBuildPages: prom.NewGauge(prom.GaugeOpts{
			Namespace: "mdsite",
			Name:      "last_build_pages",
			Help:      "Pages generated by the most recent successful build",
		}),
	}
	reg.MustRegister(pr.buildDuration, pr.buildOutcome, pr.files, pr.triggers, pr.watchEvents, pr.lastBuildPages)
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncFiles(kind string) {
	p.files.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncRebuildTrigger(trigger string) {
	p.triggers.WithLabelValues(trigger).Inc()
}

func (p *PrometheusRecorder) IncWatchEvent(op string) {
	p.watchEvents.WithLabelValues(op).Inc()
}

func (p *PrometheusRecorder) SetLastBuildPages(n int) {
	p.lastBuildPages.Set(float64(n))
}

var _ Recorder = (*PrometheusRecorder)(nil)
