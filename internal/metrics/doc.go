// Package metrics provides the observability hooks for site builds.
//
// Components receive a Recorder through options and default to NoopRecorder,
// so no call site needs a nil check:
//
//	builder := site.NewBuilder(site.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The Prometheus implementation registers on the registry it is given; the
// server exposes that registry through HTTPHandler.
package metrics
