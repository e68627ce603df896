// Package run_metrics collects Prometheus metrics for one harvest run and
// writes them to a node-exporter textfile.
package run_metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the metrics of a single run on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	// filesTotal counts processed files by classification and outcome.
	filesTotal *prometheus.CounterVec

	// runDuration is the wall time of the run.
	runDuration prometheus.Gauge

	// lastRunTimestamp is when the run finished, in Unix seconds.
	lastRunTimestamp prometheus.Gauge

	// lastRunSuccess is 1 when the run completed without a fatal error.
	lastRunSuccess prometheus.Gauge
}

// New creates a Recorder with an empty registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		filesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "harvest_files_total",
			Help: "Files processed in the last run, by classification and outcome",
		}, []string{"classification", "outcome"}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "harvest_run_duration_seconds",
			Help: "Duration of the last run in seconds",
		}),
		lastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "harvest_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		lastRunSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "harvest_last_run_success",
			Help: "1 if the last run finished without a fatal error, 0 otherwise",
		}),
	}
}

// ObserveFile counts one processed file.
func (r *Recorder) ObserveFile(classification string, outcome string) {
	r.filesTotal.WithLabelValues(classification, outcome).Inc()
}

// Finish records the run's duration, end time and result.
func (r *Recorder) Finish(start time.Time, end time.Time, success bool) {
	r.runDuration.Set(end.Sub(start).Seconds())
	r.lastRunTimestamp.Set(float64(end.Unix()))
	if success {
		r.lastRunSuccess.Set(1)
	} else {
		r.lastRunSuccess.Set(0)
	}
}

// Registry returns the registry holding the run's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile atomically writes the metrics in text exposition format to path.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
