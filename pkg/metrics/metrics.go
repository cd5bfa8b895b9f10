// Package metrics defines the prometheus collectors for analysis and settings writes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DocumentsAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyhighlight_documents_analyzed_total",
		Help: "Total number of full document analyses.",
	})

	SpansEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyhighlight_spans_total",
		Help: "Total number of classified spans by category.",
	}, []string{"category"})

	PassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pyhighlight_pass_seconds",
		Help:    "Time spent in one analysis pass over a document.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"pass"})

	OpenDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyhighlight_open_documents",
		Help: "Current number of tracked python documents.",
	})

	SettingsWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyhighlight_settings_writes_total",
		Help: "Total number of settings apply attempts by result.",
	}, []string{"result"})
)

const (
	PassResolve  = "resolve"
	PassClassify = "classify"

	ResultWritten   = "written"
	ResultUnchanged = "unchanged"
	ResultError     = "error"
)

// ObservePass records the time since start under pass.
func ObservePass(pass string, start time.Time) {
	PassDuration.WithLabelValues(pass).Observe(time.Since(start).Seconds())
}
