// Package metrics provides Prometheus metrics for copy and move runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nazg-Gul/fm/copier"
)

// Collector counts finished files and copied bytes. It implements
// copier.Recorder.
type Collector struct {
	gatherer prometheus.Gatherer

	filesTotal *prometheus.CounterVec
	bytesTotal prometheus.Counter
	runsTotal  *prometheus.CounterVec
}

var _ copier.Recorder = (*Collector)(nil)

// New registers the collectors with reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Collector{
		gatherer: reg,
		filesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fm_copy_files_total",
				Help: "Files processed by the copy engine, by outcome",
			},
			[]string{"outcome"},
		),
		bytesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fm_copy_bytes_total",
				Help: "Bytes written to destination files",
			},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fm_runs_total",
				Help: "Copy and move invocations, by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
}

// FileDone records one finished file.
func (c *Collector) FileDone(o copier.Outcome) {
	c.filesTotal.WithLabelValues(o.String()).Inc()
}

// Bytes records n copied bytes.
func (c *Collector) Bytes(n int64) {
	c.bytesTotal.Add(float64(n))
}

// RecordRun records a finished invocation of operation ("cp" or "mv").
func (c *Collector) RecordRun(operation string, o copier.Outcome) {
	c.runsTotal.WithLabelValues(operation, o.String()).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
