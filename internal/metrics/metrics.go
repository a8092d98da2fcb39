// Package metrics exposes solve counters and latencies in Prometheus form.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gitrdm/lsysinfer/pkg/csp"
	"github.com/gitrdm/lsysinfer/pkg/infer"
)

const namespace = "lsysinfer"

// Recorder implements infer.Observer on its own registry, so several
// recorders can live in one process (and in tests).
type Recorder struct {
	reg *prometheus.Registry

	Solves   *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Nodes    *prometheus.HistogramVec
	Symbols  prometheus.Histogram
	Depth    prometheus.Histogram
}

// New returns a Recorder with its collectors registered on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		reg: reg,
		Solves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solve",
			Name:      "total",
			Help:      "Completed solves by engine and status",
		}, []string{"engine", "status"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solve",
			Name:      "duration_seconds",
			Help:      "Engine time per solve in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"engine", "status"}),
		Nodes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solve",
			Name:      "nodes",
			Help:      "Search nodes or SAT calls per solve",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}, []string{"engine"}),
		Symbols: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "request",
			Name:      "symbols",
			Help:      "Alphabet size of solved histograms",
			Buckets:   prometheus.LinearBuckets(1, 1, 12),
		}),
		Depth: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "request",
			Name:      "depth",
			Help:      "Derivation depth of solve requests",
			Buckets:   prometheus.LinearBuckets(1, 1, 12),
		}),
	}
}

// ObserveSolve records one completed solve.
func (r *Recorder) ObserveSolve(engine string, symbols, depth int, status infer.Status, elapsed time.Duration, stats csp.Stats) {
	r.Solves.WithLabelValues(engine, status.String()).Inc()
	r.Duration.WithLabelValues(engine, status.String()).Observe(elapsed.Seconds())
	r.Nodes.WithLabelValues(engine).Observe(float64(stats.Nodes))
	r.Symbols.Observe(float64(symbols))
	r.Depth.Observe(float64(depth))
}

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

var _ infer.Observer = (*Recorder)(nil)
