// Package metrics records answer pipeline outcomes as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

// Ensure Recorder implements the interface.
var _ driven.Metrics = (*Recorder)(nil)

const namespace = "veritas"

// Recorder implements driven.Metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	retrievalLatency prometheus.Histogram
	candidates       prometheus.Histogram
	answers          *prometheus.CounterVec
	answerLatency    *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	droppedClaims    prometheus.Counter
	httpRequests     *prometheus.CounterVec
}

// NewRecorder registers the pipeline metrics plus Go runtime and process
// collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		retrievalLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Hybrid retrieval latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		candidates: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "candidates",
			Help:      "Candidates returned per retrieval",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "total",
			Help:      "Answers by outcome (answered, cached, error or refusal reason)",
		}, []string{"outcome"}),
		answerLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "duration_seconds",
			Help:      "Answer pipeline latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer_cache",
			Name:      "lookups_total",
			Help:      "Answer cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		droppedClaims: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grounding",
			Name:      "dropped_claims_total",
			Help:      "Claims removed by soft grounding",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

// ObserveRetrieval records one retrieval.
func (r *Recorder) ObserveRetrieval(duration time.Duration, candidates int) {
	r.retrievalLatency.Observe(duration.Seconds())
	r.candidates.Observe(float64(candidates))
}

// ObserveAnswer records one answer outcome.
func (r *Recorder) ObserveAnswer(outcome string, duration time.Duration) {
	r.answers.WithLabelValues(outcome).Inc()
	r.answerLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveCache records one cache lookup.
func (r *Recorder) ObserveCache(result string) {
	r.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveDroppedClaims adds n dropped claims. Non-positive n is ignored.
func (r *Recorder) ObserveDroppedClaims(n int) {
	if n > 0 {
		r.droppedClaims.Add(float64(n))
	}
}

// ObserveHTTP records one served request.
func (r *Recorder) ObserveHTTP(route string, code int) {
	r.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
