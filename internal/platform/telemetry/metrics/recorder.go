package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smartlab"

// Outcome labels for oracle calls.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder records oracle and simulation metrics. A nil *Recorder is a
// no-op so callers never need to guard it.
type Recorder struct {
	registry       *prometheus.Registry
	oracleRequests *prometheus.CounterVec
	oracleLatency  *prometheus.HistogramVec
	simulations    *prometheus.CounterVec
}

// NewRecorder builds a recorder with a private registry that also carries
// the Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		oracleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_requests_total",
			Help:      "Oracle calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		oracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_request_seconds",
			Help:      "Oracle call latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"provider"}),
		simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulations_total",
			Help:      "Simulations by terminal outcome.",
		}, []string{"outcome"}),
	}
	r.registry.MustRegister(
		r.oracleRequests,
		r.oracleLatency,
		r.simulations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveOracle records one oracle call.
func (r *Recorder) ObserveOracle(_ context.Context, provider string, success bool, duration time.Duration) {
	if r == nil || provider == "" {
		return
	}
	outcome := OutcomeError
	if success {
		outcome = OutcomeSuccess
	}
	r.oracleRequests.WithLabelValues(provider, outcome).Inc()
	r.oracleLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveSimulation records the terminal outcome of one simulation.
func (r *Recorder) ObserveSimulation(_ context.Context, outcome string) {
	if r == nil || outcome == "" {
		return
	}
	r.simulations.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry for gathering in tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the recorder's metrics in Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
