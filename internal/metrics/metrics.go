// Package metrics exposes Prometheus counters for BOE evaluations, gate
// transitions and API traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/underwriting-cli/internal/boe"
	"github.com/sells-group/underwriting-cli/internal/config"
)

// Collector owns a private registry and every metric the service records.
// A nil or disabled Collector accepts all calls and records nothing.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	evaluationsTotal   *prometheus.CounterVec
	testResultsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	gateTransitions    *prometheus.CounterVec
	httpRequestsTotal  *prometheus.CounterVec
	parityFailures     prometheus.Gauge
	parityCases        prometheus.Gauge
	parityLastRun      prometheus.Gauge
}

// NewCollector creates and registers the metrics. If registry is nil a new
// one is created.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "underwrite"
	}

	c := &Collector{
		enabled:  cfg.Enabled,
		registry: registry,

		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "boe_evaluations_total",
				Help:      "Total BOE evaluations by resulting gate status",
			},
			[]string{"status"},
		),

		testResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "boe_test_results_total",
				Help:      "BOE test outcomes by test key and result",
			},
			[]string{"test", "result"},
		),

		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "boe_evaluation_duration_seconds",
				Help:      "Duration of a BOE evaluation in seconds",
				// Evaluations are pure arithmetic; 1µs to ~16ms.
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
		),

		gateTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "gate_transitions_total",
				Help:      "Gate audit events by event type",
			},
			[]string{"event"},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route pattern and status code",
			},
			[]string{"method", "route", "code"},
		),

		parityFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "parity_failures",
			Help:      "Mismatches found by the last scheduled parity run",
		}),
		parityCases: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "parity_cases_compared",
			Help:      "Fixtures compared by the last scheduled parity run",
		}),
		parityLastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "parity_last_run_timestamp_seconds",
			Help:      "Unix time of the last completed parity run",
		}),
	}

	registry.MustRegister(
		c.evaluationsTotal,
		c.testResultsTotal,
		c.evaluationDuration,
		c.gateTransitions,
		c.httpRequestsTotal,
		c.parityFailures,
		c.parityCases,
		c.parityLastRun,
	)
	return c
}

func (c *Collector) active() bool { return c != nil && c.enabled }

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool { return c.active() }

// RecordEvaluation records one engine evaluation and its test outcomes.
func (c *Collector) RecordEvaluation(status boe.GateStatus, tests []boe.TestOutcome, duration time.Duration) {
	if !c.active() {
		return
	}
	c.evaluationsTotal.WithLabelValues(string(status)).Inc()
	for _, t := range tests {
		c.testResultsTotal.WithLabelValues(t.Key, string(t.Result)).Inc()
	}
	c.evaluationDuration.Observe(duration.Seconds())
}

// RecordGateEvent counts a gate audit event by type.
func (c *Collector) RecordGateEvent(eventType string) {
	if !c.active() {
		return
	}
	c.gateTransitions.WithLabelValues(eventType).Inc()
}

// RecordRequest counts a served HTTP request. route is the matched pattern,
// not the raw path, to keep cardinality bounded.
func (c *Collector) RecordRequest(method, route string, code int) {
	if !c.active() {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

// RecordParity publishes the outcome of a parity run.
func (c *Collector) RecordParity(compared, failures int, at time.Time) {
	if !c.active() {
		return
	}
	c.parityCases.Set(float64(compared))
	c.parityFailures.Set(float64(failures))
	c.parityLastRun.Set(float64(at.Unix()))
}

// Handler returns the Prometheus exposition endpoint for this collector's
// registry. A disabled collector serves 404.
func (c *Collector) Handler() http.Handler {
	if !c.active() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
