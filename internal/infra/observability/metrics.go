package observability

import (
	"time"

	"github.com/boddenberg/bank-accounts-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Repository call outcomes used as the "outcome" label.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
	OutcomeOffload  = "offload_failure"
)

// Metrics holds all Prometheus metrics for the accounts API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	repoDuration        *prometheus.HistogramVec
	repoCalls           *prometheus.CounterVec
	apiErrors           *prometheus.CounterVec
	ownershipDenials    *prometheus.CounterVec
	invariantViolations prometheus.Counter
	poolInFlight        prometheus.Gauge
	poolCapacity        prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		repoDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "accounts_repository_duration_seconds",
				Help:    "Duration of repository calls by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		repoCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_repository_calls_total",
				Help: "Total repository calls by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		apiErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_api_errors_total",
				Help: "Total API errors by kind.",
			},
			[]string{"kind"},
		),
		ownershipDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_ownership_denials_total",
				Help: "Requests rejected because the account belongs to another customer.",
			},
			[]string{"operation"},
		),
		invariantViolations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "accounts_invariant_violations_total",
				Help: "Rows returned by an owner-scoped query that belong to another customer.",
			},
		),
		poolInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "accounts_worker_pool_in_flight",
				Help: "Repository calls currently running on the worker pool.",
			},
		),
		poolCapacity: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "accounts_worker_pool_capacity",
				Help: "Maximum concurrent repository calls.",
			},
		),
	}
}

// RecordRepositoryCall records the duration and outcome of a repository call.
func (m *Metrics) RecordRepositoryCall(operation, outcome string, d time.Duration) {
	m.repoDuration.WithLabelValues(operation).Observe(d.Seconds())
	m.repoCalls.WithLabelValues(operation, outcome).Inc()
}

// IncrAPIError increments the API error counter.
func (m *Metrics) IncrAPIError(kind string) {
	m.apiErrors.WithLabelValues(kind).Inc()
}

// IncrOwnershipDenial increments the ownership denial counter.
func (m *Metrics) IncrOwnershipDenial(operation string) {
	m.ownershipDenials.WithLabelValues(operation).Inc()
}

// IncrInvariantViolation counts a foreign row returned by an owner-scoped query.
func (m *Metrics) IncrInvariantViolation() {
	m.invariantViolations.Inc()
}

// SetPoolCapacity publishes the worker pool size.
func (m *Metrics) SetPoolCapacity(n int64) {
	m.poolCapacity.Set(float64(n))
}

// PoolStarted and PoolFinished track in-flight offloaded calls.
func (m *Metrics) PoolStarted()  { m.poolInFlight.Inc() }
func (m *Metrics) PoolFinished() { m.poolInFlight.Dec() }

var repoOperations = []string{"create", "get", "find", "delete"}

// Snapshot returns repository traffic counters for GET /healthz.
func (m *Metrics) Snapshot() domain.RepositoryStats {
	var calls, failures, offload float64
	for _, op := range repoOperations {
		for _, outcome := range []string{OutcomeOK, OutcomeNotFound, OutcomeError, OutcomeOffload} {
			v := getCounterValue(m.repoCalls, op, outcome)
			calls += v
			switch outcome {
			case OutcomeError:
				failures += v
			case OutcomeOffload:
				failures += v
				offload += v
			}
		}
	}

	var denials float64
	for _, op := range repoOperations {
		denials += getCounterValue(m.ownershipDenials, op)
	}

	rate := float64(0)
	if calls > 0 {
		rate = failures / calls
	}

	return domain.RepositoryStats{
		Calls:            int64(calls),
		Failures:         int64(failures),
		OffloadFailures:  int64(offload),
		FailureRate:      rate,
		PoolInFlight:     int64(getGaugeValue(m.poolInFlight)),
		PoolCapacity:     int64(getGaugeValue(m.poolCapacity)),
		OwnershipDenials: int64(denials),
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	if m.Gauge != nil && m.Gauge.Value != nil {
		return *m.Gauge.Value
	}
	return 0
}
