package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the client.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	backendErrors      *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	classifications    *prometheus.CounterVec
	sessionTransitions *prometheus.CounterVec
	alertsRaised       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spendsense_backend_request_duration_seconds",
				Help:    "Duration of backend requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		backendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendsense_backend_errors_total",
				Help: "Total failed backend requests by operation and error kind.",
			},
			[]string{"operation", "kind"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendsense_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendsense_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		classifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendsense_budget_evaluations_total",
				Help: "Budget evaluations by resulting classification.",
			},
			[]string{"classification"},
		),
		sessionTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendsense_session_transitions_total",
				Help: "Session state machine transitions.",
			},
			[]string{"from", "to"},
		),
		alertsRaised: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendsense_budget_alerts_total",
				Help: "Budget alerts raised by classification.",
			},
			[]string{"classification"},
		),
	}
}

// RecordRequestDuration records the duration of a backend operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrBackendError increments the backend error counter.
func (m *Metrics) IncrBackendError(operation, kind string) {
	m.backendErrors.WithLabelValues(operation, kind).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrClassification counts one budget evaluation.
func (m *Metrics) IncrClassification(classification string) {
	m.classifications.WithLabelValues(classification).Inc()
}

// IncrSessionTransition counts one session state change.
func (m *Metrics) IncrSessionTransition(from, to string) {
	m.sessionTransitions.WithLabelValues(from, to).Inc()
}

// IncrAlert counts one raised budget alert.
func (m *Metrics) IncrAlert(classification string) {
	m.alertsRaised.WithLabelValues(classification).Inc()
}

// Snapshot is a point-in-time summary of the counters, served by the local
// API next to the raw /metrics exposition.
type Snapshot struct {
	Evaluations  map[string]float64 `json:"evaluations"`
	Alerts       map[string]float64 `json:"alerts"`
	CacheHitRate float64            `json:"cache_hit_rate"`
}

var classificationLabels = []string{"ok", "near_limit", "over_budget"}

// Snapshot gathers current counter values.
func (m *Metrics) Snapshot() *Snapshot {
	s := &Snapshot{
		Evaluations: make(map[string]float64, len(classificationLabels)),
		Alerts:      make(map[string]float64, len(classificationLabels)),
	}
	for _, c := range classificationLabels {
		s.Evaluations[c] = getCounterValue(m.classifications, c)
		s.Alerts[c] = getCounterValue(m.alertsRaised, c)
	}

	hits := getCounterValue(m.cacheHits, "categories")
	misses := getCounterValue(m.cacheMisses, "categories")
	if hits+misses > 0 {
		s.CacheHitRate = hits / (hits + misses)
	}
	return s
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
