package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the billing core.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	storeErrors       *prometheus.CounterVec
	sequenceConflicts *prometheus.CounterVec
	renewals          *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
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
				Name:    "billing_request_duration_seconds",
				Help:    "Duration of billing operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_store_errors_total",
				Help: "Total errors from the remote store.",
			},
			[]string{"table"},
		),
		sequenceConflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_sequence_conflicts_total",
				Help: "Sequence-number collisions resolved by retry.",
			},
			[]string{"item_type"},
		),
		renewals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_renewals_total",
				Help: "Renewal orchestrations by outcome.",
			},
			[]string{"outcome"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrStoreError increments the remote-store error counter.
func (m *Metrics) IncrStoreError(table string) {
	m.storeErrors.WithLabelValues(table).Inc()
}

// IncrSequenceConflict counts a sequence collision for an item type.
func (m *Metrics) IncrSequenceConflict(itemType string) {
	m.sequenceConflicts.WithLabelValues(itemType).Inc()
}

// IncrRenewal counts a renewal outcome ("completed", "rejected_concurrent",
// "failed_<step>").
func (m *Metrics) IncrRenewal(outcome string) {
	m.renewals.WithLabelValues(outcome).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// BillingSnapshot summarizes renewal counters for the
// GET /v1/metrics/billing endpoint.
type BillingSnapshot struct {
	RenewalsCompleted  float64 `json:"renewals_completed"`
	RenewalsRejected   float64 `json:"renewals_rejected_concurrent"`
	SequenceConflicts  float64 `json:"sequence_conflicts"`
	RosterCacheHitRate float64 `json:"roster_cache_hit_rate"`
}

// GetBillingSnapshot reads current counter values.
// Prometheus counters expose cumulative values since process start.
func (m *Metrics) GetBillingSnapshot() *BillingSnapshot {
	hits := getCounterValue(m.cacheHits, "roster")
	misses := getCounterValue(m.cacheMisses, "roster")

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	conflicts := float64(0)
	for _, t := range []string{"enrollment_fee", "material", "tuition"} {
		conflicts += getCounterValue(m.sequenceConflicts, t)
	}

	return &BillingSnapshot{
		RenewalsCompleted:  getCounterValue(m.renewals, "completed"),
		RenewalsRejected:   getCounterValue(m.renewals, "rejected_concurrent"),
		SequenceConflicts:  conflicts,
		RosterCacheHitRate: hitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
