package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bothub_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bothub_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ProviderRequestLatency records outbound provider call latency. Operation is
	// "chat_completion" or "image_generation"; outcome is "ok", "error" or "timeout".
	ProviderRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bothub_provider_request_latency_seconds",
		Help:    "External provider request latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"operation", "outcome"})

	// QuotaDenials counts requests blocked by plan limits.
	QuotaDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bothub_quota_denials_total",
		Help: "Total requests denied by plan quota, by plan and action",
	}, []string{"plan", "action"})

	// WebhookEvents counts payment webhook deliveries by provider and outcome.
	// Outcomes: applied, duplicate, ignored, verification_failed, error.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bothub_webhook_events_total",
		Help: "Total payment webhook events by provider and outcome",
	}, []string{"provider", "outcome"})

	// PlanUpgrades counts confirmed plan upgrades by target plan and method.
	PlanUpgrades = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bothub_plan_upgrades_total",
		Help: "Total confirmed plan upgrades by plan and payment method",
	}, []string{"plan", "method"})
)

// ObserveProviderCall records one outbound provider request.
func ObserveProviderCall(operation, outcome string, start time.Time) {
	ProviderRequestLatency.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}
