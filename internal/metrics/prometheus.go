package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for the notification engine
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Delivery metrics
	DeliveriesTotal       *prometheus.CounterVec
	DeliveryDuration      *prometheus.HistogramVec
	DeliveriesSkipped     *prometheus.CounterVec
	EscalationsTotal      *prometheus.CounterVec
	RateLimitRejections   *prometheus.CounterVec
	DigestsGeneratedTotal prometheus.Counter

	// Application health metrics
	ActiveChannels prometheus.Gauge
	RulesActive    prometheus.Gauge
}

// NewPrometheusMetrics creates and registers all Prometheus metrics on an
// owned registry, so multiple engine instances can coexist in one process
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		registry: registry,

		DeliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_deliveries_total",
				Help: "Total number of delivery attempts by channel and status",
			},
			[]string{"channel", "type", "status"},
		),

		DeliveryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notify_delivery_duration_seconds",
				Help:    "Time spent delivering individual notifications",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"channel"},
		),

		DeliveriesSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_deliveries_skipped_total",
				Help: "Deliveries filtered out before reaching a channel",
			},
			[]string{"channel", "reason"},
		),

		EscalationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_escalations_total",
				Help: "Escalation attempts by rule",
			},
			[]string{"rule"},
		),

		RateLimitRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_rate_limit_rejections_total",
				Help: "Deliveries rejected by the rate limiter",
			},
			[]string{"channel"},
		),

		DigestsGeneratedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "notify_digests_generated_total",
				Help: "Digests generated",
			},
		),

		ActiveChannels: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "notify_active_channels",
				Help: "Number of registered delivery channels",
			},
		),

		RulesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "notify_rules_active",
				Help: "Number of configured notification rules",
			},
		),
	}
}

// Registry returns the registry backing these metrics, for promhttp
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// RecordDelivery records a terminal delivery outcome
func (pm *PrometheusMetrics) RecordDelivery(channel, notificationType, status string, duration time.Duration) {
	pm.DeliveriesTotal.WithLabelValues(channel, notificationType, status).Inc()
	pm.DeliveryDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordSkip records a delivery filtered before reaching a channel
func (pm *PrometheusMetrics) RecordSkip(channel, reason string) {
	pm.DeliveriesSkipped.WithLabelValues(channel, reason).Inc()
}

// RecordEscalation records one escalation attempt for a rule
func (pm *PrometheusMetrics) RecordEscalation(ruleID string) {
	pm.EscalationsTotal.WithLabelValues(ruleID).Inc()
}

// RecordRateLimitRejection records a rate-limited delivery
func (pm *PrometheusMetrics) RecordRateLimitRejection(channel string) {
	pm.RateLimitRejections.WithLabelValues(channel).Inc()
}
