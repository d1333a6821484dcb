package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the author request service.
// Counters and histograms are registered via promauto with the provided registerer.
type Metrics struct {
	// RequestsSubmitted counts author requests accepted by the submission service.
	RequestsSubmitted prometheus.Counter

	// RequestsApproved counts requests that reached the approved state.
	RequestsApproved prometheus.Counter

	// RequestsRejected counts requests that reached the rejected state.
	RequestsRejected prometheus.Counter

	// ApprovalDuration observes the end-to-end duration of approve operations in seconds.
	ApprovalDuration prometheus.Histogram

	// ApprovalFastPath counts approvals by path label ("procedure", "fallback").
	ApprovalFastPath *prometheus.CounterVec

	// ApprovalStepFailures counts fallback step failures, labeled by step name.
	ApprovalStepFailures *prometheus.CounterVec

	// WorksMaterialized counts canonical entities created on approval,
	// labeled by kind (article, journal, book, institution).
	WorksMaterialized *prometheus.CounterVec

	// NotificationsSent counts notification events handed to the gateway, labeled by event type.
	NotificationsSent *prometheus.CounterVec

	// NotificationFailures counts swallowed notification errors, labeled by event type.
	NotificationFailures *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with the default registry.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWith creates a new Metrics instance registered with reg.
// Tests pass their own registry to avoid duplicate registration panics.
func NewMetricsWith(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_submitted_total",
			Help:      "Total number of author requests submitted",
		}),
		RequestsApproved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_approved_total",
			Help:      "Total number of author requests approved",
		}),
		RequestsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_rejected_total",
			Help:      "Total number of author requests rejected",
		}),
		ApprovalDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "approval_duration_seconds",
			Help:      "Duration of approve operations in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ApprovalFastPath: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approval_path_total",
			Help:      "Approvals by execution path",
		}, []string{"path"}),
		ApprovalStepFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approval_step_failures_total",
			Help:      "Fallback approval step failures by step",
		}, []string{"step"}),
		WorksMaterialized: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "works_materialized_total",
			Help:      "Canonical entities created on approval by kind",
		}, []string{"kind"}),
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Notification events handed to the gateway by event type",
		}, []string{"event"}),
		NotificationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Swallowed notification errors by event type",
		}, []string{"event"}),
	}
}
