package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for NotificationsTotal.
const (
	OutcomeAccepted     = "accepted"
	OutcomeIgnored      = "ignored"
	OutcomeMalformed    = "malformed"
	OutcomeUnauthorized = "unauthorized"
	OutcomeRateLimited  = "rate_limited"
	OutcomeFailed       = "failed"
)

var (
	// Webhook delivery metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookgate_notifications_total",
			Help: "Total number of webhook notifications by outcome",
		},
		[]string{"provider", "outcome"},
	)

	NotificationBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hookgate_notification_bytes_total",
			Help: "Total bytes of notification bodies received",
		},
	)

	VerificationChallenges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookgate_verification_challenges_total",
			Help: "Total number of subscription verification challenges by result",
		},
		[]string{"result"},
	)

	// Event pipeline metrics
	EventsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hookgate_events_extracted_total",
			Help: "Total number of comment events extracted from notifications",
		},
	)

	EventsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hookgate_events_enqueued_total",
			Help: "Total number of comment jobs handed to the work queue",
		},
	)

	EventsDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hookgate_events_duplicate_total",
			Help: "Total number of comment events dropped as already seen",
		},
	)

	// Store metrics
	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hookgate_store_duration_seconds",
			Help:    "Duration of dedup and enqueue store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookgate_store_errors_total",
			Help: "Total number of failed store operations",
		},
		[]string{"operation"},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hookgate_rate_limit_hits_total",
			Help: "Total number of notifications rejected by the rate limiter",
		},
	)
)
