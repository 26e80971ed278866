package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fleetwatch"

var (
	checkRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "check_runs_total",
		Help:      "Automated check runs by outcome.",
	}, []string{"outcome"})

	checkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "check_duration_seconds",
		Help:      "Duration of automated check runs.",
		Buckets:   prometheus.DefBuckets,
	})

	notificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_created_total",
		Help:      "Notifications created by type and priority.",
	}, []string{"type", "priority"})

	notificationsRetired = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_retired_total",
		Help:      "Notifications retired by reason.",
	}, []string{"reason"})

	deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Delivery attempts by channel and outcome.",
	}, []string{"channel", "outcome"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func ObserveCheck(outcome string, d time.Duration) {
	checkRuns.WithLabelValues(outcome).Inc()
	checkDuration.Observe(d.Seconds())
}

func NotificationCreated(notificationType, priority string) {
	notificationsCreated.WithLabelValues(notificationType, priority).Inc()
}

func NotificationsRetired(reason string, n int) {
	if n > 0 {
		notificationsRetired.WithLabelValues(reason).Add(float64(n))
	}
}

func Delivery(channel, outcome string) {
	deliveries.WithLabelValues(channel, outcome).Inc()
}

func ObserveHTTPRequest(method, route, status string, d time.Duration) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
