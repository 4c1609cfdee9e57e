package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campus_carpool", Name: "rides_created_total", Help: "Total number of rides published"})

	InstantJoinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "campus_carpool", Name: "instant_joins_total", Help: "Instant booking attempts by outcome"},
		[]string{"outcome"},
	)
	JoinRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campus_carpool", Name: "join_requests_total", Help: "Total join requests submitted"})
	RequestsDecidedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "campus_carpool", Name: "requests_decided_total", Help: "Join request decisions by verdict"},
		[]string{"decision"},
	)

	RidesCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campus_carpool", Name: "rides_cancelled_total", Help: "Total rides cancelled by their drivers"})
	RidesExpiredTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campus_carpool", Name: "rides_expired_total", Help: "Total rides marked expired by the sweeper"})

	NotificationsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "campus_carpool", Name: "notifications_published_total", Help: "Notifications published by kind"},
		[]string{"kind"},
	)
	NotificationPublishFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campus_carpool", Name: "notification_publish_failures_total", Help: "Notifications that failed to publish"})

	WSClientsOnline = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "campus_carpool", Name: "ws_clients_online", Help: "Connected WebSocket notification clients"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "campus_carpool", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "campus_carpool",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
