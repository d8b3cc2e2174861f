package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request-level metrics, recorded by the API middleware.
var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosca_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rosca_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// Domain counters, incremented by the service layer.
var (
	CyclesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rosca_cycles_started_total",
		Help: "Payment cycles started.",
	})

	CyclesClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rosca_cycles_closed_total",
		Help: "Payment cycles closed.",
	})

	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rosca_reminders_sent_total",
		Help: "Payment reminders delivered (excluding rate-limited skips).",
	})

	MembersLocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rosca_members_locked_total",
		Help: "Members locked after reaching the missed-payment threshold.",
	})
)
