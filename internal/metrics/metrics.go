// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// MessagesSent tracks persisted messages.
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total messages persisted",
		},
	)

	// EventsBroadcast tracks events fanned out over live channels.
	EventsBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_broadcast_total",
			Help: "Total events broadcast to live subscribers",
		},
		[]string{"kind"},
	)

	// LiveSubscribers tracks open live update channels.
	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_live_subscribers",
			Help: "Number of open live update channels",
		},
	)
)
