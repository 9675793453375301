package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// BatchesWritten counts batch rows touched, labelled by op
	// (create, update, expand, group_edit, delete, import, cascade).
	BatchesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mushroomlog_batches_written_total",
			Help: "Batch rows written",
		},
		[]string{"op"},
	)

	AssistantRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mushroomlog_assistant_requests_total",
			Help: "Assistant questions by result",
		},
		[]string{"result"},
	)

	Images = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mushroomlog_images_total",
			Help: "Image objects uploaded or deleted",
		},
		[]string{"op"},
	)

	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mushroomlog_websocket_clients",
			Help: "Connected change-feed clients",
		},
	)
)
