package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "playbin_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playbin_http_requests_in_flight",
		Help: "Current number of HTTP requests being served",
	})

	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playbin_stream_subscribers",
		Help: "Open MJPEG frame stream subscriptions",
	})
)
