// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

// Package metrics holds relayd's Prometheus instruments. They register on
// the default registry and are served at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream Metrics
	UpstreamConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_upstream_connected",
			Help: "1 while the upstream source is connected",
		},
	)

	UpstreamReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_upstream_reconnects_total",
			Help: "Total number of upstream connection attempts after the first",
		},
	)

	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_upstream_errors_total",
			Help: "Total number of upstream failures by kind",
		},
		[]string{"kind"}, // "unavailable", "closed", "timeout"
	)

	// Frame Metrics
	FramesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_frames_received_total",
			Help: "Total number of frames read from upstream",
		},
	)

	FramesMalformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_frames_malformed_total",
			Help: "Total number of frames dropped because no identifier could be extracted",
		},
	)

	FramesFiltered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_frames_filtered_total",
			Help: "Total number of frames rejected by the allow-list",
		},
	)

	FramesForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_frames_forwarded_total",
			Help: "Total number of frames written to an endpoint",
		},
		[]string{"endpoint"},
	)

	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_frames_dropped_total",
			Help: "Total number of frames evicted from a full endpoint queue",
		},
		[]string{"endpoint"},
	)

	// Endpoint Metrics
	EndpointState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_endpoint_state",
			Help: "Endpoint state: 0=disconnected 1=connecting 2=connected 3=error",
		},
		[]string{"endpoint"},
	)

	EndpointConnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_endpoint_connects_total",
			Help: "Total number of endpoint connection attempts",
		},
		[]string{"endpoint", "result"}, // "success", "failure", "rejected"
	)

	// Forwarder Metrics
	ForwarderRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_forwarder_running",
			Help: "1 while the forwarder is running",
		},
	)

	ConfigUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_config_updates_total",
			Help: "Total number of configuration updates",
		},
		[]string{"result"}, // "applied", "invalid", "error"
	)

	// Log Store Metrics
	LogStoreWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_logstore_write_errors_total",
			Help: "Total number of log lines the recent-log store failed to keep",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Total number of WebSocket messages dropped for slow clients",
		},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// SetUpstreamConnected flips the upstream gauge.
func SetUpstreamConnected(connected bool) {
	UpstreamConnected.Set(boolToFloat(connected))
}

// SetForwarderRunning flips the forwarder gauge.
func SetForwarderRunning(running bool) {
	ForwarderRunning.Set(boolToFloat(running))
}

// SetEndpointState records the numeric state of one endpoint.
func SetEndpointState(endpoint string, state int) {
	EndpointState.WithLabelValues(endpoint).Set(float64(state))
}

// RecordEndpointConnect counts one connection attempt.
func RecordEndpointConnect(endpoint, result string) {
	EndpointConnects.WithLabelValues(endpoint, result).Inc()
}

// ForgetEndpoint removes the per-endpoint series of a deleted endpoint.
func ForgetEndpoint(endpoint string) {
	EndpointState.DeleteLabelValues(endpoint)
	FramesForwarded.DeleteLabelValues(endpoint)
	FramesDropped.DeleteLabelValues(endpoint)
	EndpointConnects.DeletePartialMatch(prometheus.Labels{"endpoint": endpoint})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
