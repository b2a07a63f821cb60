// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics exposes Prometheus instrumentation for the API.

Collectors are registered on an injected registry so tests can use a private
one. Every recording method is safe on a nil *Metrics, which lets services run
without instrumentation.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taibuivan/shiftsphere/internal/platform/constants"
)

// Auth event outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics groups the collectors used across the process.
type Metrics struct {
	httpInFlight    prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	authEvents      *prometheus.CounterVec
	refreshReuse    prometheus.Counter
	realtimeClients prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Identity operations by event and outcome.",
		}, []string{"event", "outcome"}),
		refreshReuse: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_refresh_reuse_total",
			Help: "Refresh tokens presented after rotation (session compromise).",
		}),
		realtimeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_connected_clients",
			Help: "Websocket clients connected to this instance.",
		}),
	}

	buildInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "ShiftSphere API build information.",
	}, []string{"version"})
	buildInfo.WithLabelValues(constants.AppVersion).Set(1)

	reg.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.authEvents,
		m.refreshReuse,
		m.realtimeClients,
		buildInfo,
	)
	return m
}

// Handler serves the gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// # Recording

// AuthEvent counts one identity operation.
func (m *Metrics) AuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

// RefreshReuse counts a detected refresh-token replay.
func (m *Metrics) RefreshReuse() {
	if m == nil {
		return
	}
	m.refreshReuse.Inc()
}

// ClientConnected tracks websocket connections on this instance.
func (m *Metrics) ClientConnected(delta int) {
	if m == nil {
		return
	}
	m.realtimeClients.Add(float64(delta))
}

// # HTTP Instrumentation

// Instrument measures request count, latency and concurrency.
// The route label is the chi pattern, not the raw path, to bound cardinality.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		recorder := chimw.NewWrapResponseWriter(writer, request.ProtoMajor)
		next.ServeHTTP(recorder, request)

		route := "unmatched"
		if routeCtx := chi.RouteContext(request.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		code := recorder.Status()
		if code == 0 {
			code = http.StatusOK
		}
		status := strconv.Itoa(code)
		m.httpDuration.WithLabelValues(request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(request.Method, route, status).Inc()
	})
}
