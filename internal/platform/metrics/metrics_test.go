// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/shiftsphere/internal/platform/metrics"
)

/*
TestMetrics_NilSafe verifies that a nil collector set is a no-op.
*/
func TestMetrics_NilSafe(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.AuthEvent("login", metrics.OutcomeSuccess)
		m.RefreshReuse()
		m.ClientConnected(1)
	})

	handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	assert.NotNil(t, m.Instrument(handler))
}

/*
TestMetrics_Instrument records requests under their route pattern.
*/
func TestMetrics_Instrument(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// 1. Route with a path parameter
	router := chi.NewRouter()
	router.Use(m.Instrument)
	router.Get("/users/{id}", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusTeapot)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/abc", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/def", nil))

	// 2. Both requests share one series
	count, err := testutil.GatherAndCount(registry, "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// 3. Domain counters
	m.RefreshReuse()
	m.AuthEvent("login", metrics.OutcomeFailure)

	recorder := httptest.NewRecorder()
	metrics.Handler(registry).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, recorder.Body.String(), `http_requests_total{method="GET",route="/users/{id}",status="418"} 2`)
	assert.Contains(t, recorder.Body.String(), "auth_refresh_reuse_total 1")
	assert.Contains(t, recorder.Body.String(), `auth_events_total{event="login",outcome="failure"} 1`)
}
