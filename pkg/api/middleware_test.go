package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/IsaacBoateng/Private-blockchain/pkg/observability"
)

func TestRateLimitMiddleware(t *testing.T) {
	// 1 req/sec, burst 2
	limiter := NewClientRateLimiter(1, 2)
	defer limiter.Stop()
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	ts := httptest.NewServer(handler)
	defer ts.Close()
	client := ts.Client()

	for i := 0; i < 2; i++ {
		resp, err := client.Get(ts.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "Within burst limit")
		assert.NoError(t, resp.Body.Close())
	}

	resp, err := client.Get(ts.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode, "Exceeded burst")
	assert.Equal(t, "5", resp.Header.Get("Retry-After"))
	assert.NoError(t, resp.Body.Close())
}

func TestClientRateLimiter_RefillAndEviction(t *testing.T) {
	limiter := NewClientRateLimiter(1, 1)
	defer limiter.Stop()
	now := time.Unix(1700000000, 0)

	assert.True(t, limiter.allow("10.0.0.1", now))
	assert.False(t, limiter.allow("10.0.0.1", now))
	assert.True(t, limiter.allow("10.0.0.2", now), "budgets are per client")
	assert.True(t, limiter.allow("10.0.0.1", now.Add(time.Second)), "token refilled")

	limiter.evictIdle(now.Add(2 * time.Minute))
	assert.Len(t, limiter.clients, 2)
	limiter.evictIdle(now.Add(4 * time.Minute))
	assert.Empty(t, limiter.clients)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
		WriteNotFound(w, "nothing here")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	id := rec.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id, seen)
	assert.Contains(t, rec.Body.String(), id, "problem carries the request id")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestInstrument(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	p, err := observability.NewWithProviders(tp, mp)
	require.NoError(t, err)

	status := http.StatusOK
	h := Instrument(p, "GET /x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	status = http.StatusInternalServerError
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	values := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && len(sum.DataPoints) > 0 {
				values[m.Name] = sum.DataPoints[0].Value
			}
		}
	}
	assert.Equal(t, int64(2), values["notary.requests.total"])
	assert.Equal(t, int64(1), values["notary.errors.total"])
}

func TestInstrument_NilProvider(t *testing.T) {
	called := false
	h := Instrument(nil, "GET /", http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}
