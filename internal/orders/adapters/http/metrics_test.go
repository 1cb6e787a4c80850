package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}
	return m, reader
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Sum[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				sum, ok := m.Data.(metricdata.Sum[int64])
				if !ok {
					t.Fatalf("Expected Sum[int64] for %s", name)
				}
				return sum
			}
		}
	}
	t.Fatalf("%s metric not found", name)
	return metricdata.Sum[int64]{}
}

func TestRecordHTTPRequest(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRequest(ctx, "GET", "/v1/orders/{id}", 200, 0.5)
	m.RecordRequest(ctx, "POST", "/v1/orders", 201, 0.7)

	sum := collectSum(t, reader, "http_requests_total")
	if len(sum.DataPoints) != 2 {
		t.Errorf("Expected 2 data points, got %d", len(sum.DataPoints))
	}
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	m, reader := newTestMetrics(t)

	router := mux.NewRouter()
	router.Use(MetricsMiddleware(m))
	router.HandleFunc("/v1/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/orders/"+id, nil))
	}

	sum := collectSum(t, reader, "http_requests_total")
	if len(sum.DataPoints) != 1 {
		t.Fatalf("Expected one series for the route, got %d", len(sum.DataPoints))
	}
	dp := sum.DataPoints[0]
	if dp.Value != 3 {
		t.Errorf("Expected 3 requests, got %d", dp.Value)
	}
	if path, _ := dp.Attributes.Value(attribute.Key("path")); path.AsString() != "/v1/orders/{id}" {
		t.Errorf("Expected templated path, got %q", path.AsString())
	}
	if code, _ := dp.Attributes.Value(attribute.Key("status_code")); code.AsInt64() != 404 {
		t.Errorf("Expected status 404, got %d", code.AsInt64())
	}
}

func TestMetricsMiddlewareTracksInFlightAndStatusClass(t *testing.T) {
	m, reader := newTestMetrics(t)

	var inFlight int64
	router := mux.NewRouter()
	router.Use(MetricsMiddleware(m))
	router.HandleFunc("/v1/orders", func(w http.ResponseWriter, _ *http.Request) {
		inFlight = collectSum(t, reader, "http_requests_in_flight").DataPoints[0].Value
		w.WriteHeader(http.StatusConflict)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/orders", nil))

	if inFlight != 1 {
		t.Errorf("Expected 1 request in flight while serving, got %d", inFlight)
	}
	if after := collectSum(t, reader, "http_requests_in_flight").DataPoints[0].Value; after != 0 {
		t.Errorf("Expected 0 requests in flight afterwards, got %d", after)
	}
	dp := collectSum(t, reader, "http_requests_total").DataPoints[0]
	if class, _ := dp.Attributes.Value(attribute.Key("status_class")); class.AsString() != "4xx" {
		t.Errorf("Expected status class 4xx, got %q", class.AsString())
	}
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	m.StartRequest(ctx, "GET", "/healthz")()
	m.RecordRequest(ctx, "GET", "/healthz", 200, 0.1)
	m.RecordIdempotency(ctx, IdempotencyReplayed)
}
