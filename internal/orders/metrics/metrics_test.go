package metrics

import (
	"context"
	"testing"

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

func collect(t *testing.T, reader *sdkmetric.ManualReader, name string) (metricdata.Metrics, bool) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestInitializeMetrics(t *testing.T) {
	m, _ := newTestMetrics(t)

	if m.ordersCreatedTotal == nil {
		t.Error("ordersCreatedTotal is nil")
	}
	if m.orderCreationDuration == nil {
		t.Error("orderCreationDuration is nil")
	}
	if m.orderTransitionsTotal == nil {
		t.Error("orderTransitionsTotal is nil")
	}
	if m.invoiceEnqueueFailures == nil {
		t.Error("invoiceEnqueueFailures is nil")
	}
	if m.gatewayRequestDuration == nil {
		t.Error("gatewayRequestDuration is nil")
	}
}

func TestRecordOrderCreated(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordOrderCreated(ctx, true)
	m.RecordOrderCreated(ctx, false)

	data, ok := collect(t, reader, "orders_created_total")
	if !ok {
		t.Fatal("orders_created_total metric not found")
	}
	sum, ok := data.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("Expected Sum[int64] data type")
	}
	if len(sum.DataPoints) != 2 {
		t.Errorf("Expected 2 data points, got %d", len(sum.DataPoints))
	}
}

func TestRecordOrderCreationDuration(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordOrderCreationDuration(ctx, 1.5)
	m.RecordOrderCreationDuration(ctx, 2.3)

	data, ok := collect(t, reader, "order_creation_duration_seconds")
	if !ok {
		t.Fatal("order_creation_duration_seconds metric not found")
	}
	histogram, ok := data.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("Expected Histogram[float64] data type")
	}
	if len(histogram.DataPoints) != 1 {
		t.Fatalf("Expected 1 data point, got %d", len(histogram.DataPoints))
	}
	if histogram.DataPoints[0].Count != 2 {
		t.Errorf("Expected count=2, got %d", histogram.DataPoints[0].Count)
	}
}

func TestRecordTransition(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTransition(ctx, "dispatch", OutcomeApplied)
	m.RecordTransition(ctx, "dispatch", OutcomeApplied)
	m.RecordTransition(ctx, "dispatch", OutcomeAlreadyApplied)
	m.RecordTransition(ctx, "cancel", OutcomeRejected)

	data, ok := collect(t, reader, "order_transitions_total")
	if !ok {
		t.Fatal("order_transitions_total metric not found")
	}
	sum, ok := data.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("Expected Sum[int64] data type")
	}
	if len(sum.DataPoints) != 3 {
		t.Errorf("Expected 3 data points, got %d", len(sum.DataPoints))
	}

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 4 {
		t.Errorf("Expected 4 transitions in total, got %d", total)
	}
}

func TestRecordInvoiceEnqueueFailure(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordInvoiceEnqueueFailure(context.Background())

	data, ok := collect(t, reader, "invoice_enqueue_failures_total")
	if !ok {
		t.Fatal("invoice_enqueue_failures_total metric not found")
	}
	sum := data.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Errorf("Expected a single data point with value 1, got %+v", sum.DataPoints)
	}
}

func TestRecordGatewayRequest(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordGatewayRequest(ctx, "authorize", 0.2, true)
	m.RecordGatewayRequest(ctx, "capture", 0.4, false)

	data, ok := collect(t, reader, "payment_gateway_request_duration_seconds")
	if !ok {
		t.Fatal("payment_gateway_request_duration_seconds metric not found")
	}
	histogram := data.Data.(metricdata.Histogram[float64])
	if len(histogram.DataPoints) != 2 {
		t.Errorf("Expected 2 data points, got %d", len(histogram.DataPoints))
	}
}
