package http

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// IdempotencyOutcome labels what an Idempotency-Key did to a create request.
type IdempotencyOutcome string

const (
	IdempotencyReserved IdempotencyOutcome = "reserved"
	IdempotencyReplayed IdempotencyOutcome = "replayed"
	IdempotencyInUse    IdempotencyOutcome = "in_use"
)

// Metrics holds the order API's HTTP instruments. Paths are always route
// templates. A nil *Metrics records nothing.
type Metrics struct {
	requestDuration  metric.Float64Histogram
	requestsTotal    metric.Int64Counter
	inFlight         metric.Int64UpDownCounter
	idempotencyTotal metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("Order API request latency by route"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration_seconds histogram: %w", err)
	}

	requestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Order API requests by route and status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total counter: %w", err)
	}

	inFlight, err := meter.Int64UpDownCounter(
		"http_requests_in_flight",
		metric.WithDescription("Order API requests currently being served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_in_flight counter: %w", err)
	}

	idempotencyTotal, err := meter.Int64Counter(
		"order_idempotency_requests_total",
		metric.WithDescription("Create-order requests carrying an Idempotency-Key, by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_idempotency_requests_total counter: %w", err)
	}

	return &Metrics{
		requestDuration:  requestDuration,
		requestsTotal:    requestsTotal,
		inFlight:         inFlight,
		idempotencyTotal: idempotencyTotal,
	}, nil
}

// StartRequest counts route as in flight until the returned func is called.
func (m *Metrics) StartRequest(ctx context.Context, method, route string) func() {
	if m == nil {
		return func() {}
	}
	attrs := metric.WithAttributes(attribute.String("method", method), attribute.String("path", route))
	m.inFlight.Add(ctx, 1, attrs)
	return func() { m.inFlight.Add(ctx, -1, attrs) }
}

func (m *Metrics) RecordRequest(ctx context.Context, method, route string, statusCode int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", route),
		attribute.Int("status_code", statusCode),
		attribute.String("status_class", statusClass(statusCode)),
	))
	m.requestDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", route),
		attribute.String("status_class", statusClass(statusCode)),
	))
}

func (m *Metrics) RecordIdempotency(ctx context.Context, outcome IdempotencyOutcome) {
	if m == nil {
		return
	}
	m.idempotencyTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
