package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Transition outcomes recorded on orders_transitions_total.
const (
	OutcomeApplied        = "applied"
	OutcomeAlreadyApplied = "already_applied"
	OutcomeRejected       = "rejected"
	OutcomeError          = "error"
)

type Metrics struct {
	ordersCreatedTotal     metric.Int64Counter
	orderCreationDuration  metric.Float64Histogram
	orderTransitionsTotal  metric.Int64Counter
	invoiceEnqueueFailures metric.Int64Counter
	gatewayRequestDuration metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.ordersCreatedTotal, err = meter.Int64Counter(
		"orders_created_total",
		metric.WithDescription("Total number of orders created"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders_created_total counter: %w", err)
	}

	m.orderCreationDuration, err = meter.Float64Histogram(
		"order_creation_duration_seconds",
		metric.WithDescription("Duration of order creation including payment authorization"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_creation_duration histogram: %w", err)
	}

	m.orderTransitionsTotal, err = meter.Int64Counter(
		"order_transitions_total",
		metric.WithDescription("Fulfillment transitions by action and outcome"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_transitions_total counter: %w", err)
	}

	m.invoiceEnqueueFailures, err = meter.Int64Counter(
		"invoice_enqueue_failures_total",
		metric.WithDescription("Dispatched orders whose invoice job could not be queued"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create invoice_enqueue_failures_total counter: %w", err)
	}

	m.gatewayRequestDuration, err = meter.Float64Histogram(
		"payment_gateway_request_duration_seconds",
		metric.WithDescription("Latency of payment processor calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_gateway_request_duration histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordOrderCreated(ctx context.Context, success bool) {
	m.ordersCreatedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", statusLabel(success)),
	))
}

func (m *Metrics) RecordOrderCreationDuration(ctx context.Context, durationSeconds float64) {
	m.orderCreationDuration.Record(ctx, durationSeconds)
}

// RecordTransition counts one dispatch, cancel or complete attempt.
func (m *Metrics) RecordTransition(ctx context.Context, action, outcome string) {
	m.orderTransitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordInvoiceEnqueueFailure(ctx context.Context) {
	m.invoiceEnqueueFailures.Add(ctx, 1)
}

func (m *Metrics) RecordGatewayRequest(ctx context.Context, operation string, durationSeconds float64, success bool) {
	m.gatewayRequestDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", statusLabel(success)),
	))
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
