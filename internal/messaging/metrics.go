package messaging

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	publishLatency  metric.Float64Histogram
	deliveriesTotal metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.publishLatency, err = meter.Float64Histogram(
		"messaging_publish_latency_seconds",
		metric.WithDescription("Latency of publishing to the invoice queue and notification subjects"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create messaging_publish_latency histogram: %w", err)
	}

	m.deliveriesTotal, err = meter.Int64Counter(
		"messaging_deliveries_total",
		metric.WithDescription("Messages received from a subscription, by ack outcome"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create messaging_deliveries_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordPublish(ctx context.Context, subject string, durationSeconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.publishLatency.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("subject", subject),
		attribute.String("status", status),
	))
}

// RecordDelivery counts one received message. acked is false when it was left
// for redelivery.
func (m *Metrics) RecordDelivery(ctx context.Context, subject string, acked bool) {
	outcome := "acked"
	if !acked {
		outcome = "redelivery"
	}
	m.deliveriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("subject", subject),
		attribute.String("outcome", outcome),
	))
}
