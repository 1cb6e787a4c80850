package database

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	queryDuration   metric.Float64Histogram
	txTotal         metric.Int64Counter
	uniqueConflicts metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.queryDuration, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_query_duration histogram: %w", err)
	}

	m.txTotal, err = meter.Int64Counter(
		"db_transactions_total",
		metric.WithDescription("Unit-of-work transactions by outcome"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_transactions_total counter: %w", err)
	}

	m.uniqueConflicts, err = meter.Int64Counter(
		"db_unique_conflicts_total",
		metric.WithDescription("Unique-constraint conflicts that triggered a retry"),
		metric.WithUnit("{conflict}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_unique_conflicts_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordQuery(ctx context.Context, operation string, durationSeconds float64) {
	m.queryDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

func (m *Metrics) RecordTransaction(ctx context.Context, committed bool) {
	outcome := "committed"
	if !committed {
		outcome = "rolled_back"
	}
	m.txTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordUniqueConflict(ctx context.Context, constraint string) {
	m.uniqueConflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("constraint", constraint)))
}
