package invoicing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Job outcomes recorded on invoice_jobs_total.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRetried   = "retried"
	OutcomeRejected  = "rejected"
	OutcomeExhausted = "exhausted"
)

type Metrics struct {
	jobsTotal       metric.Int64Counter
	jobDuration     metric.Float64Histogram
	invoicesCreated metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.jobsTotal, err = meter.Int64Counter(
		"invoice_jobs_total",
		metric.WithDescription("Invoice job attempts by outcome"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create invoice_jobs_total counter: %w", err)
	}

	m.jobDuration, err = meter.Float64Histogram(
		"invoice_job_duration_seconds",
		metric.WithDescription("Duration of a single invoice job attempt"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create invoice_job_duration histogram: %w", err)
	}

	m.invoicesCreated, err = meter.Int64Counter(
		"invoices_created_total",
		metric.WithDescription("Invoices allocated a reference number"),
		metric.WithUnit("{invoice}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create invoices_created_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordJob(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.jobsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordAttempt(ctx context.Context, durationSeconds float64, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.jobDuration.Record(ctx, durationSeconds, metric.WithAttributes(attribute.String("status", status)))
}

func (m *Metrics) RecordInvoiceCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.invoicesCreated.Add(ctx, 1)
}
