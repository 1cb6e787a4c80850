package temporal

import (
	"context"
	"log/slog"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/navi/orderflow/internal/invoicing"
)

// Activities runs single invoice attempts. Temporal owns the retries.
type Activities struct {
	worker  *invoicing.Worker
	logger  *slog.Logger
	metrics *invoicing.Metrics
}

func NewActivities(worker *invoicing.Worker, logger *slog.Logger, metrics *invoicing.Metrics) *Activities {
	return &Activities{worker: worker, logger: logger, metrics: metrics}
}

func (a *Activities) GenerateInvoice(ctx context.Context, orderID string) (InvoiceResult, error) {
	info := activity.GetInfo(ctx)

	invoice, err := a.worker.Process(ctx, orderID)
	if err == nil {
		a.metrics.RecordJob(ctx, invoicing.OutcomeSucceeded)
		return InvoiceResult{
			InvoiceID:   invoice.ID,
			Reference:   invoice.FormattedReference(),
			DocumentRef: invoice.DocumentRef,
		}, nil
	}

	if invoicing.IsPermanent(err) {
		a.metrics.RecordJob(ctx, invoicing.OutcomeRejected)
		a.logger.ErrorContext(ctx, "invoice job rejected", "error", err, "order_id", orderID)
		return InvoiceResult{}, temporal.NewNonRetryableApplicationError(err.Error(), permanentErrorType, err)
	}

	// The workflow's activity retry policy is built from the same config.
	if info.Attempt >= int32(a.worker.RetryPolicy().MaxAttempts) {
		a.metrics.RecordJob(ctx, invoicing.OutcomeExhausted)
		a.logger.ErrorContext(ctx, "invoice job exhausted retries",
			"error", err,
			"order_id", orderID,
			"attempts", info.Attempt,
			"alert", true,
		)
		return InvoiceResult{}, err
	}

	a.metrics.RecordJob(ctx, invoicing.OutcomeRetried)
	a.logger.WarnContext(ctx, "invoice job failed, retrying",
		"error", err,
		"order_id", orderID,
		"attempt", info.Attempt,
	)
	return InvoiceResult{}, err
}
