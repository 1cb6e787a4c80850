// Package temporal runs each invoice job as a Temporal workflow. The workflow id
// is derived from the order id, so an order can only ever start one invoice
// workflow.
package temporal

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/navi/orderflow/internal/invoicing"
)

const (
	WorkflowName = "InvoiceWorkflow"
	ActivityName = "GenerateInvoice"

	permanentErrorType = "PermanentInvoiceError"
)

// WorkflowInput carries the order id and the retry policy, so the policy in
// force when the job was queued is the one applied.
type WorkflowInput struct {
	OrderID string
	Retry   RetryInput
}

type RetryInput struct {
	MaxAttempts     int32
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

func retryInput(p invoicing.RetryPolicy) RetryInput {
	p = p.Normalized()
	return RetryInput{
		MaxAttempts:     int32(p.MaxAttempts),
		InitialInterval: p.InitialInterval,
		MaxInterval:     p.MaxInterval,
		Multiplier:      p.Multiplier,
	}
}

// InvoiceResult is what the activity reports back.
type InvoiceResult struct {
	InvoiceID   string
	Reference   string
	DocumentRef string
}

func InvoiceWorkflow(ctx workflow.Context, input WorkflowInput) (InvoiceResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("InvoiceWorkflow started", "order_id", input.OrderID)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        input.Retry.InitialInterval,
			BackoffCoefficient:     input.Retry.Multiplier,
			MaximumInterval:        input.Retry.MaxInterval,
			MaximumAttempts:        input.Retry.MaxAttempts,
			NonRetryableErrorTypes: []string{permanentErrorType},
		},
	})

	var result InvoiceResult
	if err := workflow.ExecuteActivity(ctx, ActivityName, input.OrderID).Get(ctx, &result); err != nil {
		logger.Error("InvoiceWorkflow failed", "order_id", input.OrderID, "error", err)
		return InvoiceResult{}, err
	}

	logger.Info("InvoiceWorkflow completed", "order_id", input.OrderID, "reference", result.Reference)
	return result, nil
}
