package temporal

import (
	"context"
	"errors"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/navi/orderflow/internal/invoicing"
)

type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// Enqueuer starts one invoice workflow per order.
type Enqueuer struct {
	client    workflowStarter
	taskQueue string
	retry     invoicing.RetryPolicy
}

func NewEnqueuer(c workflowStarter, taskQueue string, retry invoicing.RetryPolicy) *Enqueuer {
	return &Enqueuer{client: c, taskQueue: taskQueue, retry: retry}
}

func WorkflowID(orderID string) string {
	return "invoice-" + orderID
}

// EnqueueInvoice starts the workflow. A workflow that already exists for the
// order, running or finished, counts as enqueued.
func (e *Enqueuer) EnqueueInvoice(ctx context.Context, orderID string) error {
	options := client.StartWorkflowOptions{
		ID:                                       WorkflowID(orderID),
		TaskQueue:                                e.taskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}

	_, err := e.client.ExecuteWorkflow(ctx, options, WorkflowName, WorkflowInput{
		OrderID: orderID,
		Retry:   retryInput(e.retry),
	})
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			return nil
		}
		return fmt.Errorf("start invoice workflow for order %s: %w", orderID, err)
	}
	return nil
}
