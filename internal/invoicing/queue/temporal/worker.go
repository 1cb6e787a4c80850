package temporal

import (
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// NewWorker registers the invoice workflow and activity on taskQueue.
func NewWorker(c client.Client, taskQueue string, activities *Activities, concurrency int) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: max(concurrency, 1),
	})
	w.RegisterWorkflowWithOptions(InvoiceWorkflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivityWithOptions(activities.GenerateInvoice, activity.RegisterOptions{Name: ActivityName})
	return w
}
