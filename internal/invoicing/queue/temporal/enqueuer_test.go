package temporal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/navi/orderflow/internal/invoicing"
)

type mockStarter struct {
	executeFn func(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

func (m *mockStarter) ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error) {
	return m.executeFn(ctx, options, workflow, args...)
}

func TestEnqueuer(t *testing.T) {
	policy := invoicing.DefaultRetryPolicy()

	t.Run("starts one workflow keyed by the order", func(t *testing.T) {
		var (
			gotOptions client.StartWorkflowOptions
			gotName    interface{}
			gotInput   WorkflowInput
		)
		starter := &mockStarter{executeFn: func(_ context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error) {
			gotOptions, gotName = options, workflow
			require.Len(t, args, 1)
			gotInput = args[0].(WorkflowInput)
			return nil, nil
		}}

		err := NewEnqueuer(starter, "invoices", policy).EnqueueInvoice(context.Background(), "order-1")
		require.NoError(t, err)

		assert.Equal(t, "invoice-order-1", gotOptions.ID)
		assert.Equal(t, "invoices", gotOptions.TaskQueue)
		assert.Equal(t, enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE, gotOptions.WorkflowIDReusePolicy)
		assert.True(t, gotOptions.WorkflowExecutionErrorWhenAlreadyStarted)
		assert.Equal(t, WorkflowName, gotName)
		assert.Equal(t, "order-1", gotInput.OrderID)
		assert.Equal(t, int32(policy.MaxAttempts), gotInput.Retry.MaxAttempts)
	})

	t.Run("treats an existing workflow as enqueued", func(t *testing.T) {
		starter := &mockStarter{executeFn: func(context.Context, client.StartWorkflowOptions, interface{}, ...interface{}) (client.WorkflowRun, error) {
			return nil, &serviceerror.WorkflowExecutionAlreadyStarted{Message: "workflow execution already started"}
		}}

		assert.NoError(t, NewEnqueuer(starter, "invoices", policy).EnqueueInvoice(context.Background(), "order-1"))
	})

	t.Run("reports other failures", func(t *testing.T) {
		unavailable := errors.New("frontend unavailable")
		starter := &mockStarter{executeFn: func(context.Context, client.StartWorkflowOptions, interface{}, ...interface{}) (client.WorkflowRun, error) {
			return nil, unavailable
		}}

		err := NewEnqueuer(starter, "invoices", policy).EnqueueInvoice(context.Background(), "order-1")
		assert.ErrorIs(t, err, unavailable)
	})
}
