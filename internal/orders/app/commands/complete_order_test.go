package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/navi/orderflow/internal/orders/app/commands"
	"github.com/navi/orderflow/internal/orders/domain"
)

func TestCompleteOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("completes a sent order", func(t *testing.T) {
		f := newFixture()
		order := f.placeOrder(t, ada)
		f.dispatch(t, order.ID)

		result, err := f.completeHandler().Handle(ctx, commands.CompleteOrderCommand{OrderID: order.ID, Caller: ops})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Order.Status != domain.StatusCompleted {
			t.Errorf("expected status %s, got %s", domain.StatusCompleted, result.Order.Status)
		}
		if f.stored(t, order.ID).Status != domain.StatusCompleted {
			t.Error("expected completion to be stored")
		}

		again, err := f.completeHandler().Handle(ctx, commands.CompleteOrderCommand{OrderID: order.ID, Caller: ops})
		if err != nil || !again.AlreadyApplied {
			t.Errorf("expected a repeat to be already applied, got %+v, %v", again, err)
		}
	})

	t.Run("an ordered order cannot be completed", func(t *testing.T) {
		f := newFixture()
		order := f.placeOrder(t, ada)

		result, err := f.completeHandler().Handle(ctx, commands.CompleteOrderCommand{OrderID: order.ID, Caller: ops})
		if !errors.Is(err, domain.ErrStateConflict) {
			t.Fatalf("expected state conflict, got %v", err)
		}
		if result == nil || result.Order.Status != domain.StatusOrdered {
			t.Errorf("expected the unchanged order, got %+v", result)
		}
	})

	t.Run("customers cannot complete orders", func(t *testing.T) {
		f := newFixture()
		order := f.placeOrder(t, ada)
		f.dispatch(t, order.ID)

		_, err := f.completeHandler().Handle(ctx, commands.CompleteOrderCommand{OrderID: order.ID, Caller: ada})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})
}
