package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
)

type CompleteOrderCommand struct {
	OrderID string
	Caller  ports.Caller
}

type CompleteOrderHandler interface {
	Handle(ctx context.Context, cmd CompleteOrderCommand) (*TransitionResult, error)
}

// CompleteOrderCommandHandler closes out a sent order. Operators only.
type CompleteOrderCommandHandler struct {
	repo ports.OrderRepository
	now  func() time.Time
}

func NewCompleteOrderCommandHandler(repo ports.OrderRepository) *CompleteOrderCommandHandler {
	return &CompleteOrderCommandHandler{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (h *CompleteOrderCommandHandler) Handle(ctx context.Context, cmd CompleteOrderCommand) (*TransitionResult, error) {
	if !cmd.Caller.IsOperator {
		return nil, fmt.Errorf("%w: only operators can complete orders", domain.ErrForbidden)
	}
	if err := requireOrderID(cmd.OrderID); err != nil {
		return nil, err
	}

	var result *TransitionResult
	err := h.repo.WithinTx(ctx, func(ctx context.Context, repo ports.OrderRepository) error {
		order, err := repo.GetForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return err
		}

		if order.Status == domain.StatusCompleted {
			result = &TransitionResult{Order: order, AlreadyApplied: true}
			return nil
		}

		completed := *order
		if err := completed.Transition(domain.ActionComplete, cmd.Caller.ID, h.now()); err != nil {
			result = &TransitionResult{Order: order}
			return err
		}
		if err := repo.UpdateFulfillment(ctx, completed, domain.StatusSent); err != nil {
			return err
		}

		result = &TransitionResult{Order: &completed}
		return nil
	})
	if err != nil {
		return failedTransition(result), err
	}
	return result, nil
}
