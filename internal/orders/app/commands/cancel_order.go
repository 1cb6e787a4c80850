package commands

import (
	"context"
	"time"

	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
)

type CancelOrderCommand struct {
	OrderID string
	Caller  ports.Caller
}

type CancelOrderHandler interface {
	Handle(ctx context.Context, cmd CancelOrderCommand) (*TransitionResult, error)
}

// CancelOrderCommandHandler releases the payment hold and cancels an order that
// has not been dispatched yet. Owners and operators may cancel.
type CancelOrderCommandHandler struct {
	repo    ports.OrderRepository
	gateway ports.PaymentGateway
	now     func() time.Time
}

func NewCancelOrderCommandHandler(repo ports.OrderRepository, gateway ports.PaymentGateway) *CancelOrderCommandHandler {
	return &CancelOrderCommandHandler{
		repo:    repo,
		gateway: gateway,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (h *CancelOrderCommandHandler) Handle(ctx context.Context, cmd CancelOrderCommand) (*TransitionResult, error) {
	if err := requireOrderID(cmd.OrderID); err != nil {
		return nil, err
	}

	var result *TransitionResult
	err := h.repo.WithinTx(ctx, func(ctx context.Context, repo ports.OrderRepository) error {
		order, err := loadVisible(ctx, repo, cmd.OrderID, cmd.Caller)
		if err != nil {
			return err
		}

		// Check legality before calling the processor so a rejected cancel
		// never touches the payment.
		if _, err := domain.NextStatus(order.Status, domain.ActionCancel); err != nil {
			result = &TransitionResult{Order: order}
			return err
		}

		if order.Payment != nil && order.Payment.Cancelable() {
			payment, err := h.gateway.Cancel(ctx, *order.Payment)
			if err != nil {
				result = &TransitionResult{Order: order}
				return err
			}
			payment.Touch(cmd.Caller.ID, h.now())
			if err := repo.UpdatePayment(ctx, payment); err != nil {
				return err
			}
			order.Payment = &payment
		}

		if err := order.Transition(domain.ActionCancel, cmd.Caller.ID, h.now()); err != nil {
			return err
		}
		if err := repo.UpdateFulfillment(ctx, *order, domain.StatusOrdered); err != nil {
			return err
		}

		result = &TransitionResult{Order: order}
		return nil
	})
	if err != nil {
		return failedTransition(result), err
	}
	return result, nil
}

// failedTransition keeps only results that carry an unchanged order, so callers
// never see half-applied state.
func failedTransition(result *TransitionResult) *TransitionResult {
	if result == nil || result.Order == nil {
		return nil
	}
	return result
}
