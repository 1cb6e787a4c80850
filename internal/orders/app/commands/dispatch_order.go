package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
)

type DispatchOrderCommand struct {
	OrderID       string
	DestinationID string
	Caller        ports.Caller
}

type DispatchOrderHandler interface {
	Handle(ctx context.Context, cmd DispatchOrderCommand) (*TransitionResult, error)
}

// DispatchOrderCommandHandler captures the held payment, marks the order sent
// and queues its invoice. Operators only.
type DispatchOrderCommandHandler struct {
	repo         ports.OrderRepository
	destinations ports.DestinationDirectory
	gateway      ports.PaymentGateway
	invoices     ports.InvoiceQueue
	now          func() time.Time
}

func NewDispatchOrderCommandHandler(
	repo ports.OrderRepository,
	destinations ports.DestinationDirectory,
	gateway ports.PaymentGateway,
	invoices ports.InvoiceQueue,
) *DispatchOrderCommandHandler {
	return &DispatchOrderCommandHandler{
		repo:         repo,
		destinations: destinations,
		gateway:      gateway,
		invoices:     invoices,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (h *DispatchOrderCommandHandler) Handle(ctx context.Context, cmd DispatchOrderCommand) (*TransitionResult, error) {
	if !cmd.Caller.IsOperator {
		return nil, fmt.Errorf("%w: only operators can dispatch orders", domain.ErrForbidden)
	}
	if err := requireOrderID(cmd.OrderID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cmd.DestinationID) == "" {
		return nil, domain.NewValidationError("destination_id", "is required")
	}

	exists, err := h.destinations.DestinationExists(ctx, cmd.DestinationID)
	if err != nil {
		return nil, fmt.Errorf("look up destination: %w", err)
	}
	if !exists {
		return nil, ports.ErrDestinationNotFound
	}

	var result *TransitionResult
	err = h.repo.WithinTx(ctx, func(ctx context.Context, repo ports.OrderRepository) error {
		order, err := repo.GetForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return err
		}

		if order.Status == domain.StatusSent {
			result = &TransitionResult{Order: order, AlreadyApplied: true}
			return nil
		}
		if _, err := domain.NextStatus(order.Status, domain.ActionDispatch); err != nil {
			result = &TransitionResult{Order: order}
			return err
		}
		if order.Payment == nil {
			result = &TransitionResult{Order: order}
			return fmt.Errorf("%w: order %s has no payment to capture", domain.ErrStateConflict, order.ID)
		}

		// Capture strictly before any local mutation: a declined capture leaves
		// the order ordered.
		payment, err := h.gateway.Capture(ctx, *order.Payment)
		if err != nil {
			result = &TransitionResult{Order: order}
			return err
		}
		payment.Touch(cmd.Caller.ID, h.now())
		if err := repo.UpdatePayment(ctx, payment); err != nil {
			return err
		}

		dispatched := *order
		dispatched.Payment = &payment
		destination := cmd.DestinationID
		dispatched.DestinationID = &destination
		if err := dispatched.Transition(domain.ActionDispatch, cmd.Caller.ID, h.now()); err != nil {
			return err
		}
		if err := repo.UpdateFulfillment(ctx, dispatched, domain.StatusOrdered); err != nil {
			return err
		}

		result = &TransitionResult{Order: &dispatched}
		return nil
	})
	if err != nil {
		return failedTransition(result), err
	}

	if result.AlreadyApplied {
		return result, nil
	}

	// The job is queued only after commit, so the worker never sees an order
	// that is not durably sent.
	if err := h.invoices.EnqueueInvoice(ctx, result.Order.ID); err != nil {
		return result, fmt.Errorf("%w: %w", ErrInvoiceEnqueue, err)
	}

	return result, nil
}
