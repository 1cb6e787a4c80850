package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
)

// TransitionResult is returned by every fulfillment command. On an illegal
// transition the handler returns the unchanged order together with the error.
type TransitionResult struct {
	Order *domain.Order
	// AlreadyApplied is set when the order was already in the target status and
	// nothing was done.
	AlreadyApplied bool
}

// ErrInvoiceEnqueue is returned alongside a successful dispatch whose invoice
// job could not be queued.
var ErrInvoiceEnqueue = errors.New("order dispatched but invoice job was not enqueued")

func requireOrderID(id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.NewValidationError("order_id", "is required")
	}
	return nil
}

// loadVisible locks the order and hides it from callers that neither own it nor
// operate the shop.
func loadVisible(ctx context.Context, repo ports.OrderRepository, id string, caller ports.Caller) (*domain.Order, error) {
	order, err := repo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsOperator && !order.OwnedBy(caller.ID) {
		return nil, ports.ErrNotFound
	}
	return order, nil
}
