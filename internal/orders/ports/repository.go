package ports

import (
	"context"
	"errors"

	"github.com/navi/orderflow/internal/orders/domain"
)

// OrderRepository exposes persistence operations for the order aggregate.
// Every method called on the repository passed to WithinTx runs in that
// transaction; returning an error from fn rolls everything back.
type OrderRepository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo OrderRepository) error) error

	CreateOrder(ctx context.Context, order domain.Order) error
	AddItem(ctx context.Context, item domain.OrderItem) error
	AddCustomization(ctx context.Context, customization domain.OrderCustomization) error
	CreatePayment(ctx context.Context, payment domain.Payment) error
	UpdatePayment(ctx context.Context, payment domain.Payment) error
	AttachPayment(ctx context.Context, orderID, paymentID string) error

	// GetByID loads the order with items, customizations and payment.
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// GetForUpdate is GetByID plus a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Order, error)
	// UpdateFulfillment persists status, destination and audit fields, but only
	// while the stored status still equals expected.
	UpdateFulfillment(ctx context.Context, order domain.Order, expected domain.OrderStatus) error
}

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrStaleStatus is returned when a conditional status update lost a race.
	ErrStaleStatus = errors.New("order status changed concurrently")
)
