package ports

import (
	"context"

	"github.com/navi/orderflow/internal/orders/domain"
)

// AuthorizeRequest describes a manual-capture hold for one order.
type AuthorizeRequest struct {
	OrderID     string
	AmountCents int64
	Currency    string
	Customer    Caller
}

// PaymentGateway is the stable boundary in front of the payment processor.
// Implementations never retry on their own.
type PaymentGateway interface {
	// Authorize places a hold and returns the client secret with a new payment record.
	Authorize(ctx context.Context, req AuthorizeRequest) (string, domain.Payment, error)
	// Capture charges a held payment and returns the record mirrored from the processor.
	Capture(ctx context.Context, payment domain.Payment) (domain.Payment, error)
	// Cancel releases a held payment and returns the record mirrored from the processor.
	Cancel(ctx context.Context, payment domain.Payment) (domain.Payment, error)
}

// CustomerDirectory stores the processor-side customer id on a user's account.
type CustomerDirectory interface {
	GatewayCustomerID(ctx context.Context, userID string) (string, error)
	SaveGatewayCustomerID(ctx context.Context, userID, customerID string) error
}
