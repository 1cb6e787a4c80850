package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
)

// Gateway implements ports.PaymentGateway on top of a Processor. It never
// writes payment records itself: callers persist what it returns, so a failed
// call leaves local state untouched.
type Gateway struct {
	processor Processor
	customers ports.CustomerDirectory
	now       func() time.Time
}

func NewGateway(processor Processor, customers ports.CustomerDirectory) *Gateway {
	return &Gateway{
		processor: processor,
		customers: customers,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (g *Gateway) Authorize(ctx context.Context, req ports.AuthorizeRequest) (string, domain.Payment, error) {
	if req.AmountCents <= 0 {
		return "", domain.Payment{}, domain.NewValidationError("amount", "must be positive")
	}

	customerID, err := g.customerID(ctx, req.Customer)
	if err != nil {
		return "", domain.Payment{}, err
	}

	intent, err := g.processor.CreateIntent(ctx, IntentParams{
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		CustomerID:  customerID,
		OrderID:     req.OrderID,
	})
	if err != nil {
		return "", domain.Payment{}, gatewayError("authorize", err)
	}

	currency := intent.Currency
	if currency == "" {
		currency = req.Currency
	}

	payment := domain.Payment{
		ID:                  uuid.NewString(),
		GatewayIntentID:     intent.ID,
		AmountReceivedCents: 0,
		Currency:            currency,
		Status:              mapStatus(intent.Status),
		Audit:               domain.NewAudit(req.Customer.ID, g.now()),
	}
	return intent.ClientSecret, payment, nil
}

func (g *Gateway) Capture(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	intent, err := g.processor.CaptureIntent(ctx, payment.GatewayIntentID)
	if err != nil {
		return payment, gatewayError("capture", err)
	}
	return g.mirror(payment, intent), nil
}

func (g *Gateway) Cancel(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	intent, err := g.processor.CancelIntent(ctx, payment.GatewayIntentID)
	if err != nil {
		return payment, gatewayError("cancel", err)
	}
	return g.mirror(payment, intent), nil
}

// customerID returns the stored processor customer, creating and saving one on
// first use.
func (g *Gateway) customerID(ctx context.Context, caller ports.Caller) (string, error) {
	id, err := g.customers.GatewayCustomerID(ctx, caller.ID)
	if err != nil {
		return "", fmt.Errorf("look up gateway customer: %w", err)
	}
	if id != "" {
		return id, nil
	}

	id, err = g.processor.CreateCustomer(ctx, caller.Email, caller.ID)
	if err != nil {
		return "", gatewayError("create customer", err)
	}
	if err := g.customers.SaveGatewayCustomerID(ctx, caller.ID, id); err != nil {
		return "", fmt.Errorf("save gateway customer: %w", err)
	}
	return id, nil
}

// mirror copies the processor's authoritative status and amount onto the
// local record.
func (g *Gateway) mirror(payment domain.Payment, intent Intent) domain.Payment {
	payment.Status = mapStatus(intent.Status)
	payment.AmountReceivedCents = intent.AmountReceivedCents
	if intent.Currency != "" {
		payment.Currency = intent.Currency
	}
	payment.Touch("", g.now())
	return payment
}

func mapStatus(status string) domain.PaymentStatus {
	switch status {
	case "requires_payment_method":
		return domain.PaymentRequiresPaymentMethod
	case "requires_confirmation":
		return domain.PaymentRequiresConfirmation
	case "requires_action":
		return domain.PaymentRequiresAction
	case "processing":
		return domain.PaymentProcessing
	case "requires_capture":
		return domain.PaymentRequiresCapture
	case "succeeded":
		return domain.PaymentSucceeded
	case "canceled":
		return domain.PaymentCanceled
	default:
		return domain.PaymentFailed
	}
}

func gatewayError(op string, err error) error {
	gwErr := &domain.GatewayError{Op: op, Err: err}
	var procErr *ProcessorError
	if errors.As(err, &procErr) {
		gwErr.Code = procErr.Code
		gwErr.Message = procErr.Message
	}
	return gwErr
}
