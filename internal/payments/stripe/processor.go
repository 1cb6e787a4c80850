// Package stripe is the Stripe implementation of payments.Processor.
package stripe

import (
	"context"
	"errors"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/navi/orderflow/internal/payments"
)

type intentsAPI interface {
	New(params *stripeapi.PaymentIntentParams) (*stripeapi.PaymentIntent, error)
	Capture(id string, params *stripeapi.PaymentIntentCaptureParams) (*stripeapi.PaymentIntent, error)
	Cancel(id string, params *stripeapi.PaymentIntentCancelParams) (*stripeapi.PaymentIntent, error)
}

type customersAPI interface {
	New(params *stripeapi.CustomerParams) (*stripeapi.Customer, error)
}

type Processor struct {
	intents   intentsAPI
	customers customersAPI
}

// NewProcessor builds a processor backed by the Stripe API client.
func NewProcessor(secretKey string) *Processor {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &Processor{intents: sc.PaymentIntents, customers: sc.Customers}
}

func (p *Processor) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &stripeapi.CustomerParams{Email: stripeapi.String(email)}
	params.Context = ctx
	params.AddMetadata("user_id", userID)
	params.SetIdempotencyKey("customer-" + userID)

	customer, err := p.customers.New(params)
	if err != nil {
		return "", processorError(err)
	}
	return customer.ID, nil
}

// CreateIntent places a manual-capture hold. The order id doubles as the
// idempotency key so a retried request never opens a second hold.
func (p *Processor) CreateIntent(ctx context.Context, in payments.IntentParams) (payments.Intent, error) {
	params := &stripeapi.PaymentIntentParams{
		Amount:        stripeapi.Int64(in.AmountCents),
		Currency:      stripeapi.String(in.Currency),
		CaptureMethod: stripeapi.String(string(stripeapi.PaymentIntentCaptureMethodManual)),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	if in.CustomerID != "" {
		params.Customer = stripeapi.String(in.CustomerID)
	}
	params.Context = ctx
	params.AddMetadata("order_id", in.OrderID)
	params.SetIdempotencyKey("authorize-" + in.OrderID)

	intent, err := p.intents.New(params)
	if err != nil {
		return payments.Intent{}, processorError(err)
	}
	return toIntent(intent), nil
}

func (p *Processor) CaptureIntent(ctx context.Context, intentID string) (payments.Intent, error) {
	params := &stripeapi.PaymentIntentCaptureParams{}
	params.Context = ctx

	intent, err := p.intents.Capture(intentID, params)
	if err != nil {
		return payments.Intent{}, processorError(err)
	}
	return toIntent(intent), nil
}

func (p *Processor) CancelIntent(ctx context.Context, intentID string) (payments.Intent, error) {
	params := &stripeapi.PaymentIntentCancelParams{}
	params.Context = ctx

	intent, err := p.intents.Cancel(intentID, params)
	if err != nil {
		return payments.Intent{}, processorError(err)
	}
	return toIntent(intent), nil
}

func toIntent(pi *stripeapi.PaymentIntent) payments.Intent {
	return payments.Intent{
		ID:                  pi.ID,
		ClientSecret:        pi.ClientSecret,
		Status:              string(pi.Status),
		AmountReceivedCents: pi.AmountReceived,
		Currency:            string(pi.Currency),
	}
}

func processorError(err error) error {
	var stripeErr *stripeapi.Error
	if !errors.As(err, &stripeErr) {
		return &payments.ProcessorError{Message: err.Error(), Err: err}
	}

	code := string(stripeErr.Code)
	if stripeErr.DeclineCode != "" {
		code = string(stripeErr.DeclineCode)
	}
	return &payments.ProcessorError{Code: code, Message: stripeErr.Msg, Err: err}
}
