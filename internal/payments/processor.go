// Package payments adapts a card processor to the order flow's
// authorize/capture/cancel protocol.
package payments

import (
	"context"
	"fmt"
)

// Processor is the slice of a processor API the gateway needs. Implementations
// make exactly one remote call per method and never retry.
type Processor interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateIntent(ctx context.Context, params IntentParams) (Intent, error)
	CaptureIntent(ctx context.Context, intentID string) (Intent, error)
	CancelIntent(ctx context.Context, intentID string) (Intent, error)
}

// IntentParams describes a manual-capture payment intent.
type IntentParams struct {
	AmountCents int64
	Currency    string
	CustomerID  string
	OrderID     string
}

// Intent is the processor's view of a payment intent.
type Intent struct {
	ID                  string
	ClientSecret        string
	Status              string
	AmountReceivedCents int64
	Currency            string
}

// ProcessorError is returned by processors for declines and API failures.
type ProcessorError struct {
	Code    string
	Message string
	Err     error
}

func (e *ProcessorError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessorError) Unwrap() error { return e.Err }
