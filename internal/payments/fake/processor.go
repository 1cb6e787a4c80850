// Package fake is a deterministic in-memory payments.Processor for local runs
// and tests.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/navi/orderflow/internal/payments"
)

const (
	OpCustomer  = "customer"
	OpAuthorize = "authorize"
	OpCapture   = "capture"
	OpCancel    = "cancel"
)

type intent struct {
	payments.Intent
	amountCents int64
}

type Processor struct {
	mu       sync.Mutex
	seq      int
	intents  map[string]*intent
	failures map[string]*payments.ProcessorError
	calls    map[string]int
}

func NewProcessor() *Processor {
	return &Processor{
		intents:  make(map[string]*intent),
		failures: make(map[string]*payments.ProcessorError),
		calls:    make(map[string]int),
	}
}

// FailNext makes the next call of op fail with the given processor code.
func (p *Processor) FailNext(op, code, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[op] = &payments.ProcessorError{Code: code, Message: message}
}

// Calls reports how many times op was invoked, failures included.
func (p *Processor) Calls(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

// Intent returns the processor-side state of an intent.
func (p *Processor) Intent(id string) (payments.Intent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := p.intents[id]
	if !ok {
		return payments.Intent{}, false
	}
	return in.Intent, true
}

func (p *Processor) CreateCustomer(_ context.Context, _, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(OpCustomer); err != nil {
		return "", err
	}
	p.seq++
	return fmt.Sprintf("cus_fake_%d", p.seq), nil
}

func (p *Processor) CreateIntent(_ context.Context, params payments.IntentParams) (payments.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(OpAuthorize); err != nil {
		return payments.Intent{}, err
	}

	p.seq++
	id := fmt.Sprintf("pi_fake_%d", p.seq)
	in := &intent{
		Intent: payments.Intent{
			ID:           id,
			ClientSecret: id + "_secret",
			Status:       "requires_capture",
			Currency:     params.Currency,
		},
		amountCents: params.AmountCents,
	}
	p.intents[id] = in
	return in.Intent, nil
}

func (p *Processor) CaptureIntent(_ context.Context, intentID string) (payments.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(OpCapture); err != nil {
		return payments.Intent{}, err
	}

	in, err := p.capturable(intentID)
	if err != nil {
		return payments.Intent{}, err
	}
	in.Status = "succeeded"
	in.AmountReceivedCents = in.amountCents
	return in.Intent, nil
}

func (p *Processor) CancelIntent(_ context.Context, intentID string) (payments.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(OpCancel); err != nil {
		return payments.Intent{}, err
	}

	in, err := p.capturable(intentID)
	if err != nil {
		return payments.Intent{}, err
	}
	in.Status = "canceled"
	return in.Intent, nil
}

func (p *Processor) begin(op string) error {
	p.calls[op]++
	if failure, ok := p.failures[op]; ok {
		delete(p.failures, op)
		return failure
	}
	return nil
}

func (p *Processor) capturable(intentID string) (*intent, error) {
	in, ok := p.intents[intentID]
	if !ok {
		return nil, &payments.ProcessorError{Code: "resource_missing", Message: "no such payment_intent: " + intentID}
	}
	if in.Status != "requires_capture" {
		return nil, &payments.ProcessorError{
			Code:    "payment_intent_unexpected_state",
			Message: fmt.Sprintf("payment intent is %s", in.Status),
		}
	}
	return in, nil
}
