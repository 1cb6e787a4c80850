package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input that can never succeed as submitted.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden is returned when the caller lacks permission for the action.
	ErrForbidden = errors.New("forbidden")
	// ErrStateConflict is returned when a transition is illegal from the current status.
	ErrStateConflict = errors.New("illegal state transition")
	// ErrGateway wraps failures and declines reported by the payment processor.
	ErrGateway = errors.New("payment gateway error")
	// ErrPersistence wraps storage and transaction failures.
	ErrPersistence = errors.New("persistence error")
)

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransitionError reports an action attempted from a status that does not allow it.
type TransitionError struct {
	From   OrderStatus
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order could not be %s: status is %s", e.Action.pastTense(), e.From)
}

func (e *TransitionError) Unwrap() error { return ErrStateConflict }

// GatewayError carries the processor's failure details. The local payment record
// is left untouched whenever one is returned.
type GatewayError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("payment gateway %s failed (%s): %s", e.Op, e.Code, msg)
	}
	return fmt.Sprintf("payment gateway %s failed: %s", e.Op, msg)
}

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

func (e *GatewayError) Unwrap() error { return e.Err }
