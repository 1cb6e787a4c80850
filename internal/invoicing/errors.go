package invoicing

import (
	"errors"
	"fmt"
)

// ErrPermanent marks a job that will fail the same way on every attempt.
// Retries stop as soon as one is returned.
var ErrPermanent = errors.New("permanent invoice failure")

func permanent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPermanent, fmt.Sprintf(format, args...))
}

// IsPermanent reports whether err should not be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
