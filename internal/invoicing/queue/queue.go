// Package queue holds the transports that carry invoice jobs from the order
// service to invoicing.Worker.
package queue

import "context"

// Runner executes one invoice job with retries. *invoicing.Worker implements it.
type Runner interface {
	Run(ctx context.Context, orderID string) error
}
