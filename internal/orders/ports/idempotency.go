package ports

import (
	"context"
	"errors"
)

// ErrIdempotencyKeyInUse is returned by Reserve while another request holds
// the key.
var ErrIdempotencyKeyInUse = errors.New("idempotency key in use")

// StoredResponse is the create-order response replayed for a reused key.
type StoredResponse struct {
	StatusCode int
	Body       []byte
	OrderID    string
}

// IdempotencyStore lets a client resubmit an order creation without placing a
// second authorization. Keys are scoped to the caller that used them.
//
// A request first calls Reserve. A nil response with a nil error means the
// caller now holds the key and must finish with Save or Release. A stale
// reservation (its holder crashed) can be taken over once it expires.
type IdempotencyStore interface {
	Reserve(ctx context.Context, userID, key string) (*StoredResponse, error)
	Save(ctx context.Context, userID, key string, response StoredResponse) error
	Release(ctx context.Context, userID, key string) error
	Get(ctx context.Context, userID, key string) (*StoredResponse, error)
}
