package ports

import (
	"context"
	"errors"
)

// CatalogEntry is the priced view of a menu item or customization.
type CatalogEntry struct {
	ID         string
	Name       string
	PriceCents int64
	Active     bool
}

// CatalogReader is the read-only catalog used to snapshot prices.
type CatalogReader interface {
	GetCatalogItem(ctx context.Context, id string) (CatalogEntry, error)
	GetCatalogCustomization(ctx context.Context, id string) (CatalogEntry, error)
}

// Caller is the authenticated principal behind a request.
type Caller struct {
	ID         string
	Email      string
	IsOperator bool
}

// IdentityResolver maps a bearer credential to a caller.
type IdentityResolver interface {
	ResolveCaller(ctx context.Context, credential string) (Caller, error)
}

// DestinationDirectory answers whether a dispatch destination exists.
type DestinationDirectory interface {
	DestinationExists(ctx context.Context, id string) (bool, error)
}

var (
	// ErrCatalogEntryNotFound is returned for unknown menu items or customizations.
	ErrCatalogEntryNotFound = errors.New("catalog entry not found")
	// ErrUnauthenticated is returned when a credential does not resolve to a caller.
	ErrUnauthenticated = errors.New("invalid or missing credential")
)

// ErrDestinationNotFound is returned when a dispatch names an unknown destination.
var ErrDestinationNotFound = errors.New("destination not found")
