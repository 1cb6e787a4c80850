package memory

import (
	"context"
	"sync"

	"github.com/navi/orderflow/internal/orders/ports"
)

// Directory holds API tokens, users' processor customer ids and dispatch
// destinations for local runs.
type Directory struct {
	mu           sync.RWMutex
	tokens       map[string]ports.Caller
	customers    map[string]string
	destinations map[string]struct{}
}

func NewDirectory() *Directory {
	return &Directory{
		tokens:       make(map[string]ports.Caller),
		customers:    make(map[string]string),
		destinations: make(map[string]struct{}),
	}
}

func (d *Directory) AddToken(token string, caller ports.Caller) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokens[token] = caller
}

func (d *Directory) AddDestination(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destinations[id] = struct{}{}
}

func (d *Directory) ResolveCaller(_ context.Context, credential string) (ports.Caller, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	caller, ok := d.tokens[credential]
	if !ok || credential == "" {
		return ports.Caller{}, ports.ErrUnauthenticated
	}
	return caller, nil
}

// GatewayCustomerID returns "" when the user has no processor customer yet.
func (d *Directory) GatewayCustomerID(_ context.Context, userID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.customers[userID], nil
}

func (d *Directory) SaveGatewayCustomerID(_ context.Context, userID, customerID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.customers[userID] = customerID
	return nil
}

func (d *Directory) DestinationExists(_ context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.destinations[id]
	return ok, nil
}
