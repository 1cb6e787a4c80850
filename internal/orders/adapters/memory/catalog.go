package memory

import (
	"context"
	"sync"

	"github.com/navi/orderflow/internal/orders/ports"
)

// Catalog is a seeded, in-memory menu.
type Catalog struct {
	mu             sync.RWMutex
	items          map[string]ports.CatalogEntry
	customizations map[string]ports.CatalogEntry
}

func NewCatalog() *Catalog {
	return &Catalog{
		items:          make(map[string]ports.CatalogEntry),
		customizations: make(map[string]ports.CatalogEntry),
	}
}

func (c *Catalog) PutItem(entry ports.CatalogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[entry.ID] = entry
}

func (c *Catalog) PutCustomization(entry ports.CatalogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.customizations[entry.ID] = entry
}

func (c *Catalog) GetCatalogItem(_ context.Context, id string) (ports.CatalogEntry, error) {
	return c.get(c.items, id)
}

func (c *Catalog) GetCatalogCustomization(_ context.Context, id string) (ports.CatalogEntry, error) {
	return c.get(c.customizations, id)
}

func (c *Catalog) get(entries map[string]ports.CatalogEntry, id string) (ports.CatalogEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := entries[id]
	if !ok {
		return ports.CatalogEntry{}, ports.ErrCatalogEntryNotFound
	}
	return entry, nil
}
