package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navi/orderflow/internal/orders/ports"
)

// Catalog reads menu prices. Prices are stored as NUMERIC(7,2) and converted
// to cents in SQL so no float ever touches money.
type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

func (c *Catalog) GetCatalogItem(ctx context.Context, id string) (ports.CatalogEntry, error) {
	return c.get(ctx, "menu_items", id)
}

func (c *Catalog) GetCatalogCustomization(ctx context.Context, id string) (ports.CatalogEntry, error) {
	return c.get(ctx, "customizations", id)
}

func (c *Catalog) get(ctx context.Context, table, id string) (ports.CatalogEntry, error) {
	if uuid.Validate(id) != nil {
		return ports.CatalogEntry{}, ports.ErrCatalogEntryNotFound
	}

	query := fmt.Sprintf(`
		SELECT id::text, name, (price * 100)::bigint, active
		FROM %s
		WHERE id = $1
	`, table)

	var entry ports.CatalogEntry
	err := c.pool.QueryRow(ctx, query, id).Scan(&entry.ID, &entry.Name, &entry.PriceCents, &entry.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ports.CatalogEntry{}, ports.ErrCatalogEntryNotFound
		}
		return ports.CatalogEntry{}, persistenceErr("select "+table, err)
	}
	return entry, nil
}
