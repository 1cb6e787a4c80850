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

// Directory resolves API tokens, keeps processor customer ids on users and
// answers destination lookups.
type Directory struct {
	pool *pgxpool.Pool
}

func NewDirectory(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

func (d *Directory) ResolveCaller(ctx context.Context, credential string) (ports.Caller, error) {
	if credential == "" {
		return ports.Caller{}, ports.ErrUnauthenticated
	}

	query := `
		SELECT u.id::text, u.email, u.is_operator
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token = $1
	`

	var caller ports.Caller
	err := d.pool.QueryRow(ctx, query, credential).Scan(&caller.ID, &caller.Email, &caller.IsOperator)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ports.Caller{}, ports.ErrUnauthenticated
		}
		return ports.Caller{}, persistenceErr("resolve api token", err)
	}
	return caller, nil
}

func (d *Directory) GatewayCustomerID(ctx context.Context, userID string) (string, error) {
	var customerID string
	err := d.pool.QueryRow(ctx,
		`SELECT COALESCE(gateway_customer_id, '') FROM users WHERE id = $1`,
		userID,
	).Scan(&customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: user %s", ports.ErrNotFound, userID)
		}
		return "", persistenceErr("select gateway customer id", err)
	}
	return customerID, nil
}

// SaveGatewayCustomerID writes outside any order transaction: the processor
// customer exists whether or not the order that created it commits.
func (d *Directory) SaveGatewayCustomerID(ctx context.Context, userID, customerID string) error {
	result, err := d.pool.Exec(ctx,
		`UPDATE users SET gateway_customer_id = $2, updated_at = NOW() WHERE id = $1`,
		userID, customerID,
	)
	if err != nil {
		return persistenceErr("update gateway customer id", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", ports.ErrNotFound, userID)
	}
	return nil
}

func (d *Directory) DestinationExists(ctx context.Context, id string) (bool, error) {
	if uuid.Validate(id) != nil {
		return false, nil
	}
	var exists bool
	err := d.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM destinations WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, persistenceErr("select destination", err)
	}
	return exists, nil
}
