package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navi/orderflow/internal/orders/ports"
)

const defaultReservationTTL = 2 * time.Minute

type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, ttl: defaultReservationTTL}
}

// Reserve inserts a pending row for the key, or takes over one whose holder
// let it expire. When neither happens the existing row decides the outcome.
func (s *Store) Reserve(ctx context.Context, userID, key string) (*ports.StoredResponse, error) {
	query := `
		INSERT INTO idempotency_keys (user_id, key)
		VALUES ($1, $2)
		ON CONFLICT (user_id, key) DO UPDATE SET reserved_at = NOW()
		WHERE idempotency_keys.status_code IS NULL
		  AND idempotency_keys.reserved_at < NOW() - make_interval(secs => $3)
		RETURNING key
	`

	var reserved string
	err := s.pool.QueryRow(ctx, query, userID, key, s.ttl.Seconds()).Scan(&reserved)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}

	stored, err := s.Get(ctx, userID, key)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ports.ErrIdempotencyKeyInUse
	}
	return stored, nil
}

func (s *Store) Get(ctx context.Context, userID, key string) (*ports.StoredResponse, error) {
	query := `
		SELECT status_code, body, order_id
		FROM idempotency_keys
		WHERE user_id = $1 AND key = $2 AND status_code IS NOT NULL
	`

	var resp ports.StoredResponse
	err := s.pool.QueryRow(ctx, query, userID, key).Scan(
		&resp.StatusCode,
		&resp.Body,
		&resp.OrderID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select idempotency key: %w", err)
	}

	return &resp, nil
}

// Save completes a reservation. The first saved response wins.
func (s *Store) Save(ctx context.Context, userID, key string, response ports.StoredResponse) error {
	query := `
		INSERT INTO idempotency_keys (user_id, key, status_code, body, order_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, key) DO UPDATE
		SET status_code = EXCLUDED.status_code, body = EXCLUDED.body, order_id = EXCLUDED.order_id
		WHERE idempotency_keys.status_code IS NULL
	`

	_, err := s.pool.Exec(ctx, query, userID, key, response.StatusCode, response.Body, response.OrderID)
	if err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}

	return nil
}

func (s *Store) Release(ctx context.Context, userID, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM idempotency_keys WHERE user_id = $1 AND key = $2 AND status_code IS NULL`,
		userID, key,
	)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
