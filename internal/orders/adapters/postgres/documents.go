package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navi/orderflow/internal/orders/ports"
)

// DocumentStore keeps rendered invoices as bytea rows.
type DocumentStore struct {
	pool *pgxpool.Pool
}

func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// Put overwrites any earlier upload under name so a retried render is harmless.
func (s *DocumentStore) Put(ctx context.Context, name, contentType string, body []byte) (string, error) {
	query := `
		INSERT INTO invoice_documents (ref, content_type, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (ref) DO UPDATE
		SET content_type = EXCLUDED.content_type, body = EXCLUDED.body, updated_at = NOW()
	`
	if _, err := s.pool.Exec(ctx, query, name, contentType, body); err != nil {
		return "", persistenceErr("store invoice document", err)
	}
	return name, nil
}

func (s *DocumentStore) Get(ctx context.Context, ref string) ([]byte, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM invoice_documents WHERE ref = $1`, ref).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: document %s", ports.ErrNotFound, ref)
		}
		return nil, persistenceErr("select invoice document", err)
	}
	return body, nil
}
