package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navi/orderflow/internal/database"
	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
)

const (
	uniqueViolation       = "23505"
	referenceNumberKey    = "invoices_reference_number_key"
	maxReferenceConflicts = 10
)

// InvoiceRepository assigns reference numbers as MAX+1 in a single statement.
// Two workers racing for the same number collide on the unique constraint and
// the loser retries with a fresh MAX.
type InvoiceRepository struct {
	pool    *pgxpool.Pool
	metrics *database.Metrics
	now     func() time.Time
}

// NewInvoiceRepository accepts nil metrics.
func NewInvoiceRepository(pool *pgxpool.Pool, metrics *database.Metrics) *InvoiceRepository {
	return &InvoiceRepository{
		pool:    pool,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *InvoiceRepository) ObtainForOrder(ctx context.Context, orderID string) (domain.Invoice, bool, error) {
	var (
		invoice domain.Invoice
		created bool
	)

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(5*time.Millisecond), maxReferenceConflicts),
		ctx,
	)

	err := backoff.Retry(func() error {
		var err error
		invoice, created, err = r.insertOrFetch(ctx, orderID)
		if err == nil {
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == referenceNumberKey {
			if r.metrics != nil {
				r.metrics.RecordUniqueConflict(ctx, pgErr.ConstraintName)
			}
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	if err != nil {
		return domain.Invoice{}, false, persistenceErr("obtain invoice", err)
	}

	return invoice, created, nil
}

func (r *InvoiceRepository) insertOrFetch(ctx context.Context, orderID string) (domain.Invoice, bool, error) {
	now := r.now()

	query := `
		INSERT INTO invoices (id, order_id, reference_number, created_at, updated_at)
		SELECT $1, $2, COALESCE(MAX(reference_number), 0) + 1, $3, $3
		FROM invoices
		ON CONFLICT (order_id) DO NOTHING
		RETURNING id::text, order_id::text, reference_number, document_ref, created_at, updated_at
	`

	invoice, err := scanInvoice(r.pool.QueryRow(ctx, query, uuid.NewString(), orderID, now))
	if err == nil {
		return invoice, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Invoice{}, false, err
	}

	// Another worker already created it.
	existing, err := r.GetByOrderID(ctx, orderID)
	if err != nil {
		return domain.Invoice{}, false, err
	}
	return *existing, false, nil
}

func (r *InvoiceRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Invoice, error) {
	if uuid.Validate(orderID) != nil {
		return nil, ports.ErrNotFound
	}

	invoice, err := scanInvoice(r.pool.QueryRow(ctx, `
		SELECT id::text, order_id::text, reference_number, document_ref, created_at, updated_at
		FROM invoices
		WHERE order_id = $1
	`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, persistenceErr("select invoice", err)
	}
	return &invoice, nil
}

func (r *InvoiceRepository) AttachDocument(ctx context.Context, invoiceID, documentRef string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE invoices SET document_ref = $2, updated_at = $3 WHERE id = $1`,
		invoiceID, documentRef, r.now(),
	)
	if err != nil {
		return persistenceErr("attach invoice document", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %s", ports.ErrNotFound, invoiceID)
	}
	return nil
}

func scanInvoice(row pgx.Row) (domain.Invoice, error) {
	var (
		invoice domain.Invoice
		ref     *string
	)
	err := row.Scan(
		&invoice.ID,
		&invoice.OrderID,
		&invoice.ReferenceNumber,
		&ref,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
	)
	invoice.DocumentRef = deref(ref)
	return invoice, err
}
