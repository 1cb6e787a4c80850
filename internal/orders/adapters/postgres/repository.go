package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
)

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, q: pool}
}

func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo ports.OrderRepository) error) error {
	if r.inTx {
		return fn(ctx, r)
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &Repository{pool: r.pool, q: tx, inTx: true})
	})
}

func (r *Repository) CreateOrder(ctx context.Context, order domain.Order) error {
	query := `
		INSERT INTO orders (id, user_id, destination_id, status, cart_token, payment_id,
		                    created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.Exec(ctx, query,
		order.ID,
		order.UserID,
		order.DestinationID,
		order.Status,
		order.CartToken,
		order.PaymentID,
		order.CreatedAt,
		order.UpdatedAt,
		nullIfEmpty(order.CreatedBy),
		nullIfEmpty(order.UpdatedBy),
	)
	if err != nil {
		return persistenceErr("insert order", err)
	}
	return nil
}

func (r *Repository) AddItem(ctx context.Context, item domain.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, menu_item_id, quantity, unit_price_cents,
		                         created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.Exec(ctx, query,
		item.ID,
		item.OrderID,
		item.CatalogItemID,
		item.Quantity,
		item.UnitPriceCents,
		item.CreatedAt,
		item.UpdatedAt,
		nullIfEmpty(item.CreatedBy),
		nullIfEmpty(item.UpdatedBy),
	)
	if err != nil {
		return persistenceErr("insert order item", err)
	}
	return nil
}

func (r *Repository) AddCustomization(ctx context.Context, c domain.OrderCustomization) error {
	query := `
		INSERT INTO order_customizations (id, order_item_id, customization_id, quantity, unit_price_cents,
		                                  created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.Exec(ctx, query,
		c.ID,
		c.OrderItemID,
		c.CatalogCustomizationID,
		c.Quantity,
		c.UnitPriceCents,
		c.CreatedAt,
		c.UpdatedAt,
		nullIfEmpty(c.CreatedBy),
		nullIfEmpty(c.UpdatedBy),
	)
	if err != nil {
		return persistenceErr("insert order customization", err)
	}
	return nil
}

func (r *Repository) CreatePayment(ctx context.Context, p domain.Payment) error {
	query := `
		INSERT INTO payments (id, gateway_intent_id, amount_received_cents, currency, status,
		                      created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.Exec(ctx, query,
		p.ID,
		p.GatewayIntentID,
		p.AmountReceivedCents,
		p.Currency,
		p.Status,
		p.CreatedAt,
		p.UpdatedAt,
		nullIfEmpty(p.CreatedBy),
		nullIfEmpty(p.UpdatedBy),
	)
	if err != nil {
		return persistenceErr("insert payment", err)
	}
	return nil
}

func (r *Repository) UpdatePayment(ctx context.Context, p domain.Payment) error {
	query := `
		UPDATE payments
		SET amount_received_cents = $2, status = $3, updated_at = $4, updated_by = $5
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query,
		p.ID,
		p.AmountReceivedCents,
		p.Status,
		p.UpdatedAt,
		nullIfEmpty(p.UpdatedBy),
	)
	if err != nil {
		return persistenceErr("update payment", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment %s", ports.ErrNotFound, p.ID)
	}
	return nil
}

func (r *Repository) AttachPayment(ctx context.Context, orderID, paymentID string) error {
	result, err := r.q.Exec(ctx, `UPDATE orders SET payment_id = $2 WHERE id = $1`, orderID, paymentID)
	if err != nil {
		return persistenceErr("attach payment", err)
	}
	if result.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

const selectOrder = `
	SELECT id::text, user_id::text, destination_id::text, status, cart_token, payment_id::text,
	       created_at, updated_at, created_by, updated_by
	FROM orders
	WHERE id = $1
`

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.load(ctx, selectOrder, id)
}

func (r *Repository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.load(ctx, selectOrder+" FOR UPDATE", id)
}

func (r *Repository) UpdateFulfillment(ctx context.Context, order domain.Order, expected domain.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $2, destination_id = $3, updated_at = $4, updated_by = $5
		WHERE id = $1 AND status = $6
	`

	result, err := r.q.Exec(ctx, query,
		order.ID,
		order.Status,
		order.DestinationID,
		order.UpdatedAt,
		nullIfEmpty(order.UpdatedBy),
		expected,
	)
	if err != nil {
		return persistenceErr("update order fulfillment", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, order.ID); err != nil {
			return err
		}
		return ports.ErrStaleStatus
	}
	return nil
}

func (r *Repository) load(ctx context.Context, query, id string) (*domain.Order, error) {
	if uuid.Validate(id) != nil {
		return nil, ports.ErrNotFound
	}

	var (
		order                domain.Order
		createdBy, updatedBy *string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.DestinationID,
		&order.Status,
		&order.CartToken,
		&order.PaymentID,
		&order.CreatedAt,
		&order.UpdatedAt,
		&createdBy,
		&updatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, persistenceErr("select order", err)
	}
	order.CreatedBy, order.UpdatedBy = deref(createdBy), deref(updatedBy)

	if order.Items, err = r.loadItems(ctx, order.ID); err != nil {
		return nil, err
	}

	if order.PaymentID != nil {
		payment, err := r.loadPayment(ctx, *order.PaymentID)
		if err != nil {
			return nil, err
		}
		order.Payment = payment
	}

	return &order, nil
}

func (r *Repository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id::text, order_id::text, menu_item_id::text, quantity, unit_price_cents,
		       created_at, updated_at, created_by, updated_by
		FROM order_items
		WHERE order_id = $1
		ORDER BY seq
	`, orderID)
	if err != nil {
		return nil, persistenceErr("query order items", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	index := map[string]int{}
	for rows.Next() {
		var (
			item                 domain.OrderItem
			createdBy, updatedBy *string
		)
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.CatalogItemID,
			&item.Quantity,
			&item.UnitPriceCents,
			&item.CreatedAt,
			&item.UpdatedAt,
			&createdBy,
			&updatedBy,
		); err != nil {
			return nil, persistenceErr("scan order item", err)
		}
		item.CreatedBy, item.UpdatedBy = deref(createdBy), deref(updatedBy)
		index[item.ID] = len(items)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate order items", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	crows, err := r.q.Query(ctx, `
		SELECT oc.id::text, oc.order_item_id::text, oc.customization_id::text, oc.quantity, oc.unit_price_cents,
		       oc.created_at, oc.updated_at, oc.created_by, oc.updated_by
		FROM order_customizations oc
		JOIN order_items oi ON oi.id = oc.order_item_id
		WHERE oi.order_id = $1
		ORDER BY oc.seq
	`, orderID)
	if err != nil {
		return nil, persistenceErr("query order customizations", err)
	}
	defer crows.Close()

	for crows.Next() {
		var (
			c                    domain.OrderCustomization
			createdBy, updatedBy *string
		)
		if err := crows.Scan(
			&c.ID,
			&c.OrderItemID,
			&c.CatalogCustomizationID,
			&c.Quantity,
			&c.UnitPriceCents,
			&c.CreatedAt,
			&c.UpdatedAt,
			&createdBy,
			&updatedBy,
		); err != nil {
			return nil, persistenceErr("scan order customization", err)
		}
		c.CreatedBy, c.UpdatedBy = deref(createdBy), deref(updatedBy)
		i := index[c.OrderItemID]
		items[i].Customizations = append(items[i].Customizations, c)
	}
	if err := crows.Err(); err != nil {
		return nil, persistenceErr("iterate order customizations", err)
	}

	return items, nil
}

func (r *Repository) loadPayment(ctx context.Context, id string) (*domain.Payment, error) {
	var (
		p                    domain.Payment
		createdBy, updatedBy *string
	)
	err := r.q.QueryRow(ctx, `
		SELECT id::text, gateway_intent_id, amount_received_cents, currency, status,
		       created_at, updated_at, created_by, updated_by
		FROM payments
		WHERE id = $1
	`, id).Scan(
		&p.ID,
		&p.GatewayIntentID,
		&p.AmountReceivedCents,
		&p.Currency,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
		&createdBy,
		&updatedBy,
	)
	if err != nil {
		return nil, persistenceErr("select payment", err)
	}
	p.CreatedBy, p.UpdatedBy = deref(createdBy), deref(updatedBy)
	return &p, nil
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
