package queries_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/navi/orderflow/internal/orders/adapters/memory"
	"github.com/navi/orderflow/internal/orders/app/queries"
	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
)

var (
	owner    = ports.Caller{ID: "user-1"}
	stranger = ports.Caller{ID: "user-2"}
	operator = ports.Caller{ID: "ops-1", IsOperator: true}
)

func seedOrder(t *testing.T, repo *memory.Repository) domain.Order {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	order := domain.Order{
		ID:     "order-1",
		UserID: owner.ID,
		Status: domain.StatusOrdered,
		Audit:  domain.NewAudit(owner.ID, now),
	}
	item := domain.OrderItem{
		ID:             "item-1",
		OrderID:        order.ID,
		CatalogItemID:  "burger",
		Quantity:       2,
		UnitPriceCents: 500,
		Audit:          domain.NewAudit(owner.ID, now),
	}
	customization := domain.OrderCustomization{
		ID:                     "cust-1",
		OrderItemID:            item.ID,
		CatalogCustomizationID: "cheese",
		Quantity:               4,
		UnitPriceCents:         100,
		Audit:                  domain.NewAudit(owner.ID, now),
	}

	if err := repo.CreateOrder(ctx, order); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	if err := repo.AddItem(ctx, item); err != nil {
		t.Fatalf("failed to add item: %v", err)
	}
	if err := repo.AddCustomization(ctx, customization); err != nil {
		t.Fatalf("failed to add customization: %v", err)
	}
	return order
}

func TestGetOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("owner sees the full order", func(t *testing.T) {
		repo := memory.NewRepository()
		order := seedOrder(t, repo)
		handler := queries.NewGetOrderQueryHandler(repo)

		result, err := handler.Handle(ctx, queries.GetOrderQuery{OrderID: order.ID, Caller: owner})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Items) != 1 || len(result.Items[0].Customizations) != 1 {
			t.Fatalf("expected one item with one customization, got %+v", result.Items)
		}
		if got := result.PriceCents(); got != 1400 {
			t.Errorf("expected price 1400, got %d", got)
		}
	})

	t.Run("operators see any order", func(t *testing.T) {
		repo := memory.NewRepository()
		order := seedOrder(t, repo)
		handler := queries.NewGetOrderQueryHandler(repo)

		if _, err := handler.Handle(ctx, queries.GetOrderQuery{OrderID: order.ID, Caller: operator}); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("other users get not found", func(t *testing.T) {
		repo := memory.NewRepository()
		order := seedOrder(t, repo)
		handler := queries.NewGetOrderQueryHandler(repo)

		result, err := handler.Handle(ctx, queries.GetOrderQuery{OrderID: order.ID, Caller: stranger})
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if result != nil {
			t.Errorf("expected nil result, got %+v", result)
		}
	})

	t.Run("returns not found for nonexistent order", func(t *testing.T) {
		handler := queries.NewGetOrderQueryHandler(memory.NewRepository())

		_, err := handler.Handle(ctx, queries.GetOrderQuery{OrderID: "nonexistent-order", Caller: operator})
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestGetOrderQueryValidation(t *testing.T) {
	tests := []struct {
		name    string
		query   queries.GetOrderQuery
		wantErr bool
	}{
		{name: "valid order ID", query: queries.GetOrderQuery{OrderID: "order-123"}},
		{name: "valid UUID order ID", query: queries.GetOrderQuery{OrderID: "550e8400-e29b-41d4-a716-446655440000"}},
		{name: "empty order ID", query: queries.GetOrderQuery{OrderID: ""}, wantErr: true},
		{name: "whitespace order ID", query: queries.GetOrderQuery{OrderID: "  \t  "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if !tt.wantErr {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if err.Error() != "order_id: is required" {
				t.Errorf("unexpected message %q", err.Error())
			}
		})
	}
}
