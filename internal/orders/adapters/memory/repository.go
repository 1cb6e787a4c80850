package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
)

type tables struct {
	orders         map[string]domain.Order
	items          map[string][]domain.OrderItem
	customizations map[string][]domain.OrderCustomization
	payments       map[string]domain.Payment
}

func newTables() *tables {
	return &tables{
		orders:         make(map[string]domain.Order),
		items:          make(map[string][]domain.OrderItem),
		customizations: make(map[string][]domain.OrderCustomization),
		payments:       make(map[string]domain.Payment),
	}
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.orders {
		c.orders[k] = v
	}
	for k, v := range t.items {
		c.items[k] = slices.Clone(v)
	}
	for k, v := range t.customizations {
		c.customizations[k] = slices.Clone(v)
	}
	for k, v := range t.payments {
		c.payments[k] = v
	}
	return c
}

// Repository provides an in-memory store useful for local development and tests.
// Transactions run one at a time against a private copy of the tables, which
// replaces the shared copy only when the callback succeeds.
type Repository struct {
	txMu   *sync.Mutex
	mu     sync.RWMutex
	data   *tables
	parent *Repository
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{txMu: &sync.Mutex{}, data: newTables()}
}

func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo ports.OrderRepository) error) error {
	if r.parent != nil {
		return fn(ctx, r)
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	snapshot := r.data.clone()
	r.mu.RUnlock()

	tx := &Repository{txMu: r.txMu, data: snapshot, parent: r}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	r.mu.Lock()
	r.data = snapshot
	r.mu.Unlock()
	return nil
}

func (r *Repository) write(fn func(t *tables) error) error {
	if r.parent == nil {
		r.txMu.Lock()
		defer r.txMu.Unlock()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.data)
}

func (r *Repository) CreateOrder(_ context.Context, order domain.Order) error {
	return r.write(func(t *tables) error {
		if _, exists := t.orders[order.ID]; exists {
			return fmt.Errorf("%w: order %s already exists", domain.ErrPersistence, order.ID)
		}
		order.Items = nil
		order.Payment = nil
		t.orders[order.ID] = order
		return nil
	})
}

func (r *Repository) AddItem(_ context.Context, item domain.OrderItem) error {
	return r.write(func(t *tables) error {
		if _, ok := t.orders[item.OrderID]; !ok {
			return fmt.Errorf("%w: item references unknown order %s", domain.ErrPersistence, item.OrderID)
		}
		item.Customizations = nil
		t.items[item.OrderID] = append(t.items[item.OrderID], item)
		return nil
	})
}

func (r *Repository) AddCustomization(_ context.Context, customization domain.OrderCustomization) error {
	return r.write(func(t *tables) error {
		if !t.hasItem(customization.OrderItemID) {
			return fmt.Errorf("%w: customization references unknown item %s", domain.ErrPersistence, customization.OrderItemID)
		}
		t.customizations[customization.OrderItemID] = append(t.customizations[customization.OrderItemID], customization)
		return nil
	})
}

func (t *tables) hasItem(itemID string) bool {
	for _, items := range t.items {
		for _, item := range items {
			if item.ID == itemID {
				return true
			}
		}
	}
	return false
}

func (r *Repository) CreatePayment(_ context.Context, payment domain.Payment) error {
	return r.write(func(t *tables) error {
		if _, exists := t.payments[payment.ID]; exists {
			return fmt.Errorf("%w: payment %s already exists", domain.ErrPersistence, payment.ID)
		}
		t.payments[payment.ID] = payment
		return nil
	})
}

func (r *Repository) UpdatePayment(_ context.Context, payment domain.Payment) error {
	return r.write(func(t *tables) error {
		existing, ok := t.payments[payment.ID]
		if !ok {
			return fmt.Errorf("%w: payment %s", ports.ErrNotFound, payment.ID)
		}
		payment.CreatedAt = existing.CreatedAt
		payment.CreatedBy = existing.CreatedBy
		t.payments[payment.ID] = payment
		return nil
	})
}

func (r *Repository) AttachPayment(_ context.Context, orderID, paymentID string) error {
	return r.write(func(t *tables) error {
		order, ok := t.orders[orderID]
		if !ok {
			return ports.ErrNotFound
		}
		if _, ok := t.payments[paymentID]; !ok {
			return fmt.Errorf("%w: unknown payment %s", domain.ErrPersistence, paymentID)
		}
		id := paymentID
		order.PaymentID = &id
		t.orders[orderID] = order
		return nil
	})
}

// GetByID fetches a single order with its items, customizations and payment.
func (r *Repository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data.assemble(id)
}

// GetForUpdate is GetByID; transactions are already serialized.
func (r *Repository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *Repository) UpdateFulfillment(_ context.Context, order domain.Order, expected domain.OrderStatus) error {
	return r.write(func(t *tables) error {
		stored, ok := t.orders[order.ID]
		if !ok {
			return ports.ErrNotFound
		}
		if stored.Status != expected {
			return ports.ErrStaleStatus
		}
		stored.Status = order.Status
		stored.DestinationID = order.DestinationID
		stored.UpdatedAt = order.UpdatedAt
		stored.UpdatedBy = order.UpdatedBy
		t.orders[order.ID] = stored
		return nil
	})
}

func (t *tables) assemble(id string) (*domain.Order, error) {
	order, ok := t.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}

	order.Items = make([]domain.OrderItem, 0, len(t.items[id]))
	for _, item := range t.items[id] {
		item.Customizations = slices.Clone(t.customizations[item.ID])
		order.Items = append(order.Items, item)
	}

	if order.PaymentID != nil {
		if payment, ok := t.payments[*order.PaymentID]; ok {
			order.Payment = &payment
		}
	}
	return &order, nil
}
