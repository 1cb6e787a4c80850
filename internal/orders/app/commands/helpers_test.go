package commands_test

import (
	"context"
	"sync"
	"testing"

	"github.com/navi/orderflow/internal/orders/adapters/memory"
	"github.com/navi/orderflow/internal/orders/app/commands"
	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
	"github.com/navi/orderflow/internal/payments"
	"github.com/navi/orderflow/internal/payments/fake"
)

var (
	ada = ports.Caller{ID: "user-1", Email: "ada@example.com"}
	bob = ports.Caller{ID: "user-2", Email: "bob@example.com"}
	ops = ports.Caller{ID: "ops-1", Email: "ops@example.com", IsOperator: true}
)

const (
	burger  = "burger"
	cheese  = "cheese"
	retired = "retired"
	dock    = "dock-1"
)

type mockQueue struct {
	mu        sync.Mutex
	enqueueFn func(ctx context.Context, orderID string) error
	enqueued  []string
}

func (m *mockQueue) EnqueueInvoice(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueFn != nil {
		if err := m.enqueueFn(ctx, orderID); err != nil {
			return err
		}
	}
	m.enqueued = append(m.enqueued, orderID)
	return nil
}

// spyRepository remembers every order id written, including ones later
// rolled back.
type spyRepository struct {
	ports.OrderRepository
	created *[]string
}

func (s *spyRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo ports.OrderRepository) error) error {
	return s.OrderRepository.WithinTx(ctx, func(ctx context.Context, tx ports.OrderRepository) error {
		return fn(ctx, &spyRepository{OrderRepository: tx, created: s.created})
	})
}

func (s *spyRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	*s.created = append(*s.created, order.ID)
	return s.OrderRepository.CreateOrder(ctx, order)
}

type fixture struct {
	repo      *memory.Repository
	catalog   *memory.Catalog
	directory *memory.Directory
	processor *fake.Processor
	gateway   *payments.Gateway
	queue     *mockQueue
}

func newFixture() *fixture {
	catalog := memory.NewCatalog()
	catalog.PutItem(ports.CatalogEntry{ID: burger, Name: "Burger", PriceCents: 500, Active: true})
	catalog.PutItem(ports.CatalogEntry{ID: retired, Name: "Retired", PriceCents: 100, Active: false})
	catalog.PutCustomization(ports.CatalogEntry{ID: cheese, Name: "Extra cheese", PriceCents: 100, Active: true})

	directory := memory.NewDirectory()
	directory.AddDestination(dock)

	processor := fake.NewProcessor()

	return &fixture{
		repo:      memory.NewRepository(),
		catalog:   catalog,
		directory: directory,
		processor: processor,
		gateway:   payments.NewGateway(processor, directory),
		queue:     &mockQueue{},
	}
}

func (f *fixture) createHandler() *commands.CreateOrderCommandHandler {
	return commands.NewCreateOrderCommandHandler(f.repo, f.catalog, f.directory, f.gateway, "usd")
}

func (f *fixture) cancelHandler() *commands.CancelOrderCommandHandler {
	return commands.NewCancelOrderCommandHandler(f.repo, f.gateway)
}

func (f *fixture) dispatchHandler() *commands.DispatchOrderCommandHandler {
	return commands.NewDispatchOrderCommandHandler(f.repo, f.directory, f.gateway, f.queue)
}

func (f *fixture) completeHandler() *commands.CompleteOrderCommandHandler {
	return commands.NewCompleteOrderCommandHandler(f.repo)
}

// burgerWithCheese is 2 x 5.00 plus 4 x 1.00 of cheese: 14.00.
func burgerWithCheese() []commands.CreateOrderItem {
	return []commands.CreateOrderItem{{
		CatalogItemID: burger,
		Quantity:      2,
		Customizations: []commands.CreateOrderCustomization{
			{CatalogCustomizationID: cheese, Quantity: 4},
		},
	}}
}

func (f *fixture) placeOrder(t *testing.T, caller ports.Caller) *domain.Order {
	t.Helper()
	result, err := f.createHandler().Handle(context.Background(), commands.CreateOrderCommand{
		Caller: caller,
		Items:  burgerWithCheese(),
	})
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}
	return result.Order
}

func (f *fixture) dispatch(t *testing.T, orderID string) *domain.Order {
	t.Helper()
	result, err := f.dispatchHandler().Handle(context.Background(), commands.DispatchOrderCommand{
		OrderID:       orderID,
		DestinationID: dock,
		Caller:        ops,
	})
	if err != nil {
		t.Fatalf("failed to dispatch order: %v", err)
	}
	return result.Order
}

func (f *fixture) stored(t *testing.T, orderID string) *domain.Order {
	t.Helper()
	order, err := f.repo.GetByID(context.Background(), orderID)
	if err != nil {
		t.Fatalf("failed to load order %s: %v", orderID, err)
	}
	return order
}
