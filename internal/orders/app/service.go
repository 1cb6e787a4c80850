package app

import (
	"context"
	"log/slog"

	"github.com/navi/orderflow/internal/orders/app/commands"
	"github.com/navi/orderflow/internal/orders/app/queries"
	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/metrics"
	"github.com/navi/orderflow/internal/orders/ports"
)

// Dependencies groups the collaborators the order use cases need.
type Dependencies struct {
	Repo         ports.OrderRepository
	Catalog      ports.CatalogReader
	Destinations ports.DestinationDirectory
	Gateway      ports.PaymentGateway
	Invoices     ports.InvoiceQueue
	Idempotency  ports.IdempotencyStore
	Currency     string
}

// Service bundles use cases for handling orders via the API.
type Service struct {
	idemStore       ports.IdempotencyStore
	createOrder     commands.CreateOrderHandler
	cancelOrder     commands.CancelOrderHandler
	dispatchOrder   commands.DispatchOrderHandler
	completeOrder   commands.CompleteOrderHandler
	getOrderHandler *queries.GetOrderQueryHandler
}

// NewService wires the command handlers behind their observable decorators.
func NewService(deps Dependencies, logger *slog.Logger, metrics *metrics.Metrics) *Service {
	currency := deps.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	create := commands.NewCreateOrderCommandHandler(deps.Repo, deps.Catalog, deps.Destinations, deps.Gateway, currency)
	cancel := commands.NewCancelOrderCommandHandler(deps.Repo, deps.Gateway)
	dispatch := commands.NewDispatchOrderCommandHandler(deps.Repo, deps.Destinations, deps.Gateway, deps.Invoices)
	complete := commands.NewCompleteOrderCommandHandler(deps.Repo)

	return &Service{
		idemStore:       deps.Idempotency,
		createOrder:     commands.NewObservableCreateOrderHandler(create, logger, metrics),
		cancelOrder:     commands.NewObservableCancelOrderHandler(cancel, logger, metrics),
		dispatchOrder:   commands.NewObservableDispatchOrderHandler(dispatch, logger, metrics),
		completeOrder:   commands.NewObservableCompleteOrderHandler(complete, logger, metrics),
		getOrderHandler: queries.NewGetOrderQueryHandler(deps.Repo),
	}
}

// CreateOrder places an order and authorizes its payment.
func (s *Service) CreateOrder(ctx context.Context, cmd commands.CreateOrderCommand) (*commands.CreateOrderResult, error) {
	return s.createOrder.Handle(ctx, cmd)
}

// GetOrder retrieves an order visible to caller.
func (s *Service) GetOrder(ctx context.Context, caller ports.Caller, id string) (*domain.Order, error) {
	return s.getOrderHandler.Handle(ctx, queries.GetOrderQuery{OrderID: id, Caller: caller})
}

func (s *Service) CancelOrder(ctx context.Context, caller ports.Caller, id string) (*commands.TransitionResult, error) {
	return s.cancelOrder.Handle(ctx, commands.CancelOrderCommand{OrderID: id, Caller: caller})
}

func (s *Service) DispatchOrder(ctx context.Context, caller ports.Caller, id, destinationID string) (*commands.TransitionResult, error) {
	return s.dispatchOrder.Handle(ctx, commands.DispatchOrderCommand{
		OrderID:       id,
		DestinationID: destinationID,
		Caller:        caller,
	})
}

func (s *Service) CompleteOrder(ctx context.Context, caller ports.Caller, id string) (*commands.TransitionResult, error) {
	return s.completeOrder.Handle(ctx, commands.CompleteOrderCommand{OrderID: id, Caller: caller})
}

// ReserveIdempotencyKey claims a caller's key for one create request, or
// returns the response already stored under it.
func (s *Service) ReserveIdempotencyKey(ctx context.Context, userID, key string) (*ports.StoredResponse, error) {
	return s.idemStore.Reserve(ctx, userID, key)
}

// SaveIdempotentResponse writes response details for a caller's key.
func (s *Service) SaveIdempotentResponse(ctx context.Context, userID, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, userID, key, response)
}

// ReleaseIdempotencyKey frees a reservation whose request did not create an
// order, so the client may retry with the same key.
func (s *Service) ReleaseIdempotencyKey(ctx context.Context, userID, key string) error {
	return s.idemStore.Release(ctx, userID, key)
}
