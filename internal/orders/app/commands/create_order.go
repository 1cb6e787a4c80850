package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
)

type CreateOrderCustomization struct {
	CatalogCustomizationID string
	Quantity               int
}

type CreateOrderItem struct {
	CatalogItemID  string
	Quantity       int
	Customizations []CreateOrderCustomization
}

type CreateOrderCommand struct {
	Caller        ports.Caller
	CartToken     string
	DestinationID *string
	Items         []CreateOrderItem
}

func (c CreateOrderCommand) Validate() error {
	if strings.TrimSpace(c.Caller.ID) == "" {
		return domain.NewValidationError("user", "is required")
	}
	if len(c.Items) == 0 {
		return domain.NewValidationError("items", "at least one item is required")
	}
	for i, item := range c.Items {
		if strings.TrimSpace(item.CatalogItemID) == "" {
			return domain.NewValidationError(fmt.Sprintf("items[%d].catalog_item_id", i), "is required")
		}
		if err := domain.ValidateQuantity(item.Quantity); err != nil {
			return domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be between 1 and 100")
		}
		for j, c := range item.Customizations {
			if strings.TrimSpace(c.CatalogCustomizationID) == "" {
				return domain.NewValidationError(fmt.Sprintf("items[%d].customizations[%d].catalog_customization_id", i, j), "is required")
			}
			if err := domain.ValidateQuantity(c.Quantity); err != nil {
				return domain.NewValidationError(fmt.Sprintf("items[%d].customizations[%d].quantity", i, j), "must be between 1 and 100")
			}
		}
	}
	return nil
}

// CreateOrderResult carries the persisted order and the one-time client secret
// the caller needs to confirm the authorization.
type CreateOrderResult struct {
	Order        *domain.Order
	ClientSecret string
}

type CreateOrderHandler interface {
	Handle(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResult, error)
}

// CreateOrderCommandHandler builds the order aggregate and authorizes its
// payment as one unit of work.
type CreateOrderCommandHandler struct {
	repo         ports.OrderRepository
	catalog      ports.CatalogReader
	destinations ports.DestinationDirectory
	gateway      ports.PaymentGateway
	currency     string
	now          func() time.Time
}

func NewCreateOrderCommandHandler(
	repo ports.OrderRepository,
	catalog ports.CatalogReader,
	destinations ports.DestinationDirectory,
	gateway ports.PaymentGateway,
	currency string,
) *CreateOrderCommandHandler {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &CreateOrderCommandHandler{
		repo:         repo,
		catalog:      catalog,
		destinations: destinations,
		gateway:      gateway,
		currency:     currency,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (h *CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if err := h.checkDestination(ctx, cmd.DestinationID); err != nil {
		return nil, err
	}

	var result *CreateOrderResult
	err := h.repo.WithinTx(ctx, func(ctx context.Context, repo ports.OrderRepository) error {
		order, err := h.saveOrder(ctx, repo, cmd)
		if err != nil {
			return err
		}

		if err := h.saveOrderItems(ctx, repo, order, cmd); err != nil {
			return err
		}

		secret, err := h.authorizePayment(ctx, repo, order, cmd.Caller)
		if err != nil {
			return err
		}

		result = &CreateOrderResult{Order: order, ClientSecret: secret}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (h *CreateOrderCommandHandler) checkDestination(ctx context.Context, id *string) error {
	if id == nil {
		return nil
	}
	if strings.TrimSpace(*id) == "" {
		return domain.NewValidationError("destination_id", "must not be blank")
	}
	exists, err := h.destinations.DestinationExists(ctx, *id)
	if err != nil {
		return fmt.Errorf("look up destination: %w", err)
	}
	if !exists {
		return domain.NewValidationError("destination_id", "does not exist")
	}
	return nil
}

func (h *CreateOrderCommandHandler) saveOrder(ctx context.Context, repo ports.OrderRepository, cmd CreateOrderCommand) (*domain.Order, error) {
	order := &domain.Order{
		ID:            uuid.NewString(),
		UserID:        cmd.Caller.ID,
		DestinationID: cmd.DestinationID,
		Status:        domain.StatusOrdered,
		CartToken:     cmd.CartToken,
		Items:         []domain.OrderItem{},
		Audit:         domain.NewAudit(cmd.Caller.ID, h.now()),
	}

	if err := repo.CreateOrder(ctx, *order); err != nil {
		return nil, err
	}
	return order, nil
}

// saveOrderItems snapshots current catalog prices into each line. Items are
// written in request order, strictly before authorization.
func (h *CreateOrderCommandHandler) saveOrderItems(ctx context.Context, repo ports.OrderRepository, order *domain.Order, cmd CreateOrderCommand) error {
	for i, requested := range cmd.Items {
		entry, err := h.lookup(ctx, h.catalog.GetCatalogItem, requested.CatalogItemID, fmt.Sprintf("items[%d].catalog_item_id", i))
		if err != nil {
			return err
		}

		item := domain.OrderItem{
			ID:             uuid.NewString(),
			OrderID:        order.ID,
			CatalogItemID:  entry.ID,
			Quantity:       requested.Quantity,
			UnitPriceCents: entry.PriceCents,
			Audit:          domain.NewAudit(cmd.Caller.ID, h.now()),
		}

		for j, requestedCustomization := range requested.Customizations {
			field := fmt.Sprintf("items[%d].customizations[%d].catalog_customization_id", i, j)
			entry, err := h.lookup(ctx, h.catalog.GetCatalogCustomization, requestedCustomization.CatalogCustomizationID, field)
			if err != nil {
				return err
			}
			item.Customizations = append(item.Customizations, domain.OrderCustomization{
				ID:                     uuid.NewString(),
				OrderItemID:            item.ID,
				CatalogCustomizationID: entry.ID,
				Quantity:               requestedCustomization.Quantity,
				UnitPriceCents:         entry.PriceCents,
				Audit:                  domain.NewAudit(cmd.Caller.ID, h.now()),
			})
		}

		if err := order.AddItem(item); err != nil {
			return err
		}

		if err := repo.AddItem(ctx, item); err != nil {
			return err
		}
		for _, customization := range item.Customizations {
			if err := repo.AddCustomization(ctx, customization); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *CreateOrderCommandHandler) lookup(
	ctx context.Context,
	get func(context.Context, string) (ports.CatalogEntry, error),
	id, field string,
) (ports.CatalogEntry, error) {
	entry, err := get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrCatalogEntryNotFound) {
			return ports.CatalogEntry{}, domain.NewValidationError(field, fmt.Sprintf("%q does not exist", id))
		}
		return ports.CatalogEntry{}, fmt.Errorf("look up catalog entry %s: %w", id, err)
	}
	if !entry.Active {
		return ports.CatalogEntry{}, domain.NewValidationError(field, fmt.Sprintf("%q is not available", id))
	}
	if err := domain.ValidateUnitPrice(field, entry.PriceCents); err != nil {
		return ports.CatalogEntry{}, err
	}
	return entry, nil
}

func (h *CreateOrderCommandHandler) authorizePayment(ctx context.Context, repo ports.OrderRepository, order *domain.Order, caller ports.Caller) (string, error) {
	secret, payment, err := h.gateway.Authorize(ctx, ports.AuthorizeRequest{
		OrderID:     order.ID,
		AmountCents: order.PriceCents(),
		Currency:    h.currency,
		Customer:    caller,
	})
	if err != nil {
		return "", err
	}

	payment.Audit = domain.NewAudit(caller.ID, h.now())
	if err := repo.CreatePayment(ctx, payment); err != nil {
		return "", err
	}
	if err := repo.AttachPayment(ctx, order.ID, payment.ID); err != nil {
		return "", err
	}

	order.PaymentID = &payment.ID
	order.Payment = &payment
	return secret, nil
}
