package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/navi/orderflow/internal/orders/app/commands"
	"github.com/navi/orderflow/internal/orders/domain"
)

type createOrderRequest struct {
	DestinationID *string            `json:"destination_id"`
	Items         []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	CatalogItemID  string                 `json:"catalog_item_id"`
	Quantity       int                    `json:"quantity"`
	Customizations []customizationRequest `json:"customizations"`
}

type customizationRequest struct {
	CatalogCustomizationID string `json:"catalog_customization_id"`
	Quantity               int    `json:"quantity"`
}

func (req createOrderRequest) items() []commands.CreateOrderItem {
	items := make([]commands.CreateOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		customizations := make([]commands.CreateOrderCustomization, 0, len(item.Customizations))
		for _, c := range item.Customizations {
			customizations = append(customizations, commands.CreateOrderCustomization{
				CatalogCustomizationID: c.CatalogCustomizationID,
				Quantity:               c.Quantity,
			})
		}
		items = append(items, commands.CreateOrderItem{
			CatalogItemID:  item.CatalogItemID,
			Quantity:       item.Quantity,
			Customizations: customizations,
		})
	}
	return items
}

type dispatchOrderRequest struct {
	DestinationID string `json:"destination_id"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	DestinationID *string             `json:"destination_id"`
	Status        domain.OrderStatus  `json:"status"`
	Price         string              `json:"price"`
	Items         []orderItemResponse `json:"items"`
	Payment       *paymentResponse    `json:"payment,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	CreatedBy     string              `json:"created_by,omitempty"`
	UpdatedBy     string              `json:"updated_by,omitempty"`
}

type orderItemResponse struct {
	ID             string                  `json:"id"`
	CatalogItemID  string                  `json:"catalog_item_id"`
	Quantity       int                     `json:"quantity"`
	UnitPrice      string                  `json:"unit_price"`
	Price          string                  `json:"price"`
	Customizations []customizationResponse `json:"customizations"`
}

type customizationResponse struct {
	ID                     string `json:"id"`
	CatalogCustomizationID string `json:"catalog_customization_id"`
	Quantity               int    `json:"quantity"`
	UnitPrice              string `json:"unit_price"`
	Price                  string `json:"price"`
}

type paymentResponse struct {
	ID              string               `json:"id"`
	GatewayIntentID string               `json:"gateway_intent_id"`
	AmountReceived  string               `json:"amount_received"`
	Currency        string               `json:"currency"`
	Status          domain.PaymentStatus `json:"status"`
}

// money renders cents as a fixed two-place decimal string.
func money(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func newOrderResponse(order *domain.Order) *orderResponse {
	if order == nil {
		return nil
	}

	resp := &orderResponse{
		ID:            order.ID,
		UserID:        order.UserID,
		DestinationID: order.DestinationID,
		Status:        order.Status,
		Price:         money(order.PriceCents()),
		Items:         make([]orderItemResponse, 0, len(order.Items)),
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
		CreatedBy:     order.CreatedBy,
		UpdatedBy:     order.UpdatedBy,
	}

	for _, item := range order.Items {
		ir := orderItemResponse{
			ID:             item.ID,
			CatalogItemID:  item.CatalogItemID,
			Quantity:       item.Quantity,
			UnitPrice:      money(item.UnitPriceCents),
			Price:          money(item.PriceCents()),
			Customizations: make([]customizationResponse, 0, len(item.Customizations)),
		}
		for _, c := range item.Customizations {
			ir.Customizations = append(ir.Customizations, customizationResponse{
				ID:                     c.ID,
				CatalogCustomizationID: c.CatalogCustomizationID,
				Quantity:               c.Quantity,
				UnitPrice:              money(c.UnitPriceCents),
				Price:                  money(c.PriceCents()),
			})
		}
		resp.Items = append(resp.Items, ir)
	}

	if p := order.Payment; p != nil {
		resp.Payment = &paymentResponse{
			ID:              p.ID,
			GatewayIntentID: p.GatewayIntentID,
			AmountReceived:  money(p.AmountReceivedCents),
			Currency:        p.Currency,
			Status:          p.Status,
		}
	}

	return resp
}
