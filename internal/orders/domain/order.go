package domain

import (
	"strings"
	"time"
)

// OrderStatus captures where an order is in its fulfillment lifecycle.
type OrderStatus string

const (
	StatusOrdered   OrderStatus = "ordered"
	StatusSent      OrderStatus = "sent"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusOrdered, StatusSent, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Action names a fulfillment transition.
type Action string

const (
	ActionDispatch Action = "dispatch"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
)

func (a Action) pastTense() string {
	switch a {
	case ActionDispatch:
		return "dispatched"
	case ActionCancel:
		return "cancelled"
	case ActionComplete:
		return "completed"
	default:
		return string(a)
	}
}

type transitionKey struct {
	from   OrderStatus
	action Action
}

// transitions is the complete table; anything absent is illegal.
var transitions = map[transitionKey]OrderStatus{
	{StatusOrdered, ActionDispatch}: StatusSent,
	{StatusOrdered, ActionCancel}:   StatusCancelled,
	{StatusSent, ActionComplete}:    StatusCompleted,
}

// NextStatus returns the status reached by applying action to from.
func NextStatus(from OrderStatus, action Action) (OrderStatus, error) {
	next, ok := transitions[transitionKey{from, action}]
	if !ok {
		return from, &TransitionError{From: from, Action: action}
	}
	return next, nil
}

const (
	MinQuantity = 1
	MaxQuantity = 100

	// Snapshot bounds, in cents: 0.01 to 99999.99.
	MinUnitPriceCents int64 = 1
	MaxUnitPriceCents int64 = 9_999_999
)

// Audit is the creation/update metadata shared by every persisted entity.
type Audit struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// Touch stamps an update by actor at now.
func (a *Audit) Touch(actor string, now time.Time) {
	a.UpdatedAt = now
	if actor != "" {
		a.UpdatedBy = actor
	}
}

// NewAudit returns audit metadata for a record created by actor at now.
func NewAudit(actor string, now time.Time) Audit {
	return Audit{CreatedAt: now, UpdatedAt: now, CreatedBy: actor, UpdatedBy: actor}
}

// Order is one customer purchase with its line items.
type Order struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	DestinationID *string     `json:"destination_id,omitempty"`
	Status        OrderStatus `json:"status"`
	CartToken     string      `json:"-"`
	PaymentID     *string     `json:"payment_id,omitempty"`
	Payment       *Payment    `json:"payment,omitempty"`
	Items         []OrderItem `json:"items"`
	Audit
}

// PriceCents is the sum of all item totals. It is recomputed on every call.
func (o Order) PriceCents() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.PriceCents()
	}
	return total
}

// CanModifyItems reports whether line items may still be added or changed.
func (o Order) CanModifyItems() bool {
	return o.Status == StatusOrdered
}

// OwnedBy reports whether userID placed the order.
func (o Order) OwnedBy(userID string) bool {
	return userID != "" && o.UserID == userID
}

// IsTerminal indicates whether the order can no longer change status.
func (o Order) IsTerminal() bool {
	switch o.Status {
	case StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Transition applies action and moves the order forward. The order is left
// unchanged when the transition is illegal.
func (o *Order) Transition(action Action, actor string, now time.Time) error {
	next, err := NextStatus(o.Status, action)
	if err != nil {
		return err
	}
	o.Status = next
	o.Touch(actor, now)
	return nil
}

// AddItem appends a priced line. Only allowed while the order is ordered.
func (o *Order) AddItem(item OrderItem) error {
	if !o.CanModifyItems() {
		return NewValidationError("items", "items can only be changed while the order is in ordered status")
	}
	if err := item.Validate(); err != nil {
		return err
	}
	o.Items = append(o.Items, item)
	return nil
}

// OrderItem is one priced line within an order.
type OrderItem struct {
	ID             string               `json:"id"`
	OrderID        string               `json:"order_id"`
	CatalogItemID  string               `json:"catalog_item_id"`
	Quantity       int                  `json:"quantity"`
	UnitPriceCents int64                `json:"unit_price_cents"`
	Customizations []OrderCustomization `json:"customizations"`
	Audit
}

// PriceCents is unit price times quantity plus every customization total.
func (i OrderItem) PriceCents() int64 {
	total := i.UnitPriceCents * int64(i.Quantity)
	for _, c := range i.Customizations {
		total += c.PriceCents()
	}
	return total
}

func (i OrderItem) Validate() error {
	if strings.TrimSpace(i.CatalogItemID) == "" {
		return NewValidationError("catalog_item_id", "is required")
	}
	if err := validateQuantity("quantity", i.Quantity); err != nil {
		return err
	}
	if err := ValidateUnitPrice("unit_price", i.UnitPriceCents); err != nil {
		return err
	}
	for _, c := range i.Customizations {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// OrderCustomization is a priced modifier attached to an order item.
type OrderCustomization struct {
	ID                     string `json:"id"`
	OrderItemID            string `json:"order_item_id"`
	CatalogCustomizationID string `json:"catalog_customization_id"`
	Quantity               int    `json:"quantity"`
	UnitPriceCents         int64  `json:"unit_price_cents"`
	Audit
}

func (c OrderCustomization) PriceCents() int64 {
	return c.UnitPriceCents * int64(c.Quantity)
}

func (c OrderCustomization) Validate() error {
	if strings.TrimSpace(c.CatalogCustomizationID) == "" {
		return NewValidationError("catalog_customization_id", "is required")
	}
	if err := validateQuantity("customizations.quantity", c.Quantity); err != nil {
		return err
	}
	return ValidateUnitPrice("customizations.unit_price", c.UnitPriceCents)
}

// ValidateQuantity checks the 1..100 bound applied to items and customizations.
func ValidateQuantity(quantity int) error {
	return validateQuantity("quantity", quantity)
}

func validateQuantity(field string, quantity int) error {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return NewValidationError(field, "must be between 1 and 100")
	}
	return nil
}

// ValidateUnitPrice rejects snapshot prices outside 0.01..99999.99.
func ValidateUnitPrice(field string, cents int64) error {
	if cents < MinUnitPriceCents || cents > MaxUnitPriceCents {
		return NewValidationError(field, "must be between 0.01 and 99999.99")
	}
	return nil
}
