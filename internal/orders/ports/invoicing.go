package ports

import (
	"context"

	"github.com/navi/orderflow/internal/orders/domain"
)

// InvoiceQueue hands dispatched orders to the invoice worker. Only the order id
// travels; the worker reloads the order itself.
type InvoiceQueue interface {
	EnqueueInvoice(ctx context.Context, orderID string) error
}

// InvoiceRepository persists invoices.
type InvoiceRepository interface {
	// ObtainForOrder returns the order's invoice, creating it with the next
	// reference number when none exists. created reports which happened.
	ObtainForOrder(ctx context.Context, orderID string) (invoice domain.Invoice, created bool, err error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Invoice, error)
	AttachDocument(ctx context.Context, invoiceID, documentRef string) error
}

// DocumentStore keeps rendered invoice documents.
type DocumentStore interface {
	Put(ctx context.Context, name, contentType string, body []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

// Notifier triggers outbound delivery of an invoice. Delivery is at-least-once.
type Notifier interface {
	SendInvoiceNotification(ctx context.Context, userID, invoiceID string) error
}
