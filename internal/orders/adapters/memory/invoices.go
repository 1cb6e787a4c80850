package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
)

// InvoiceRepository numbers invoices under a single lock, so references are
// unique and gapless within the process.
type InvoiceRepository struct {
	mu      sync.Mutex
	byOrder map[string]domain.Invoice
	lastRef int64
	now     func() time.Time
}

func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{
		byOrder: make(map[string]domain.Invoice),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *InvoiceRepository) ObtainForOrder(_ context.Context, orderID string) (domain.Invoice, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if invoice, ok := r.byOrder[orderID]; ok {
		return invoice, false, nil
	}

	r.lastRef++
	invoice := domain.Invoice{
		ID:              uuid.NewString(),
		OrderID:         orderID,
		ReferenceNumber: r.lastRef,
		Audit:           domain.NewAudit("", r.now()),
	}
	r.byOrder[orderID] = invoice
	return invoice, true, nil
}

func (r *InvoiceRepository) GetByOrderID(_ context.Context, orderID string) (*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	invoice, ok := r.byOrder[orderID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &invoice, nil
}

func (r *InvoiceRepository) AttachDocument(_ context.Context, invoiceID, documentRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for orderID, invoice := range r.byOrder {
		if invoice.ID != invoiceID {
			continue
		}
		invoice.DocumentRef = documentRef
		invoice.Touch("", r.now())
		r.byOrder[orderID] = invoice
		return nil
	}
	return fmt.Errorf("%w: invoice %s", ports.ErrNotFound, invoiceID)
}
