package invoicing_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/navi/orderflow/internal/invoicing"
	"github.com/navi/orderflow/internal/orders/adapters/memory"
	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
)

type mockNotifier struct {
	mu       sync.Mutex
	notifyFn func(ctx context.Context, userID, invoiceID string) error
	sent     []string
}

func (m *mockNotifier) SendInvoiceNotification(ctx context.Context, userID, invoiceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notifyFn != nil {
		if err := m.notifyFn(ctx, userID, invoiceID); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, userID+"/"+invoiceID)
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type countingStore struct {
	*memory.DocumentStore
	puts atomic.Int32
}

func (s *countingStore) Put(ctx context.Context, name, contentType string, body []byte) (string, error) {
	s.puts.Add(1)
	return s.DocumentStore.Put(ctx, name, contentType, body)
}

type fixture struct {
	orders    *memory.Repository
	invoices  *memory.InvoiceRepository
	documents *countingStore
	notifier  *mockNotifier
	worker    *invoicing.Worker
}

func newFixture(opts ...invoicing.Option) *fixture {
	f := &fixture{
		orders:    memory.NewRepository(),
		invoices:  memory.NewInvoiceRepository(),
		documents: &countingStore{DocumentStore: memory.NewDocumentStore()},
		notifier:  &mockNotifier{},
	}
	fast := invoicing.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, Multiplier: 2}
	opts = append([]invoicing.Option{invoicing.WithRetryPolicy(fast)}, opts...)
	f.worker = invoicing.NewWorker(f.orders, f.invoices, f.documents, f.notifier, slog.New(slog.DiscardHandler), opts...)
	return f
}

// seed stores a 14.00 order (2 x 5.00 plus 4 x 1.00) in the given status.
func (f *fixture) seed(t *testing.T, id string, status domain.OrderStatus) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	order := domain.Order{ID: id, UserID: "user-1", Status: domain.StatusOrdered, Audit: domain.NewAudit("user-1", now)}
	item := domain.OrderItem{ID: id + "-item", OrderID: id, CatalogItemID: "burger", Quantity: 2, UnitPriceCents: 500}
	extra := domain.OrderCustomization{ID: id + "-extra", OrderItemID: item.ID, CatalogCustomizationID: "cheese", Quantity: 4, UnitPriceCents: 100}

	if err := f.orders.CreateOrder(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := f.orders.AddItem(ctx, item); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := f.orders.AddCustomization(ctx, extra); err != nil {
		t.Fatalf("add customization: %v", err)
	}

	if status == domain.StatusOrdered {
		return
	}
	destination := "dock-1"
	order.Status = status
	order.DestinationID = &destination
	if err := f.orders.UpdateFulfillment(ctx, order, domain.StatusOrdered); err != nil {
		t.Fatalf("update status: %v", err)
	}
}

func TestWorkerProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("creates, renders, stores and notifies", func(t *testing.T) {
		f := newFixture()
		f.seed(t, "order-1", domain.StatusSent)

		invoice, err := f.worker.Process(ctx, "order-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if invoice.FormattedReference() != "000001" {
			t.Errorf("expected reference 000001, got %s", invoice.FormattedReference())
		}
		if !invoice.HasDocument() {
			t.Fatal("expected a document reference")
		}

		body, err := f.documents.Get(ctx, invoice.DocumentRef)
		if err != nil {
			t.Fatalf("document not stored: %v", err)
		}
		for _, want := range []string{"INVOICE 000001", "order-1", "dock-1", "14.00 usd", "10.00", "4.00"} {
			if !strings.Contains(string(body), want) {
				t.Errorf("expected document to contain %q:\n%s", want, body)
			}
		}

		stored, err := f.invoices.GetByOrderID(ctx, "order-1")
		if err != nil || stored.DocumentRef != invoice.DocumentRef {
			t.Errorf("expected document attached, got %+v, %v", stored, err)
		}
		if f.notifier.count() != 1 || f.notifier.sent[0] != "user-1/"+invoice.ID {
			t.Errorf("expected one notification for user-1, got %v", f.notifier.sent)
		}
	})

	t.Run("is idempotent for the same order", func(t *testing.T) {
		f := newFixture()
		f.seed(t, "order-1", domain.StatusCompleted)

		first, err := f.worker.Process(ctx, "order-1")
		if err != nil {
			t.Fatalf("first run: %v", err)
		}
		second, err := f.worker.Process(ctx, "order-1")
		if err != nil {
			t.Fatalf("second run: %v", err)
		}

		if first.ID != second.ID || first.ReferenceNumber != second.ReferenceNumber {
			t.Errorf("expected the same invoice, got %+v and %+v", first, second)
		}
		if puts := f.documents.puts.Load(); puts != 1 {
			t.Errorf("expected one document upload, got %d", puts)
		}
	})

	t.Run("rejects orders that were not dispatched", func(t *testing.T) {
		f := newFixture()
		f.seed(t, "order-1", domain.StatusOrdered)

		_, err := f.worker.Process(ctx, "order-1")
		if !invoicing.IsPermanent(err) {
			t.Fatalf("expected permanent error, got %v", err)
		}
		if _, err := f.invoices.GetByOrderID(ctx, "order-1"); !errors.Is(err, ports.ErrNotFound) {
			t.Error("expected no invoice")
		}
		if f.notifier.count() != 0 {
			t.Error("expected no notification")
		}
	})

	t.Run("rejects unknown orders", func(t *testing.T) {
		f := newFixture()
		if _, err := f.worker.Process(ctx, "missing"); !invoicing.IsPermanent(err) {
			t.Errorf("expected permanent error, got %v", err)
		}
		if _, err := f.worker.Process(ctx, " "); !invoicing.IsPermanent(err) {
			t.Errorf("expected permanent error for blank id, got %v", err)
		}
	})

	t.Run("concurrent jobs get distinct reference numbers", func(t *testing.T) {
		f := newFixture()
		const n = 20
		for i := range n {
			f.seed(t, fmt.Sprintf("order-%d", i), domain.StatusSent)
		}

		var wg sync.WaitGroup
		refs := make(chan int64, n*2)
		for i := range n {
			for range 2 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					invoice, err := f.worker.Process(ctx, fmt.Sprintf("order-%d", i))
					if err != nil {
						t.Errorf("process order-%d: %v", i, err)
						return
					}
					refs <- invoice.ReferenceNumber
				}()
			}
		}
		wg.Wait()
		close(refs)

		byRef := map[int64]int{}
		for ref := range refs {
			byRef[ref]++
		}
		if len(byRef) != n {
			t.Errorf("expected %d distinct references, got %d", n, len(byRef))
		}
		for ref := int64(1); ref <= n; ref++ {
			if byRef[ref] != 2 {
				t.Errorf("expected reference %d to be returned to both jobs, got %d", ref, byRef[ref])
			}
		}
	})
}

func TestWorkerRun(t *testing.T) {
	ctx := context.Background()

	t.Run("retries transient failures", func(t *testing.T) {
		f := newFixture()
		f.seed(t, "order-1", domain.StatusSent)

		var calls atomic.Int32
		f.notifier.notifyFn = func(context.Context, string, string) error {
			if calls.Add(1) < 3 {
				return errors.New("smtp unavailable")
			}
			return nil
		}

		if err := f.worker.Run(ctx, "order-1"); err != nil {
			t.Fatalf("expected success on third attempt, got %v", err)
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", calls.Load())
		}
		if puts := f.documents.puts.Load(); puts != 1 {
			t.Errorf("expected one document upload across retries, got %d", puts)
		}
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		f := newFixture()
		f.seed(t, "order-1", domain.StatusSent)

		var calls atomic.Int32
		f.notifier.notifyFn = func(context.Context, string, string) error {
			calls.Add(1)
			return errors.New("smtp unavailable")
		}

		err := f.worker.Run(ctx, "order-1")
		if err == nil || invoicing.IsPermanent(err) {
			t.Fatalf("expected a transient failure, got %v", err)
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", calls.Load())
		}

		order, err := f.orders.GetByID(ctx, "order-1")
		if err != nil || order.Status != domain.StatusSent {
			t.Errorf("expected order to stay sent, got %+v, %v", order, err)
		}
	})

	t.Run("does not retry permanent failures", func(t *testing.T) {
		f := newFixture()
		f.seed(t, "order-1", domain.StatusOrdered)

		var calls atomic.Int32
		f.notifier.notifyFn = func(context.Context, string, string) error {
			calls.Add(1)
			return nil
		}

		if err := f.worker.Run(ctx, "order-1"); !invoicing.IsPermanent(err) {
			t.Fatalf("expected permanent error, got %v", err)
		}
		if calls.Load() != 0 {
			t.Errorf("expected no notification, got %d", calls.Load())
		}
	})
}

func TestRetryPolicyDefaults(t *testing.T) {
	p := invoicing.DefaultRetryPolicy()
	if p.MaxAttempts != 6 {
		t.Errorf("expected 6 attempts (five retries), got %d", p.MaxAttempts)
	}
	if p.Multiplier != 2 {
		t.Errorf("expected exponential multiplier 2, got %v", p.Multiplier)
	}

	w := invoicing.NewWorker(nil, nil, nil, nil, slog.New(slog.DiscardHandler), invoicing.WithRetryPolicy(invoicing.RetryPolicy{}))
	if got := w.RetryPolicy(); got != p {
		t.Errorf("expected zero policy to fall back to defaults, got %+v", got)
	}
}

func TestRetryPolicyNormalized(t *testing.T) {
	tests := []struct {
		name   string
		policy invoicing.RetryPolicy
		want   invoicing.RetryPolicy
	}{
		{
			name:   "max interval below initial is raised",
			policy: invoicing.RetryPolicy{MaxAttempts: 3, InitialInterval: 2 * time.Minute, MaxInterval: time.Minute, Multiplier: 2},
			want:   invoicing.RetryPolicy{MaxAttempts: 3, InitialInterval: 2 * time.Minute, MaxInterval: 2 * time.Minute, Multiplier: 2},
		},
		{
			name:   "non positive initial interval falls back",
			policy: invoicing.RetryPolicy{MaxAttempts: 3, InitialInterval: -time.Second, MaxInterval: time.Minute, Multiplier: 2},
			want:   invoicing.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Second, MaxInterval: time.Minute, Multiplier: 2},
		},
		{
			name:   "valid policy unchanged",
			policy: invoicing.RetryPolicy{MaxAttempts: 2, InitialInterval: time.Second, MaxInterval: 5 * time.Second, Multiplier: 1.5},
			want:   invoicing.RetryPolicy{MaxAttempts: 2, InitialInterval: time.Second, MaxInterval: 5 * time.Second, Multiplier: 1.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Normalized(); got != tt.want {
				t.Errorf("Normalized() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
