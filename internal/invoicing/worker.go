// Package invoicing produces the numbered invoice for a dispatched order,
// stores its document and notifies the customer.
package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"

	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
	"github.com/navi/orderflow/internal/telemetry"
)

// OrderReader is the read side of the order store the worker needs.
type OrderReader interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

type Worker struct {
	orders    OrderReader
	invoices  ports.InvoiceRepository
	documents ports.DocumentStore
	notifier  ports.Notifier
	renderer  Renderer
	retry     RetryPolicy
	logger    *slog.Logger
	metrics   *Metrics
}

type Option func(*Worker)

func WithRenderer(r Renderer) Option {
	return func(w *Worker) { w.renderer = r }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(w *Worker) { w.retry = p.Normalized() }
}

// WithMetrics enables job counters. A nil *Metrics is valid and records nothing.
func WithMetrics(m *Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

func NewWorker(
	orders OrderReader,
	invoices ports.InvoiceRepository,
	documents ports.DocumentStore,
	notifier ports.Notifier,
	logger *slog.Logger,
	opts ...Option,
) *Worker {
	w := &Worker{
		orders:    orders,
		invoices:  invoices,
		documents: documents,
		notifier:  notifier,
		renderer:  NewTextRenderer(),
		retry:     DefaultRetryPolicy(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RetryPolicy returns the policy Run applies. Queue backends with their own
// retry machinery read it to stay consistent.
func (w *Worker) RetryPolicy() RetryPolicy {
	return w.retry
}

// Process runs one attempt of the invoice job. It is idempotent: repeated calls
// for the same order reuse the existing invoice and document, so a redelivered
// job at most repeats the notification.
func (w *Worker) Process(ctx context.Context, orderID string) (domain.Invoice, error) {
	ctx, span := telemetry.StartSpan(ctx, "InvoiceWorker.Process")
	defer span.End()
	telemetry.AddSpanAttributes(span, attribute.String("order.id", orderID))

	start := time.Now()
	invoice, err := w.process(ctx, orderID)
	w.metrics.RecordAttempt(ctx, time.Since(start).Seconds(), err == nil)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return domain.Invoice{}, err
	}

	telemetry.AddSpanAttributes(span, attribute.String("invoice.reference", invoice.FormattedReference()))
	telemetry.SetSpanSuccess(span)
	return invoice, nil
}

func (w *Worker) process(ctx context.Context, orderID string) (domain.Invoice, error) {
	if strings.TrimSpace(orderID) == "" {
		return domain.Invoice{}, permanent("order id is required")
	}

	order, err := w.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return domain.Invoice{}, permanent("order %s does not exist", orderID)
		}
		return domain.Invoice{}, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order.Status != domain.StatusSent && order.Status != domain.StatusCompleted {
		return domain.Invoice{}, permanent("order %s is %s, not dispatched", orderID, order.Status)
	}

	invoice, created, err := w.invoices.ObtainForOrder(ctx, order.ID)
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("obtain invoice for order %s: %w", order.ID, err)
	}
	if created {
		w.metrics.RecordInvoiceCreated(ctx)
		w.logger.InfoContext(ctx, "invoice created",
			"order_id", order.ID,
			"invoice_id", invoice.ID,
			"reference", invoice.FormattedReference(),
		)
	}

	if !invoice.HasDocument() {
		doc, err := w.renderer.Render(ctx, invoice, *order)
		if err != nil {
			return domain.Invoice{}, err
		}
		ref, err := w.documents.Put(ctx, doc.Name, doc.ContentType, doc.Body)
		if err != nil {
			return domain.Invoice{}, fmt.Errorf("store invoice document: %w", err)
		}
		if err := w.invoices.AttachDocument(ctx, invoice.ID, ref); err != nil {
			return domain.Invoice{}, fmt.Errorf("attach invoice document: %w", err)
		}
		invoice.DocumentRef = ref
	}

	if err := w.notifier.SendInvoiceNotification(ctx, order.UserID, invoice.ID); err != nil {
		return domain.Invoice{}, fmt.Errorf("notify invoice %s: %w", invoice.ID, err)
	}

	return invoice, nil
}

// Run processes the job under the worker's retry policy. Permanent failures
// stop immediately. Exhausted retries are logged for alerting and never touch
// the order.
func (w *Worker) Run(ctx context.Context, orderID string) error {
	attempt := 0
	operation := func() error {
		attempt++
		_, err := w.Process(ctx, orderID)
		if err != nil && IsPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		w.metrics.RecordJob(ctx, OutcomeRetried)
		w.logger.WarnContext(ctx, "invoice job failed, retrying",
			"error", err,
			"order_id", orderID,
			"attempt", attempt,
			"retry_in", next.String(),
		)
	}

	err := backoff.RetryNotify(operation, w.retry.backOff(ctx), notify)
	switch {
	case err == nil:
		w.metrics.RecordJob(ctx, OutcomeSucceeded)
		w.logger.InfoContext(ctx, "invoice job completed", "order_id", orderID, "attempts", attempt)
		return nil
	case IsPermanent(err):
		w.metrics.RecordJob(ctx, OutcomeRejected)
		w.logger.ErrorContext(ctx, "invoice job rejected",
			"error", err,
			"order_id", orderID,
		)
		return err
	default:
		w.metrics.RecordJob(ctx, OutcomeExhausted)
		w.logger.ErrorContext(ctx, "invoice job exhausted retries",
			"error", err,
			"order_id", orderID,
			"attempts", attempt,
			"alert", true,
		)
		return fmt.Errorf("invoice for order %s failed after %d attempts: %w", orderID, attempt, err)
	}
}
