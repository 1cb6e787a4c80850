package adapters

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/navi/orderflow/internal/messaging"
	"github.com/navi/orderflow/internal/orders/ports"
	"github.com/navi/orderflow/internal/telemetry"
)

type ObservableInvoiceQueue struct {
	queue   ports.InvoiceQueue
	subject string
	metrics *messaging.Metrics
}

// NewObservableInvoiceQueue labels publish metrics with subject, the queue
// backend's channel name.
func NewObservableInvoiceQueue(queue ports.InvoiceQueue, subject string, metrics *messaging.Metrics) *ObservableInvoiceQueue {
	return &ObservableInvoiceQueue{queue: queue, subject: subject, metrics: metrics}
}

func (q *ObservableInvoiceQueue) EnqueueInvoice(ctx context.Context, orderID string) error {
	ctx, span := telemetry.StartSpan(ctx, "InvoiceQueue.EnqueueInvoice")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", orderID),
		attribute.String("messaging.subject", q.subject),
	)

	start := time.Now()
	err := q.queue.EnqueueInvoice(ctx, orderID)
	q.metrics.RecordPublish(ctx, q.subject, time.Since(start).Seconds(), err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

type ObservableNotifier struct {
	notifier ports.Notifier
	subject  string
	metrics  *messaging.Metrics
}

func NewObservableNotifier(notifier ports.Notifier, subject string, metrics *messaging.Metrics) *ObservableNotifier {
	return &ObservableNotifier{notifier: notifier, subject: subject, metrics: metrics}
}

func (n *ObservableNotifier) SendInvoiceNotification(ctx context.Context, userID, invoiceID string) error {
	ctx, span := telemetry.StartSpan(ctx, "Notifier.SendInvoiceNotification")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("user.id", userID),
		attribute.String("invoice.id", invoiceID),
		attribute.String("messaging.subject", n.subject),
	)

	start := time.Now()
	err := n.notifier.SendInvoiceNotification(ctx, userID, invoiceID)
	n.metrics.RecordPublish(ctx, n.subject, time.Since(start).Seconds(), err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
