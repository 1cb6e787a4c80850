package natsstan

import (
	"context"
	"time"
)

// Queue publishes invoice jobs. Publish is synchronous: it returns once the
// streaming server has persisted the message.
type Queue struct {
	conn    publisher
	subject string
}

func NewQueue(conn publisher, subject string) *Queue {
	return &Queue{conn: conn, subject: subject}
}

func (q *Queue) EnqueueInvoice(_ context.Context, orderID string) error {
	return publishJSON(q.conn, q.subject, jobMessage{OrderID: orderID})
}

// Notifier publishes "invoice ready" events for the delivery service.
type Notifier struct {
	conn    publisher
	subject string
	now     func() time.Time
}

func NewNotifier(conn publisher, subject string) *Notifier {
	return &Notifier{
		conn:    conn,
		subject: subject,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (n *Notifier) SendInvoiceNotification(_ context.Context, userID, invoiceID string) error {
	return publishJSON(n.conn, n.subject, notificationMessage{
		UserID:    userID,
		InvoiceID: invoiceID,
		SentAt:    n.now(),
	})
}
