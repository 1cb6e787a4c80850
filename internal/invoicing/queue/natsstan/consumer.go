package natsstan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stan "github.com/nats-io/stan.go"

	"github.com/navi/orderflow/internal/invoicing/queue"
	"github.com/navi/orderflow/internal/messaging"
)

const (
	defaultQueueGroup = "invoice-workers"
	defaultDurable    = "invoice-durable"
)

// Consumer feeds invoice jobs from a durable queue subscription to a runner.
type Consumer struct {
	conn    stan.Conn
	subject string
	group   string
	durable string
	ackWait time.Duration
	runner  queue.Runner
	logger  *slog.Logger
	metrics *messaging.Metrics
}

func NewConsumer(conn stan.Conn, subject string, runner queue.Runner, logger *slog.Logger, metrics *messaging.Metrics) *Consumer {
	return &Consumer{
		conn:    conn,
		subject: subject,
		group:   defaultQueueGroup,
		durable: defaultDurable,
		ackWait: 5 * time.Minute,
		runner:  runner,
		logger:  logger,
		metrics: metrics,
	}
}

// Subscribe starts consuming and returns once the subscription is live. Jobs run
// with ctx; cancelling it leaves in-flight messages unacknowledged so the
// server redelivers them.
func (c *Consumer) Subscribe(ctx context.Context) (stan.Subscription, error) {
	sub, err := c.conn.QueueSubscribe(c.subject, c.group, func(m *stan.Msg) {
		if !c.handle(ctx, m.Data) {
			return
		}
		if err := m.Ack(); err != nil {
			c.logger.WarnContext(ctx, "failed to ack invoice job", "error", err, "sequence", m.Sequence)
		}
	},
		stan.DurableName(c.durable),
		stan.SetManualAckMode(),
		stan.AckWait(c.ackWait),
		stan.MaxInflight(1),
		stan.DeliverAllAvailable(),
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", c.subject, err)
	}
	return sub, nil
}

// handle runs one delivery and reports whether it should be acknowledged. The
// runner owns retries, so everything except shutdown is acknowledged:
// malformed payloads would fail forever, and exhausted jobs have already
// raised an alert.
func (c *Consumer) handle(ctx context.Context, data []byte) bool {
	var msg jobMessage
	if err := json.Unmarshal(data, &msg); err != nil || strings.TrimSpace(msg.OrderID) == "" {
		c.logger.ErrorContext(ctx, "dropping malformed invoice job",
			"error", err,
			"payload", string(data),
		)
		c.metrics.RecordDelivery(ctx, c.subject, true)
		return true
	}

	err := c.runner.Run(ctx, msg.OrderID)
	if err != nil && ctx.Err() != nil {
		c.logger.InfoContext(ctx, "invoice job interrupted by shutdown", "order_id", msg.OrderID)
		c.metrics.RecordDelivery(ctx, c.subject, false)
		return false
	}

	c.metrics.RecordDelivery(ctx, c.subject, true)
	return true
}
