package platform

import (
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"

	"github.com/navi/orderflow/internal/config"
	"github.com/navi/orderflow/internal/invoicing"
	"github.com/navi/orderflow/internal/orders/ports"
)

func RetryPolicy(cfg config.InvoicingConfig) invoicing.RetryPolicy {
	policy := invoicing.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.MaxAttempts
	policy.InitialInterval = cfg.InitialBackoff
	policy.MaxInterval = cfg.MaxBackoff
	return policy.Normalized()
}

// NewInvoiceWorker builds the worker over the configured stores.
func NewInvoiceWorker(cfg *config.Config, stores *Stores, notifier ports.Notifier, logger *slog.Logger, metrics *invoicing.Metrics) *invoicing.Worker {
	return invoicing.NewWorker(
		stores.Orders,
		stores.Invoices,
		stores.Documents,
		notifier,
		logger.With("component", "invoice-worker"),
		invoicing.WithRetryPolicy(RetryPolicy(cfg.Invoicing)),
		invoicing.WithMetrics(metrics),
	)
}

// DialTemporal connects to the Temporal frontend, routing SDK logs through
// logger.
func DialTemporal(cfg config.TemporalConfig, logger *slog.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Address,
		Namespace: cfg.Namespace,
		Logger:    temporallog.NewStructuredLogger(logger.With("component", "temporal")),
	})
	if err != nil {
		return nil, fmt.Errorf("dial temporal %s: %w", cfg.Address, err)
	}
	return c, nil
}
