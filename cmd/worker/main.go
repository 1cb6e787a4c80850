package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/navi/orderflow/internal/config"
	"github.com/navi/orderflow/internal/invoicing/queue/natsstan"
	"github.com/navi/orderflow/internal/invoicing/queue/temporal"
	"github.com/navi/orderflow/internal/messaging"
	"github.com/navi/orderflow/internal/orders/adapters"
	"github.com/navi/orderflow/internal/orders/ports"
	"github.com/navi/orderflow/internal/platform"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Invoicing.QueueBackend == config.QueueMemory {
		return fmt.Errorf("INVOICE_QUEUE_BACKEND=%s runs inside the api process; choose %s or %s",
			config.QueueMemory, config.QueueStan, config.QueueTemporal)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, tel, err := platform.NewObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	metrics, err := platform.NewMetrics(tel.Meter())
	if err != nil {
		return err
	}

	stores, err := platform.OpenStores(ctx, cfg, logger, metrics.Database)
	if err != nil {
		return err
	}
	defer stores.Close()

	switch cfg.Invoicing.QueueBackend {
	case config.QueueStan:
		return runStan(ctx, cfg, stores, logger, metrics)
	default:
		return runTemporal(ctx, cfg, stores, logger, metrics)
	}
}

func runStan(ctx context.Context, cfg *config.Config, stores *platform.Stores, logger *slog.Logger, metrics *platform.Metrics) error {
	conn, err := natsstan.Connect(natsConfig(cfg), logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	notifier := adapters.NewObservableNotifier(
		natsstan.NewNotifier(conn, cfg.NATS.NotificationSubject),
		cfg.NATS.NotificationSubject,
		metrics.Messaging,
	)
	worker := platform.NewInvoiceWorker(cfg, stores, notifier, logger, metrics.Invoicing)

	consumer := natsstan.NewConsumer(conn, cfg.NATS.InvoiceSubject, worker, logger, metrics.Messaging)
	sub, err := consumer.Subscribe(ctx)
	if err != nil {
		return err
	}
	logger.Info("invoice worker consuming", "backend", config.QueueStan, "subject", cfg.NATS.InvoiceSubject)

	<-ctx.Done()

	// Close keeps the durable subscription; Unsubscribe would discard it.
	if err := sub.Close(); err != nil {
		logger.Warn("failed to close subscription", "error", err)
	}
	logger.Info("invoice worker stopped")
	return nil
}

func runTemporal(ctx context.Context, cfg *config.Config, stores *platform.Stores, logger *slog.Logger, metrics *platform.Metrics) error {
	c, err := platform.DialTemporal(cfg.Temporal, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	notifier, closeNotifier, err := newNotifier(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer closeNotifier()

	worker := platform.NewInvoiceWorker(cfg, stores, notifier, logger, metrics.Invoicing)
	w := temporal.NewWorker(c, cfg.Temporal.TaskQueue, temporal.NewActivities(worker, logger, metrics.Invoicing), cfg.Invoicing.Workers)
	if err := w.Start(); err != nil {
		return fmt.Errorf("start temporal worker: %w", err)
	}
	logger.Info("invoice worker polling", "backend", config.QueueTemporal, "task_queue", cfg.Temporal.TaskQueue)

	<-ctx.Done()
	w.Stop()
	logger.Info("invoice worker stopped")
	return nil
}

// newNotifier publishes notifications over NATS Streaming when enabled and
// logs them otherwise.
func newNotifier(cfg *config.Config, logger *slog.Logger, metrics *platform.Metrics) (ports.Notifier, func(), error) {
	if !cfg.Invoicing.NotifyViaNATS {
		return adapters.NewObservableNotifier(messaging.NewLogNotifier(logger), "log", metrics.Messaging), func() {}, nil
	}

	conn, err := natsstan.Connect(natsConfig(cfg), logger)
	if err != nil {
		return nil, nil, err
	}
	notifier := adapters.NewObservableNotifier(
		natsstan.NewNotifier(conn, cfg.NATS.NotificationSubject),
		cfg.NATS.NotificationSubject,
		metrics.Messaging,
	)
	return notifier, func() { _ = conn.Close() }, nil
}

// natsConfig suffixes the client id so it does not collide with the api's
// connection.
func natsConfig(cfg *config.Config) natsstan.Config {
	return natsstan.Config{
		URL:       cfg.NATS.URL,
		ClusterID: cfg.NATS.ClusterID,
		ClientID:  cfg.NATS.ClientID + "-worker",
	}
}
