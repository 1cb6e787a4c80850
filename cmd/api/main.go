package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/navi/orderflow/internal/config"
	"github.com/navi/orderflow/internal/invoicing/queue/memory"
	"github.com/navi/orderflow/internal/invoicing/queue/natsstan"
	"github.com/navi/orderflow/internal/invoicing/queue/temporal"
	"github.com/navi/orderflow/internal/messaging"
	"github.com/navi/orderflow/internal/orders/adapters"
	httpadapter "github.com/navi/orderflow/internal/orders/adapters/http"
	ordersapp "github.com/navi/orderflow/internal/orders/app"
	"github.com/navi/orderflow/internal/orders/ports"
	"github.com/navi/orderflow/internal/platform"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
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

	workers, jobCtx := errgroup.WithContext(context.Background())
	queue, closeQueue, err := newInvoiceQueue(jobCtx, cfg, stores, logger, metrics, workers)
	if err != nil {
		return err
	}

	service := ordersapp.NewService(ordersapp.Dependencies{
		Repo:         stores.Orders,
		Catalog:      stores.Catalog,
		Destinations: stores.Destinations,
		Gateway:      platform.NewPaymentGateway(cfg.Payments, stores.Customers, metrics.Orders),
		Invoices:     queue,
		Idempotency:  stores.Idempotency,
		Currency:     cfg.Payments.Currency,
	}, logger, metrics.Orders)

	router := mux.NewRouter()
	router.Use(httpadapter.MetricsMiddleware(metrics.HTTP))
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	router.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := stores.Ready(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}).Methods(http.MethodGet)
	httpadapter.NewHandler(service, stores.Identities, metrics.HTTP, logger).Register(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           withRecovery(logger, withLogging(logger, router)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "port", cfg.HTTP.Port, "invoice_queue", cfg.Invoicing.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	} else {
		logger.Info("http server stopped")
	}

	// No new dispatches can arrive now; let in-process workers drain.
	closeQueue()
	drained := make(chan error, 1)
	go func() { drained <- workers.Wait() }()
	select {
	case err := <-drained:
		if err != nil {
			logger.Error("invoice workers stopped with error", "error", err)
		}
	case <-shutdownCtx.Done():
		logger.Warn("invoice workers did not drain before shutdown deadline")
	}
	return nil
}

// newInvoiceQueue selects the invoice queue backend. For the memory backend it
// also starts the in-process workers on g.
func newInvoiceQueue(
	ctx context.Context,
	cfg *config.Config,
	stores *platform.Stores,
	logger *slog.Logger,
	metrics *platform.Metrics,
	g *errgroup.Group,
) (ports.InvoiceQueue, func(), error) {
	switch cfg.Invoicing.QueueBackend {
	case config.QueueStan:
		conn, err := natsstan.Connect(natsConfig(cfg), logger)
		if err != nil {
			return nil, nil, err
		}
		queue := natsstan.NewQueue(conn, cfg.NATS.InvoiceSubject)
		return adapters.NewObservableInvoiceQueue(queue, cfg.NATS.InvoiceSubject, metrics.Messaging),
			func() { _ = conn.Close() }, nil

	case config.QueueTemporal:
		c, err := platform.DialTemporal(cfg.Temporal, logger)
		if err != nil {
			return nil, nil, err
		}
		queue := temporal.NewEnqueuer(c, cfg.Temporal.TaskQueue, platform.RetryPolicy(cfg.Invoicing))
		return adapters.NewObservableInvoiceQueue(queue, cfg.Temporal.TaskQueue, metrics.Messaging),
			c.Close, nil

	default:
		var (
			notifier ports.Notifier = messaging.NewLogNotifier(logger)
			subject                 = "log"
			closers  []func()
		)
		if cfg.Invoicing.NotifyViaNATS {
			conn, err := natsstan.Connect(natsConfig(cfg), logger)
			if err != nil {
				return nil, nil, err
			}
			notifier = natsstan.NewNotifier(conn, cfg.NATS.NotificationSubject)
			subject = cfg.NATS.NotificationSubject
			closers = append(closers, func() { _ = conn.Close() })
		}
		notifier = adapters.NewObservableNotifier(notifier, subject, metrics.Messaging)

		worker := platform.NewInvoiceWorker(cfg, stores, notifier, logger, metrics.Invoicing)
		pool := memory.NewPool(worker, cfg.Invoicing.Workers, cfg.Invoicing.QueueBuffer, logger)
		g.Go(func() error { return pool.Start(ctx) })

		closeAll := func() {
			pool.Close()
			for _, c := range closers {
				c()
			}
		}
		return adapters.NewObservableInvoiceQueue(pool, "memory", metrics.Messaging), closeAll, nil
	}
}

func natsConfig(cfg *config.Config) natsstan.Config {
	return natsstan.Config{
		URL:       cfg.NATS.URL,
		ClusterID: cfg.NATS.ClusterID,
		ClientID:  cfg.NATS.ClientID,
	}
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start),
		)
	})
}

func withRecovery(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(r.Context(), "panic recovered", "error", rec)
				respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
