package platform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navi/orderflow/internal/config"
	"github.com/navi/orderflow/internal/database"
	idemmemory "github.com/navi/orderflow/internal/idempotency/memory"
	idempostgres "github.com/navi/orderflow/internal/idempotency/postgres"
	"github.com/navi/orderflow/internal/invoicing/filestore"
	"github.com/navi/orderflow/internal/orders/adapters"
	ordersmemory "github.com/navi/orderflow/internal/orders/adapters/memory"
	orderspostgres "github.com/navi/orderflow/internal/orders/adapters/postgres"
	"github.com/navi/orderflow/internal/orders/ports"
)

// Stores is every persistence-backed port, resolved for one storage backend.
type Stores struct {
	Orders       ports.OrderRepository
	Invoices     ports.InvoiceRepository
	Documents    ports.DocumentStore
	Catalog      ports.CatalogReader
	Identities   ports.IdentityResolver
	Destinations ports.DestinationDirectory
	Customers    ports.CustomerDirectory
	Idempotency  ports.IdempotencyStore

	// Pool is nil for the memory backend.
	Pool *pgxpool.Pool
}

// OpenStores connects the configured backend and runs migrations when asked.
func OpenStores(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *database.Metrics) (*Stores, error) {
	var stores *Stores
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		stores = newMemoryStores(logger)
	default:
		var err error
		stores, err = openPostgresStores(ctx, cfg.Database, logger, metrics)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Invoicing.DocumentStore == config.DocumentStoreFilesystem {
		files, err := filestore.New(cfg.Invoicing.DocumentDir)
		if err != nil {
			stores.Close()
			return nil, fmt.Errorf("open invoice document directory: %w", err)
		}
		stores.Documents = files
	}

	stores.Orders = adapters.NewObservableRepository(stores.Orders, metrics)
	return stores, nil
}

func openPostgresStores(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger, metrics *database.Metrics) (*Stores, error) {
	pool, err := database.NewPool(ctx, database.PoolConfig{URL: cfg.URL})
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	if cfg.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.MigrationsPath)
		if err := database.RunMigrations(cfg.URL, cfg.MigrationsPath); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations completed successfully")
	}

	directory := orderspostgres.NewDirectory(pool)
	return &Stores{
		Orders:       orderspostgres.NewRepository(pool),
		Invoices:     orderspostgres.NewInvoiceRepository(pool, metrics),
		Documents:    orderspostgres.NewDocumentStore(pool),
		Catalog:      orderspostgres.NewCatalog(pool),
		Identities:   directory,
		Destinations: directory,
		Customers:    directory,
		Idempotency:  idempostgres.NewStore(pool),
		Pool:         pool,
	}, nil
}

func newMemoryStores(logger *slog.Logger) *Stores {
	catalog := ordersmemory.NewCatalog()
	directory := ordersmemory.NewDirectory()
	SeedDevData(catalog, directory)
	logger.Warn("using in-memory storage; data is lost on restart",
		"operator_token", devOperatorToken,
		"customer_token", devCustomerToken,
	)

	return &Stores{
		Orders:       ordersmemory.NewRepository(),
		Invoices:     ordersmemory.NewInvoiceRepository(),
		Documents:    ordersmemory.NewDocumentStore(),
		Catalog:      catalog,
		Identities:   directory,
		Destinations: directory,
		Customers:    directory,
		Idempotency:  idemmemory.NewStore(),
	}
}

// Ready reports whether the backing database answers. The memory backend is
// always ready.
func (s *Stores) Ready(ctx context.Context) error {
	if s.Pool == nil {
		return nil
	}
	return database.CheckHealth(ctx, s.Pool)
}

func (s *Stores) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}
