package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

// Config captures runtime configuration shared by the api and worker binaries.
type Config struct {
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Payments  PaymentsConfig
	Invoicing InvoicingConfig
	NATS      NATSConfig
	Temporal  TemporalConfig
	Telemetry TelemetryConfig
	Service   ServiceConfig
}

type HTTPConfig struct {
	Port          int
	ShutdownGrace time.Duration
}

type DatabaseConfig struct {
	URL            string
	AutoMigrate    bool
	MigrationsPath string
}

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type StorageConfig struct {
	Backend string
}

// Payment providers.
const (
	PaymentProviderStripe = "stripe"
	PaymentProviderFake   = "fake"
)

type PaymentsConfig struct {
	Provider        string
	StripeSecretKey string
	Currency        string
}

// Invoice queue backends and document stores.
const (
	QueueMemory   = "memory"
	QueueStan     = "stan"
	QueueTemporal = "temporal"

	DocumentStorePostgres   = "postgres"
	DocumentStoreFilesystem = "filesystem"
)

type InvoicingConfig struct {
	QueueBackend   string
	Workers        int
	QueueBuffer    int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	DocumentStore  string
	DocumentDir    string
	NotifyViaNATS  bool
}

type NATSConfig struct {
	URL                 string
	ClusterID           string
	ClientID            string
	InvoiceSubject      string
	NotificationSubject string
}

type TemporalConfig struct {
	Address   string
	Namespace string
	TaskQueue string
}

type TelemetryConfig struct {
	LogLevel      string
	OTelEndpoint  string
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

const (
	defaultHTTPPort       = 8080
	defaultShutdownGrace  = 15
	defaultMigrationsPath = "migrations"
	defaultAutoMigrate    = true
	defaultCurrency       = "usd"
	defaultWorkers        = 4
	defaultQueueBuffer    = 256
	defaultMaxAttempts    = 6
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = time.Minute
	defaultDocumentDir    = "var/invoices"
	defaultNATSURL        = "nats://localhost:4222"
	defaultClusterID      = "test-cluster"
	defaultInvoiceSubject = "orders.invoices"
	defaultNotifySubject  = "invoices.created"
	defaultTemporalAddr   = "localhost:7233"
	defaultTemporalNS     = "default"
	defaultTaskQueue      = "invoices"
	defaultServiceName    = "orderflow-api"
	defaultServiceVersion = "0.1.0"
	defaultEnvironment    = "development"
	defaultLogLevel       = "info"
	defaultOTelSampleRate = 1.0
)

// Load reads configuration from environment variables, applying defaults when needed.
func Load() (*Config, error) {
	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("loading HTTP config: %w", err)
	}

	storageCfg, err := loadStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("loading storage config: %w", err)
	}

	paymentsCfg, err := loadPaymentsConfig()
	if err != nil {
		return nil, fmt.Errorf("loading payments config: %w", err)
	}

	invoicingCfg, err := loadInvoicingConfig()
	if err != nil {
		return nil, fmt.Errorf("loading invoicing config: %w", err)
	}

	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	if storageCfg.Backend == StorageMemory && invoicingCfg.QueueBackend != QueueMemory {
		return nil, fmt.Errorf("STORAGE_BACKEND=%s requires INVOICE_QUEUE_BACKEND=%s", StorageMemory, QueueMemory)
	}

	serviceCfg := loadServiceConfig()

	return &Config{
		HTTP:      httpCfg,
		Database:  loadDatabaseConfig(),
		Storage:   storageCfg,
		Payments:  paymentsCfg,
		Invoicing: invoicingCfg,
		NATS:      loadNATSConfig(serviceCfg.Name),
		Temporal:  loadTemporalConfig(),
		Telemetry: telCfg,
		Service:   serviceCfg,
	}, nil
}

func loadHTTPConfig() (HTTPConfig, error) {
	port, err := getIntEnv("API_HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return HTTPConfig{}, err
	}

	grace, err := getIntEnv("API_SHUTDOWN_GRACE_SECONDS", defaultShutdownGrace)
	if err != nil {
		return HTTPConfig{}, err
	}

	return HTTPConfig{
		Port:          port,
		ShutdownGrace: time.Duration(grace) * time.Second,
	}, nil
}

func loadDatabaseConfig() DatabaseConfig {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = buildDatabaseURL()
	}

	return DatabaseConfig{
		URL:            databaseURL,
		AutoMigrate:    getBoolEnv("AUTO_MIGRATE", defaultAutoMigrate),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath),
	}
}

func loadStorageConfig() (StorageConfig, error) {
	backend, err := getChoiceEnv("STORAGE_BACKEND", StoragePostgres, StoragePostgres, StorageMemory)
	if err != nil {
		return StorageConfig{}, err
	}
	return StorageConfig{Backend: backend}, nil
}

func loadPaymentsConfig() (PaymentsConfig, error) {
	provider, err := getChoiceEnv("PAYMENT_PROVIDER", PaymentProviderStripe, PaymentProviderStripe, PaymentProviderFake)
	if err != nil {
		return PaymentsConfig{}, err
	}

	cfg := PaymentsConfig{
		Provider:        provider,
		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		Currency:        getEnvOrDefault("PAYMENT_CURRENCY", defaultCurrency),
	}
	if cfg.Provider == PaymentProviderStripe && cfg.StripeSecretKey == "" {
		return PaymentsConfig{}, fmt.Errorf("STRIPE_SECRET_KEY is required when PAYMENT_PROVIDER=%s", PaymentProviderStripe)
	}
	return cfg, nil
}

func loadInvoicingConfig() (InvoicingConfig, error) {
	backend, err := getChoiceEnv("INVOICE_QUEUE_BACKEND", QueueMemory, QueueMemory, QueueStan, QueueTemporal)
	if err != nil {
		return InvoicingConfig{}, err
	}

	store, err := getChoiceEnv("INVOICE_DOCUMENT_STORE", DocumentStorePostgres, DocumentStorePostgres, DocumentStoreFilesystem)
	if err != nil {
		return InvoicingConfig{}, err
	}

	workers, err := getIntEnv("INVOICE_WORKERS", defaultWorkers)
	if err != nil {
		return InvoicingConfig{}, err
	}
	buffer, err := getIntEnv("INVOICE_QUEUE_BUFFER", defaultQueueBuffer)
	if err != nil {
		return InvoicingConfig{}, err
	}
	maxAttempts, err := getIntEnv("INVOICE_MAX_ATTEMPTS", defaultMaxAttempts)
	if err != nil {
		return InvoicingConfig{}, err
	}
	if maxAttempts < 1 {
		return InvoicingConfig{}, fmt.Errorf("invalid INVOICE_MAX_ATTEMPTS: must be at least 1, got %d", maxAttempts)
	}

	initial, err := getDurationEnv("INVOICE_INITIAL_BACKOFF", defaultInitialBackoff)
	if err != nil {
		return InvoicingConfig{}, err
	}
	maxBackoff, err := getDurationEnv("INVOICE_MAX_BACKOFF", defaultMaxBackoff)
	if err != nil {
		return InvoicingConfig{}, err
	}
	if initial <= 0 {
		return InvoicingConfig{}, fmt.Errorf("invalid INVOICE_INITIAL_BACKOFF: must be positive, got %s", initial)
	}
	if maxBackoff < initial {
		return InvoicingConfig{}, fmt.Errorf("invalid INVOICE_MAX_BACKOFF: %s is below INVOICE_INITIAL_BACKOFF %s", maxBackoff, initial)
	}

	return InvoicingConfig{
		QueueBackend:   backend,
		Workers:        workers,
		QueueBuffer:    buffer,
		MaxAttempts:    maxAttempts,
		InitialBackoff: initial,
		MaxBackoff:     maxBackoff,
		DocumentStore:  store,
		DocumentDir:    getEnvOrDefault("INVOICE_DOCUMENT_DIR", defaultDocumentDir),
		NotifyViaNATS:  getBoolEnv("INVOICE_NOTIFY_NATS", false),
	}, nil
}

func loadNATSConfig(serviceName string) NATSConfig {
	hostname, _ := os.Hostname()
	clientID := serviceName
	if hostname != "" {
		clientID = fmt.Sprintf("%s-%s", serviceName, hostname)
	}

	return NATSConfig{
		URL:                 getEnvOrDefault("NATS_URL", defaultNATSURL),
		ClusterID:           getEnvOrDefault("NATS_CLUSTER_ID", defaultClusterID),
		ClientID:            getEnvOrDefault("NATS_CLIENT_ID", clientID),
		InvoiceSubject:      getEnvOrDefault("NATS_INVOICE_SUBJECT", defaultInvoiceSubject),
		NotificationSubject: getEnvOrDefault("NATS_NOTIFICATION_SUBJECT", defaultNotifySubject),
	}
}

func loadTemporalConfig() TemporalConfig {
	return TemporalConfig{
		Address:   getEnvOrDefault("TEMPORAL_ADDRESS", defaultTemporalAddr),
		Namespace: getEnvOrDefault("TEMPORAL_NAMESPACE", defaultTemporalNS),
		TaskQueue: getEnvOrDefault("TEMPORAL_TASK_QUEUE", defaultTaskQueue),
	}
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	sampleRate := defaultOTelSampleRate
	if value, ok := os.LookupEnv("OTEL_SAMPLE_RATE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %w", err)
		}
		sampleRate = parsed
	}

	return TelemetryConfig{
		LogLevel:      getEnvOrDefault("LOG_LEVEL", defaultLogLevel),
		OTelEndpoint:  getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		EnableTracing: getBoolEnv("OTEL_ENABLE_TRACING", true),
		EnableMetrics: getBoolEnv("OTEL_ENABLE_METRICS", true),
		SampleRate:    sampleRate,
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        getEnvOrDefault("API_SERVICE_NAME", defaultServiceName),
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
	}
}

func buildDatabaseURL() string {
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := getEnvOrDefault("DB_PASSWORD", "postgres")
	dbName := getEnvOrDefault("DB_NAME", "orderflow")
	sslMode := getEnvOrDefault("DB_SSLMODE", "disable")

	maxConns := getEnvOrDefault("DB_MAX_CONNS", "25")
	minConns := getEnvOrDefault("DB_MIN_CONNS", "5")
	maxLifetime := getEnvOrDefault("DB_MAX_CONN_LIFETIME", "5m")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&pool_max_conns=%s&pool_min_conns=%s&pool_max_conn_lifetime=%s",
		user, password, host, port, dbName, sslMode, maxConns, minConns, maxLifetime,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return value == "true"
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getChoiceEnv(key, defaultValue string, allowed ...string) (string, error) {
	value := getEnvOrDefault(key, defaultValue)
	if !slices.Contains(allowed, value) {
		return "", fmt.Errorf("invalid %s: %q is not one of %v", key, value, allowed)
	}
	return value, nil
}
