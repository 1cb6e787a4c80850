package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PAYMENT_PROVIDER", PaymentProviderFake)
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTP.Port != 8080 {
		t.Errorf("HTTP.Port = %d, want 8080", cfg.HTTP.Port)
	}
	if cfg.HTTP.ShutdownGrace != 15*time.Second {
		t.Errorf("HTTP.ShutdownGrace = %v, want 15s", cfg.HTTP.ShutdownGrace)
	}
	if cfg.Storage.Backend != StoragePostgres {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, StoragePostgres)
	}
	if cfg.Invoicing.QueueBackend != QueueMemory {
		t.Errorf("Invoicing.QueueBackend = %q, want %q", cfg.Invoicing.QueueBackend, QueueMemory)
	}
	if cfg.Invoicing.MaxAttempts != 6 {
		t.Errorf("Invoicing.MaxAttempts = %d, want 6", cfg.Invoicing.MaxAttempts)
	}
	if cfg.Invoicing.InitialBackoff != time.Second || cfg.Invoicing.MaxBackoff != time.Minute {
		t.Errorf("backoff = %v..%v, want 1s..1m", cfg.Invoicing.InitialBackoff, cfg.Invoicing.MaxBackoff)
	}
	if cfg.Payments.Currency != "usd" {
		t.Errorf("Payments.Currency = %q, want usd", cfg.Payments.Currency)
	}
	if !strings.Contains(cfg.Database.URL, "/orderflow?") {
		t.Errorf("Database.URL = %q, want the orderflow database", cfg.Database.URL)
	}
	if cfg.Temporal.TaskQueue != "invoices" {
		t.Errorf("Temporal.TaskQueue = %q, want invoices", cfg.Temporal.TaskQueue)
	}
	if !strings.HasPrefix(cfg.NATS.ClientID, cfg.Service.Name) {
		t.Errorf("NATS.ClientID = %q, want prefix %q", cfg.NATS.ClientID, cfg.Service.Name)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PAYMENT_PROVIDER", PaymentProviderStripe)
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	t.Setenv("STORAGE_BACKEND", StoragePostgres)
	t.Setenv("INVOICE_QUEUE_BACKEND", QueueTemporal)
	t.Setenv("INVOICE_DOCUMENT_STORE", DocumentStoreFilesystem)
	t.Setenv("INVOICE_MAX_ATTEMPTS", "3")
	t.Setenv("INVOICE_INITIAL_BACKOFF", "250ms")
	t.Setenv("API_SHUTDOWN_GRACE_SECONDS", "2")
	t.Setenv("NATS_CLIENT_ID", "worker-1")
	t.Setenv("AUTO_MIGRATE", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.URL != "postgres://u:p@db:5432/x" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
	if cfg.Database.AutoMigrate {
		t.Error("Database.AutoMigrate = true, want false")
	}
	if cfg.Invoicing.QueueBackend != QueueTemporal || cfg.Invoicing.DocumentStore != DocumentStoreFilesystem {
		t.Errorf("Invoicing = %+v", cfg.Invoicing)
	}
	if cfg.Invoicing.MaxAttempts != 3 || cfg.Invoicing.InitialBackoff != 250*time.Millisecond {
		t.Errorf("Invoicing retry = %d / %v", cfg.Invoicing.MaxAttempts, cfg.Invoicing.InitialBackoff)
	}
	if cfg.HTTP.ShutdownGrace != 2*time.Second {
		t.Errorf("HTTP.ShutdownGrace = %v", cfg.HTTP.ShutdownGrace)
	}
	if cfg.NATS.ClientID != "worker-1" {
		t.Errorf("NATS.ClientID = %q", cfg.NATS.ClientID)
	}
	if cfg.Payments.StripeSecretKey != "sk_test_123" {
		t.Errorf("Payments.StripeSecretKey = %q", cfg.Payments.StripeSecretKey)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "non numeric port",
			env:     map[string]string{"API_HTTP_PORT": "http"},
			wantErr: "API_HTTP_PORT",
		},
		{
			name:    "unknown queue backend",
			env:     map[string]string{"INVOICE_QUEUE_BACKEND": "kafka"},
			wantErr: "INVOICE_QUEUE_BACKEND",
		},
		{
			name:    "bad backoff duration",
			env:     map[string]string{"INVOICE_MAX_BACKOFF": "soon"},
			wantErr: "INVOICE_MAX_BACKOFF",
		},
		{
			name:    "initial backoff above max",
			env:     map[string]string{"INVOICE_INITIAL_BACKOFF": "2m"},
			wantErr: "INVOICE_MAX_BACKOFF",
		},
		{
			name:    "non positive initial backoff",
			env:     map[string]string{"INVOICE_INITIAL_BACKOFF": "0s"},
			wantErr: "INVOICE_INITIAL_BACKOFF",
		},
		{
			name:    "zero attempts",
			env:     map[string]string{"INVOICE_MAX_ATTEMPTS": "0"},
			wantErr: "INVOICE_MAX_ATTEMPTS",
		},
		{
			name:    "stripe without key",
			env:     map[string]string{"PAYMENT_PROVIDER": PaymentProviderStripe, "STRIPE_SECRET_KEY": ""},
			wantErr: "STRIPE_SECRET_KEY",
		},
		{
			name:    "memory storage with external queue",
			env:     map[string]string{"STORAGE_BACKEND": StorageMemory, "INVOICE_QUEUE_BACKEND": QueueStan},
			wantErr: "STORAGE_BACKEND",
		},
		{
			name:    "bad sample rate",
			env:     map[string]string{"OTEL_SAMPLE_RATE": "half"},
			wantErr: "OTEL_SAMPLE_RATE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PAYMENT_PROVIDER", PaymentProviderFake)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
