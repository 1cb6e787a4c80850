// Package platform assembles the process-level pieces shared by the api and
// worker binaries: telemetry, storage backends and the invoice worker.
package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/navi/orderflow/internal/config"
	"github.com/navi/orderflow/internal/telemetry"
)

// NewObservability builds the JSON logger and installs the global tracer and
// meter providers. The logger is also made the slog default.
func NewObservability(ctx context.Context, cfg *config.Config) (*slog.Logger, *telemetry.Telemetry, error) {
	level, err := telemetry.ParseLevel(cfg.Telemetry.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}

	logger := telemetry.NewLogger(os.Stdout, level).With(
		"service", cfg.Service.Name,
		"version", cfg.Service.Version,
	)
	slog.SetDefault(logger)

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	return logger, tel, nil
}
