package platform

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/navi/orderflow/internal/database"
	"github.com/navi/orderflow/internal/invoicing"
	"github.com/navi/orderflow/internal/messaging"
	httpadapter "github.com/navi/orderflow/internal/orders/adapters/http"
	ordermetrics "github.com/navi/orderflow/internal/orders/metrics"
)

// Metrics holds every instrument set the binaries register.
type Metrics struct {
	Database  *database.Metrics
	Orders    *ordermetrics.Metrics
	HTTP      *httpadapter.Metrics
	Messaging *messaging.Metrics
	Invoicing *invoicing.Metrics
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.Database, err = database.NewMetrics(meter); err != nil {
		return nil, fmt.Errorf("database metrics: %w", err)
	}
	if m.Orders, err = ordermetrics.NewMetrics(meter); err != nil {
		return nil, fmt.Errorf("order metrics: %w", err)
	}
	if m.HTTP, err = httpadapter.NewMetrics(meter); err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}
	if m.Messaging, err = messaging.NewMetrics(meter); err != nil {
		return nil, fmt.Errorf("messaging metrics: %w", err)
	}
	if m.Invoicing, err = invoicing.NewMetrics(meter); err != nil {
		return nil, fmt.Errorf("invoicing metrics: %w", err)
	}
	return &m, nil
}
