package platform

import (
	"github.com/navi/orderflow/internal/config"
	"github.com/navi/orderflow/internal/orders/adapters"
	"github.com/navi/orderflow/internal/orders/metrics"
	"github.com/navi/orderflow/internal/orders/ports"
	"github.com/navi/orderflow/internal/payments"
	"github.com/navi/orderflow/internal/payments/fake"
	"github.com/navi/orderflow/internal/payments/stripe"
)

// NewPaymentGateway selects the processor and wraps the gateway with spans
// and latency metrics.
func NewPaymentGateway(cfg config.PaymentsConfig, customers ports.CustomerDirectory, m *metrics.Metrics) ports.PaymentGateway {
	var processor payments.Processor
	switch cfg.Provider {
	case config.PaymentProviderFake:
		processor = fake.NewProcessor()
	default:
		processor = stripe.NewProcessor(cfg.StripeSecretKey)
	}
	return adapters.NewObservablePaymentGateway(payments.NewGateway(processor, customers), m)
}
