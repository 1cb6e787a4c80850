package adapters

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/metrics"
	"github.com/navi/orderflow/internal/orders/ports"
	"github.com/navi/orderflow/internal/telemetry"
)

type ObservablePaymentGateway struct {
	gateway ports.PaymentGateway
	metrics *metrics.Metrics
}

func NewObservablePaymentGateway(gateway ports.PaymentGateway, metrics *metrics.Metrics) *ObservablePaymentGateway {
	return &ObservablePaymentGateway{gateway: gateway, metrics: metrics}
}

func (g *ObservablePaymentGateway) Authorize(ctx context.Context, req ports.AuthorizeRequest) (string, domain.Payment, error) {
	var (
		secret  string
		payment domain.Payment
	)
	err := g.observe(ctx, "authorize", func(ctx context.Context) error {
		var err error
		secret, payment, err = g.gateway.Authorize(ctx, req)
		return err
	},
		attribute.String("order.id", req.OrderID),
		attribute.Int64("payment.amount_cents", req.AmountCents),
		attribute.String("payment.currency", req.Currency),
	)
	return secret, payment, err
}

func (g *ObservablePaymentGateway) Capture(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	var captured domain.Payment
	err := g.observe(ctx, "capture", func(ctx context.Context) error {
		var err error
		captured, err = g.gateway.Capture(ctx, p)
		return err
	}, attribute.String("payment.id", p.ID), attribute.String("payment.intent_id", p.GatewayIntentID))
	return captured, err
}

func (g *ObservablePaymentGateway) Cancel(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	var canceled domain.Payment
	err := g.observe(ctx, "cancel", func(ctx context.Context) error {
		var err error
		canceled, err = g.gateway.Cancel(ctx, p)
		return err
	}, attribute.String("payment.id", p.ID), attribute.String("payment.intent_id", p.GatewayIntentID))
	return canceled, err
}

func (g *ObservablePaymentGateway) observe(ctx context.Context, op string, call func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := telemetry.StartSpan(ctx, "PaymentGateway."+op)
	defer span.End()

	telemetry.AddSpanAttributes(span, attrs...)

	start := time.Now()
	err := call(ctx)
	g.metrics.RecordGatewayRequest(ctx, op, time.Since(start).Seconds(), err == nil)

	if err != nil {
		var gwErr *domain.GatewayError
		if errors.As(err, &gwErr) && gwErr.Code != "" {
			telemetry.AddSpanAttributes(span, attribute.String("payment.error_code", gwErr.Code))
		}
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
