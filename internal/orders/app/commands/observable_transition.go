package commands

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/metrics"
	"github.com/navi/orderflow/internal/telemetry"
)

type ObservableCancelOrderHandler struct {
	handler CancelOrderHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCancelOrderHandler(handler CancelOrderHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCancelOrderHandler {
	return &ObservableCancelOrderHandler{handler: handler, logger: logger, metrics: metrics}
}

func (o *ObservableCancelOrderHandler) Handle(ctx context.Context, cmd CancelOrderCommand) (*TransitionResult, error) {
	return observeTransition(ctx, o.logger, o.metrics, domain.ActionCancel, cmd.OrderID, cmd.Caller.ID, func(ctx context.Context) (*TransitionResult, error) {
		return o.handler.Handle(ctx, cmd)
	})
}

type ObservableDispatchOrderHandler struct {
	handler DispatchOrderHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableDispatchOrderHandler(handler DispatchOrderHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableDispatchOrderHandler {
	return &ObservableDispatchOrderHandler{handler: handler, logger: logger, metrics: metrics}
}

func (o *ObservableDispatchOrderHandler) Handle(ctx context.Context, cmd DispatchOrderCommand) (*TransitionResult, error) {
	return observeTransition(ctx, o.logger, o.metrics, domain.ActionDispatch, cmd.OrderID, cmd.Caller.ID, func(ctx context.Context) (*TransitionResult, error) {
		return o.handler.Handle(ctx, cmd)
	})
}

type ObservableCompleteOrderHandler struct {
	handler CompleteOrderHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCompleteOrderHandler(handler CompleteOrderHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCompleteOrderHandler {
	return &ObservableCompleteOrderHandler{handler: handler, logger: logger, metrics: metrics}
}

func (o *ObservableCompleteOrderHandler) Handle(ctx context.Context, cmd CompleteOrderCommand) (*TransitionResult, error) {
	return observeTransition(ctx, o.logger, o.metrics, domain.ActionComplete, cmd.OrderID, cmd.Caller.ID, func(ctx context.Context) (*TransitionResult, error) {
		return o.handler.Handle(ctx, cmd)
	})
}

func observeTransition(
	ctx context.Context,
	logger *slog.Logger,
	m *metrics.Metrics,
	action domain.Action,
	orderID, actor string,
	handle func(context.Context) (*TransitionResult, error),
) (*TransitionResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderTransition."+string(action))
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", orderID),
		attribute.String("order.action", string(action)),
		attribute.String("actor.id", actor),
	)

	result, err := handle(ctx)

	switch {
	case err == nil && result.AlreadyApplied:
		m.RecordTransition(ctx, string(action), metrics.OutcomeAlreadyApplied)
		logger.InfoContext(ctx, "order already in target status",
			"order_id", orderID,
			"action", action,
			"status", result.Order.Status,
		)
	case err == nil:
		m.RecordTransition(ctx, string(action), metrics.OutcomeApplied)
		logger.InfoContext(ctx, "order transitioned",
			"order_id", orderID,
			"action", action,
			"status", result.Order.Status,
			"actor", actor,
		)
	case errors.Is(err, ErrInvoiceEnqueue):
		// The transition itself committed.
		m.RecordTransition(ctx, string(action), metrics.OutcomeApplied)
		m.RecordInvoiceEnqueueFailure(ctx)
		telemetry.AddSpanEvent(span, "invoice.enqueue_failed", attribute.String("error", err.Error()))
		logger.ErrorContext(ctx, "invoice job not enqueued",
			"error", err,
			"order_id", orderID,
			"alert", true,
		)
		telemetry.SetSpanSuccess(span)
		return result, err
	case errors.Is(err, domain.ErrStateConflict), errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrValidation):
		m.RecordTransition(ctx, string(action), metrics.OutcomeRejected)
		telemetry.RecordSpanError(span, err)
		logger.WarnContext(ctx, "order transition rejected",
			"error", err,
			"order_id", orderID,
			"action", action,
		)
		return result, err
	default:
		m.RecordTransition(ctx, string(action), metrics.OutcomeError)
		telemetry.RecordSpanError(span, err)
		logger.ErrorContext(ctx, "order transition failed",
			"error", err,
			"order_id", orderID,
			"action", action,
		)
		return result, err
	}

	telemetry.AddSpanAttributes(span, attribute.String("order.status", string(result.Order.Status)))
	telemetry.SetSpanSuccess(span)
	return result, nil
}
