package adapters

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/navi/orderflow/internal/database"
	"github.com/navi/orderflow/internal/orders/domain"
	"github.com/navi/orderflow/internal/orders/ports"
	"github.com/navi/orderflow/internal/telemetry"
)

type ObservableRepository struct {
	repo    ports.OrderRepository
	metrics *database.Metrics
}

func NewObservableRepository(repo ports.OrderRepository, metrics *database.Metrics) *ObservableRepository {
	return &ObservableRepository{
		repo:    repo,
		metrics: metrics,
	}
}

func (r *ObservableRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo ports.OrderRepository) error) error {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.WithinTx")
	defer span.End()

	start := time.Now()
	err := r.repo.WithinTx(ctx, func(ctx context.Context, tx ports.OrderRepository) error {
		return fn(ctx, &ObservableRepository{repo: tx, metrics: r.metrics})
	})
	r.metrics.RecordQuery(ctx, "transaction", time.Since(start).Seconds())
	r.metrics.RecordTransaction(ctx, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}
	telemetry.SetSpanSuccess(span)
	return nil
}

func (r *ObservableRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	return r.observe(ctx, "OrderRepository.CreateOrder", "insert_order", func(ctx context.Context) error {
		return r.repo.CreateOrder(ctx, order)
	}, attribute.String("order.id", order.ID))
}

func (r *ObservableRepository) AddItem(ctx context.Context, item domain.OrderItem) error {
	return r.observe(ctx, "OrderRepository.AddItem", "insert_order_item", func(ctx context.Context) error {
		return r.repo.AddItem(ctx, item)
	}, attribute.String("order.id", item.OrderID), attribute.String("order_item.id", item.ID))
}

func (r *ObservableRepository) AddCustomization(ctx context.Context, c domain.OrderCustomization) error {
	return r.observe(ctx, "OrderRepository.AddCustomization", "insert_order_customization", func(ctx context.Context) error {
		return r.repo.AddCustomization(ctx, c)
	}, attribute.String("order_item.id", c.OrderItemID))
}

func (r *ObservableRepository) CreatePayment(ctx context.Context, p domain.Payment) error {
	return r.observe(ctx, "OrderRepository.CreatePayment", "insert_payment", func(ctx context.Context) error {
		return r.repo.CreatePayment(ctx, p)
	}, attribute.String("payment.id", p.ID))
}

func (r *ObservableRepository) UpdatePayment(ctx context.Context, p domain.Payment) error {
	return r.observe(ctx, "OrderRepository.UpdatePayment", "update_payment", func(ctx context.Context) error {
		return r.repo.UpdatePayment(ctx, p)
	}, attribute.String("payment.id", p.ID), attribute.String("payment.status", string(p.Status)))
}

func (r *ObservableRepository) AttachPayment(ctx context.Context, orderID, paymentID string) error {
	return r.observe(ctx, "OrderRepository.AttachPayment", "attach_payment", func(ctx context.Context) error {
		return r.repo.AttachPayment(ctx, orderID, paymentID)
	}, attribute.String("order.id", orderID), attribute.String("payment.id", paymentID))
}

func (r *ObservableRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var order *domain.Order
	err := r.observe(ctx, "OrderRepository.GetByID", "get_order_by_id", func(ctx context.Context) error {
		var err error
		order, err = r.repo.GetByID(ctx, id)
		return err
	}, attribute.String("order.id", id))
	return order, err
}

func (r *ObservableRepository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	var order *domain.Order
	err := r.observe(ctx, "OrderRepository.GetForUpdate", "get_order_for_update", func(ctx context.Context) error {
		var err error
		order, err = r.repo.GetForUpdate(ctx, id)
		return err
	}, attribute.String("order.id", id))
	return order, err
}

func (r *ObservableRepository) UpdateFulfillment(ctx context.Context, order domain.Order, expected domain.OrderStatus) error {
	return r.observe(ctx, "OrderRepository.UpdateFulfillment", "update_order_fulfillment", func(ctx context.Context) error {
		return r.repo.UpdateFulfillment(ctx, order, expected)
	},
		attribute.String("order.id", order.ID),
		attribute.String("order.new_status", string(order.Status)),
		attribute.String("order.expected_status", string(expected)),
	)
}

func (r *ObservableRepository) observe(ctx context.Context, spanName, operation string, call func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	telemetry.AddSpanAttributes(span, append(attrs, attribute.String("operation", operation))...)

	start := time.Now()
	err := call(ctx)
	r.metrics.RecordQuery(ctx, operation, time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
