package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/internal/orders"
	"github.com/HaDo2003/DTechAPI-sub002/internal/payment"
	"github.com/HaDo2003/DTechAPI-sub002/internal/products"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/logger"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/metrics"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/outbox"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/outbox/payloads"
)

const (
	orderTTLBatchSize      = 100
	orderTTLFailReason     = "payment window expired"
	defaultPendingOrderTTL = 24 * time.Hour
)

// OrderTTLJobParams configure the stale gateway-order sweep.
type OrderTTLJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Orders   orders.OrderRepository
	Payments payment.PaymentRepository
	Outbox   outboxEmitter
	Metrics  *metrics.CronJobMetrics
	TTL      time.Duration
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// NewOrderTTLJob builds the sweep that cancels gateway orders whose payment
// never arrived, returning their reserved stock.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	return &orderTTLJob{
		logg:     params.Logger,
		db:       params.DB,
		orders:   params.Orders,
		payments: params.Payments,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

type orderTTLJob struct {
	logg     *logger.Logger
	db       txRunner
	orders   orders.OrderRepository
	payments payment.PaymentRepository
	outbox   outboxEmitter
	metrics  *metrics.CronJobMetrics
	ttl      time.Duration
	now      func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.orders.FindGatewayPendingBefore(ctx, cutoff, orderTTLBatchSize)
	if err != nil {
		return fmt.Errorf("query stale gateway orders: %w", err)
	}
	cancelled := int64(0)
	for _, order := range stale {
		done, err := j.cancelOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("cancel order %s: %w", order.OrderNumber, err)
		}
		if done {
			cancelled++
		}
	}
	j.metrics.AddRowsAffected(j.Name(), cancelled)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(stale),
		"cancelled":  cancelled,
	})
	j.logg.Info(logCtx, "stale order sweep complete")
	return nil
}

// cancelOrder fails the payment first. A callback that settled between the
// query and this transaction wins the compare-and-swap and the order is left
// alone.
func (j *orderTTLJob) cancelOrder(ctx context.Context, order models.Order) (bool, error) {
	cancelled := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		failed, err := j.payments.WithTx(tx).Fail(ctx, order.ID, orderTTLFailReason)
		if err != nil {
			return err
		}
		if failed == 0 {
			return nil
		}
		now := j.now().UTC()
		rows, err := j.orders.WithTx(tx).MarkCancelled(ctx, order.ID, enums.OrderStatusPending, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		productsRepo := products.NewRepository(tx)
		for _, line := range order.Items {
			if err := productsRepo.Restock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				CancelledAt: now,
				Reason:      orderTTLFailReason,
			},
		}
		if err := j.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
		cancelled = true
		return nil
	})
	return cancelled, err
}
