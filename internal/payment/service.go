package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/internal/orders"
	"github.com/HaDo2003/DTechAPI-sub002/internal/products"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/config"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
	pkgerrors "github.com/HaDo2003/DTechAPI-sub002/pkg/errors"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/logger"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/metrics"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/outbox"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Outcome is what the storefront gets back after a callback, duplicate or
// not. It carries the public order number only.
type Outcome struct {
	OrderNumber  string `json:"order_number"`
	Paid         bool   `json:"paid"`
	Duplicate    bool   `json:"-"`
	RedirectPath string `json:"redirect_path"`
}

// Service reconciles gateway callbacks against pending orders and rebuilds
// redirect URLs for orders still awaiting payment.
type Service interface {
	HandleCallback(ctx context.Context, cb Callback) (*Outcome, error)
	RedirectURLForOrder(ctx context.Context, customerID, orderID uuid.UUID) (string, error)
}

type service struct {
	tx         txRunner
	gateway    *Gateway
	payments   PaymentRepository
	ordersRepo orders.OrderRepository
	outbox     outboxPublisher
	cfg        config.GatewayConfig
	logg       *logger.Logger
	checkout   *metrics.CheckoutMetrics
	now        func() time.Time
}

func NewService(
	tx txRunner,
	gateway *Gateway,
	payments PaymentRepository,
	ordersRepo orders.OrderRepository,
	publisher outboxPublisher,
	cfg config.GatewayConfig,
	logg *logger.Logger,
	checkout *metrics.CheckoutMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway adapter required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:         tx,
		gateway:    gateway,
		payments:   payments,
		ordersRepo: ordersRepo,
		outbox:     publisher,
		cfg:        cfg,
		logg:       logg,
		checkout:   checkout,
		now:        time.Now,
	}, nil
}

// HandleCallback applies a gateway notification exactly once. Redelivered
// callbacks get the recorded outcome back, never a second state transition.
func (s *service) HandleCallback(ctx context.Context, cb Callback) (*Outcome, error) {
	if !s.gateway.VerifyCallback(cb) {
		s.incCallback("rejected")
		if s.logg != nil {
			s.logg.Warn(ctx, "gateway callback with invalid signature")
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid callback signature")
	}
	orderID, err := ParseOrderRef(cb.OrderRef)
	if err != nil {
		s.incCallback("rejected")
		return nil, err
	}

	var outcome *Outcome
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)
		payRepo := s.payments.WithTx(tx)

		order, err := ordersRepo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Payment == nil || order.Payment.Method != enums.PaymentMethodGateway {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no gateway payment")
		}
		if cb.Amount != order.Payment.AmountCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "callback amount mismatch")
		}

		if cb.ResultCode == ResultCodeSuccess {
			outcome, err = s.applySuccess(ctx, tx, ordersRepo, payRepo, order, cb)
		} else {
			outcome, err = s.applyFailure(ctx, tx, ordersRepo, payRepo, order, cb)
		}
		return err
	})
	if err != nil {
		s.incCallback("rejected")
		return nil, err
	}

	switch {
	case outcome.Duplicate:
		s.incCallback("duplicate")
	case outcome.Paid:
		s.incCallback("paid")
	default:
		s.incCallback("failed")
	}
	return outcome, nil
}

func (s *service) applySuccess(ctx context.Context, tx *gorm.DB, ordersRepo orders.OrderRepository, payRepo PaymentRepository, order *models.Order, cb Callback) (*Outcome, error) {
	affected, err := payRepo.Settle(ctx, order.ID, cb.ExternalRef, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle payment")
	}
	if affected == 0 {
		return s.recordedOutcome(ctx, payRepo, order)
	}

	if _, err := ordersRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusPaid); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderPaidEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			CustomerID:  order.CustomerID,
			AmountCents: order.Payment.AmountCents,
			ExternalRef: cb.ExternalRef,
			SettledAt:   s.now(),
		},
		Version: 1,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	return &Outcome{
		OrderNumber:  order.OrderNumber,
		Paid:         true,
		RedirectPath: s.cfg.SuccessPage,
	}, nil
}

func (s *service) applyFailure(ctx context.Context, tx *gorm.DB, ordersRepo orders.OrderRepository, payRepo PaymentRepository, order *models.Order, cb Callback) (*Outcome, error) {
	reason := cb.Reason
	if reason == "" {
		reason = "gateway result " + cb.ResultCode
	}
	affected, err := payRepo.Fail(ctx, order.ID, reason)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payment")
	}
	if affected == 0 {
		return s.recordedOutcome(ctx, payRepo, order)
	}

	if _, err := ordersRepo.MarkCancelled(ctx, order.ID, enums.OrderStatusPending, s.now()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	catalog := products.NewRepository(tx)
	for _, line := range order.Items {
		if err := catalog.Restock(ctx, line.ProductID, line.Quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock cancelled order")
		}
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderPaymentFailed,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderPaymentFailedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			CustomerID:  order.CustomerID,
			Reason:      reason,
		},
		Version: 1,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	return &Outcome{
		OrderNumber:  order.OrderNumber,
		Paid:         false,
		RedirectPath: s.cfg.FailurePage,
	}, nil
}

// recordedOutcome replays the stored result for a duplicate delivery.
func (s *service) recordedOutcome(ctx context.Context, payRepo PaymentRepository, order *models.Order) (*Outcome, error) {
	payment, err := payRepo.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	paid := payment.Status == enums.PaymentStatusAuthorized
	path := s.cfg.FailurePage
	if paid {
		path = s.cfg.SuccessPage
	}
	return &Outcome{
		OrderNumber:  order.OrderNumber,
		Paid:         paid,
		Duplicate:    true,
		RedirectPath: path,
	}, nil
}

// RedirectURLForOrder rebuilds the payment URL for an order still awaiting
// payment, so an interrupted redirect never forces a second order.
func (s *service) RedirectURLForOrder(ctx context.Context, customerID, orderID uuid.UUID) (string, error) {
	if customerID == uuid.Nil || orderID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "customer id and order id are required")
	}
	order, err := s.ordersRepo.FindByIDForCustomer(ctx, orderID, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusPending ||
		order.Payment == nil ||
		order.Payment.Method != enums.PaymentMethodGateway ||
		order.Payment.Status != enums.PaymentStatusPending {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting gateway payment")
	}
	return s.gateway.RedirectURL(order)
}

func (s *service) incCallback(outcome string) {
	if s.checkout != nil {
		s.checkout.IncCallback(outcome)
	}
}
