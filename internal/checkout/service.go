package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/internal/cart"
	"github.com/HaDo2003/DTechAPI-sub002/internal/checkout/reservation"
	"github.com/HaDo2003/DTechAPI-sub002/internal/coupon"
	"github.com/HaDo2003/DTechAPI-sub002/internal/orders"
	"github.com/HaDo2003/DTechAPI-sub002/internal/pricing"
	"github.com/HaDo2003/DTechAPI-sub002/internal/products"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/config"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/db"
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

type cartSource interface {
	Get(ctx context.Context, customerID uuid.UUID) (*cart.View, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
}

type couponEngine interface {
	Validate(ctx context.Context, code string, customerID uuid.UUID, snapshot coupon.Snapshot) (*coupon.Quote, error)
	Redeem(ctx context.Context, tx *gorm.DB, quote *coupon.Quote, customerID, orderID uuid.UUID) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type redirectBuilder interface {
	RedirectURL(order *models.Order) (string, error)
}

type stockReserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.StockReservationRequest) ([]reservation.StockReservationResult, error)
}

type reservationEngine struct{}

func (reservationEngine) Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.StockReservationRequest) ([]reservation.StockReservationResult, error) {
	return reservation.ReserveStock(ctx, tx, requests)
}

// Service turns a priced basket into a settled order. Everything inside
// PlaceOrder either commits as a whole or leaves no trace.
type Service interface {
	PlaceOrder(ctx context.Context, customerID uuid.UUID, draft Draft) (*Result, error)
}

type service struct {
	tx         txRunner
	cartSvc    cartSource
	couponSvc  couponEngine
	ordersRepo orders.OrderRepository
	reserve    stockReserver
	outbox     outboxPublisher
	gateway    redirectBuilder
	cfg        config.CheckoutConfig
	logg       *logger.Logger
	checkout   *metrics.CheckoutMetrics
	now        func() time.Time
}

// NewService builds the settlement coordinator.
func NewService(
	tx txRunner,
	cartSvc cartSource,
	couponSvc couponEngine,
	ordersRepo orders.OrderRepository,
	publisher outboxPublisher,
	gateway redirectBuilder,
	cfg config.CheckoutConfig,
	logg *logger.Logger,
	checkout *metrics.CheckoutMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway adapter required")
	}
	return &service{
		tx:         tx,
		cartSvc:    cartSvc,
		couponSvc:  couponSvc,
		ordersRepo: ordersRepo,
		reserve:    reservationEngine{},
		outbox:     publisher,
		gateway:    gateway,
		cfg:        cfg,
		logg:       logg,
		checkout:   checkout,
		now:        time.Now,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, customerID uuid.UUID, draft Draft) (*Result, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	lines, err := s.resolveLines(ctx, customerID, draft)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	attempts := s.cfg.OrderNumberRetries
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		order, err = s.settle(ctx, customerID, draft, lines)
		if err == nil {
			break
		}
		if !isOrderNumberConflict(err) {
			return nil, err
		}
	}
	if err != nil {
		if isOrderNumberConflict(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settlement failed")
		}
		return nil, err
	}

	s.afterCommit(ctx, customerID, draft, order)

	result := &Result{Order: order}
	if draft.PaymentMethod == enums.PaymentMethodGateway {
		url, err := s.gateway.RedirectURL(order)
		if err != nil {
			// The order stands; the storefront regenerates the URL through
			// the payment-url endpoint instead of re-placing the order.
			if s.logg != nil {
				s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "build gateway redirect url", err)
			}
		} else {
			result.PaymentURL = url
		}
	}
	return result, nil
}

// settle runs one full settlement attempt in a single transaction.
func (s *service) settle(ctx context.Context, customerID uuid.UUID, draft Draft, lines []draftLine) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalog := products.NewRepository(tx)

		ids := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.productID)
		}
		priced, err := catalog.FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}

		requests := make([]reservation.StockReservationRequest, 0, len(lines))
		for _, line := range lines {
			product, ok := priced[line.productID]
			if !ok || !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"product_id": line.productID})
			}
			requests = append(requests, reservation.StockReservationRequest{
				LineID:    line.lineID,
				ProductID: line.productID,
				Qty:       line.quantity,
			})
		}

		results, err := s.reserve.Reserve(ctx, tx, requests)
		if err != nil {
			return err
		}
		for _, res := range results {
			if res.Reserved {
				continue
			}
			if res.Reason == "product not found" || res.Reason == "product unavailable" {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"product_id": res.ProductID})
			}
			return pkgerrors.New(pkgerrors.CodeOutOfStock, res.Reason).
				WithDetails(map[string]any{"product_id": res.ProductID})
		}

		now := s.now()
		orderLines := make([]models.OrderLine, 0, len(lines))
		var subtotal int64
		var totalQty int
		for _, line := range lines {
			product := priced[line.productID]
			quote, lineTotal := pricing.QuoteLine(product, line.quantity, now)
			orderLines = append(orderLines, models.OrderLine{
				ProductID:      product.ID,
				ProductName:    product.Name,
				SKU:            product.SKU,
				Color:          line.color,
				Quantity:       line.quantity,
				UnitPriceCents: quote.FinalUnitPriceCents,
				LineTotalCents: lineTotal,
			})
			subtotal += lineTotal
			totalQty += line.quantity
		}

		var discount int64
		var quote *coupon.Quote
		if draft.CouponCode != nil && strings.TrimSpace(*draft.CouponCode) != "" {
			quote, err = s.couponSvc.Validate(ctx, *draft.CouponCode, customerID, coupon.Snapshot{
				SubtotalCents: subtotal,
				Quantity:      totalQty,
			})
			if err != nil {
				return err
			}
			discount = quote.DiscountCents
		}

		shipping := s.shippingFee(subtotal - discount)
		total := subtotal - discount + shipping

		paymentStatus := enums.PaymentStatusPending
		if draft.PaymentMethod == enums.PaymentMethodCOD {
			paymentStatus = enums.PaymentStatusAuthorized
		}

		record := &models.Order{
			ID:            uuid.New(),
			OrderNumber:   orders.NewOrderNumber(now),
			CustomerID:    customerID,
			Status:        enums.OrderStatusPending,
			CustomerName:  draft.CustomerName,
			CustomerEmail: draft.CustomerEmail,
			CustomerPhone: draft.CustomerPhone,
			SubtotalCents: subtotal,
			DiscountCents: discount,
			ShippingCents: shipping,
			TotalCents:    total,
			Items:         orderLines,
			Payment: &models.Payment{
				Method:      draft.PaymentMethod,
				Status:      paymentStatus,
				AmountCents: total,
			},
			Shipping: &models.Shipping{
				RecipientName: draft.Shipping.RecipientName,
				Phone:         draft.Shipping.Phone,
				AddressLine:   draft.Shipping.AddressLine,
				City:          draft.Shipping.City,
				Country:       countryOrDefault(draft.Shipping.Country),
				PostalCode:    draft.Shipping.PostalCode,
				Note:          draft.Shipping.Note,
				FeeCents:      shipping,
			},
			PlacedAt: now,
		}
		if quote != nil {
			record.CouponID = &quote.Coupon.ID
			record.CouponCode = &quote.Coupon.Code
		}

		if err := s.ordersRepo.WithTx(tx).Create(ctx, record); err != nil {
			return err
		}
		if quote != nil {
			if err := s.couponSvc.Redeem(ctx, tx, quote, customerID, record.ID); err != nil {
				return err
			}
		}
		if err := s.emitOrderPlaced(ctx, tx, record); err != nil {
			return err
		}

		order = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) afterCommit(ctx context.Context, customerID uuid.UUID, draft Draft, order *models.Order) {
	if s.checkout != nil {
		s.checkout.IncOrderPlaced(order.Payment.Method.String())
	}
	if s.logg != nil {
		fields := map[string]any{
			"order_number": order.OrderNumber,
			"total_cents":  order.TotalCents,
			"method":       order.Payment.Method,
		}
		s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), fields), "order placed")
	}
	if draft.BuyNow != nil {
		return
	}
	// Best-effort: a stale cart is recoverable, a rolled-back order is not.
	if err := s.cartSvc.Clear(ctx, customerID); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "clear cart after settlement: "+err.Error())
	}
}

func (s *service) resolveLines(ctx context.Context, customerID uuid.UUID, draft Draft) ([]draftLine, error) {
	if draft.BuyNow != nil {
		if draft.BuyNow.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if draft.BuyNow.Quantity <= 0 || draft.BuyNow.Quantity > s.maxLineQuantity() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid quantity")
		}
		return []draftLine{{
			lineID:    uuid.New(),
			productID: draft.BuyNow.ProductID,
			quantity:  draft.BuyNow.Quantity,
			color:     draft.BuyNow.Color,
		}}, nil
	}

	view, err := s.cartSvc.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(view.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	lines := make([]draftLine, 0, len(view.Items))
	for _, item := range view.Items {
		if item.Quantity > s.maxLineQuantity() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid quantity").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		lines = append(lines, draftLine{
			lineID:    item.LineID,
			productID: item.ProductID,
			quantity:  item.Quantity,
			color:     item.Color,
		})
	}
	return lines, nil
}

func (s *service) shippingFee(reducedSubtotal int64) int64 {
	if s.cfg.FreeShippingCents > 0 && reducedSubtotal >= int64(s.cfg.FreeShippingCents) {
		return 0
	}
	return int64(s.cfg.ShippingFeeCents)
}

func (s *service) maxLineQuantity() int {
	if s.cfg.MaxLineQuantity > 0 {
		return s.cfg.MaxLineQuantity
	}
	return 100
}

func (s *service) emitOrderPlaced(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderPlacedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			CustomerID:    order.CustomerID,
			PaymentMethod: order.Payment.Method,
			TotalCents:    order.TotalCents,
			CouponCode:    order.CouponCode,
			PlacedAt:      order.PlacedAt,
		},
		Version: 1,
	}
	return s.outbox.Emit(ctx, tx, event)
}

func validateDraft(draft Draft) error {
	if !draft.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if strings.TrimSpace(draft.CustomerName) == "" || strings.TrimSpace(draft.CustomerEmail) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name and email are required")
	}
	ship := draft.Shipping
	if strings.TrimSpace(ship.RecipientName) == "" ||
		strings.TrimSpace(ship.Phone) == "" ||
		strings.TrimSpace(ship.AddressLine) == "" ||
		strings.TrimSpace(ship.City) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
	}
	return nil
}

func countryOrDefault(country string) string {
	if strings.TrimSpace(country) == "" {
		return "VN"
	}
	return country
}

func isOrderNumberConflict(err error) bool {
	if err == nil {
		return false
	}
	return db.IsUniqueViolation(err, "") && strings.Contains(err.Error(), "order_number")
}
