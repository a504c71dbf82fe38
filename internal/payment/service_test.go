package payment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/internal/orders"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/config"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
	pkgerrors "github.com/HaDo2003/DTechAPI-sub002/pkg/errors"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/outbox"
)

type sqlTxRunner struct {
	db *gorm.DB
}

func (r sqlTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type paymentHarness struct {
	db      *gorm.DB
	gateway *Gateway
	svc     Service
}

func newPaymentHarness(t *testing.T) *paymentHarness {
	t.Helper()

	db := newPaymentTestDB(t)
	runner := sqlTxRunner{db: db}
	gw := newTestGateway(t)

	svc, err := NewService(
		runner,
		gw,
		NewRepository(db),
		orders.NewRepository(db),
		outbox.NewService(outbox.NewRepository(db), nil),
		config.GatewayConfig{SuccessPage: "/checkout/success", FailurePage: "/checkout/failure"},
		nil,
		nil,
	)
	require.NoError(t, err)
	return &paymentHarness{db: db, gateway: gw, svc: svc}
}

func (h *paymentHarness) seedGatewayOrder(t *testing.T, customerID uuid.UUID, amount int64) *models.Order {
	t.Helper()

	product := models.Product{ID: uuid.New(), SKU: "SKU-" + uuid.NewString()[:8], Name: "Widget", PriceCents: amount, StockQty: 0, IsActive: true}
	require.NoError(t, h.db.Create(&product).Error)

	order := &models.Order{
		OrderNumber:   orders.NewOrderNumber(time.Now().UTC()),
		CustomerID:    customerID,
		Status:        enums.OrderStatusPending,
		CustomerName:  "Nguyen Van A",
		CustomerEmail: "a@example.com",
		SubtotalCents: amount,
		TotalCents:    amount,
		Items: []models.OrderLine{{
			ProductID:      product.ID,
			ProductName:    product.Name,
			SKU:            product.SKU,
			Quantity:       2,
			UnitPriceCents: amount / 2,
			LineTotalCents: amount,
		}},
		Payment: &models.Payment{
			Method:      enums.PaymentMethodGateway,
			Status:      enums.PaymentStatusPending,
			AmountCents: amount,
		},
		Shipping: &models.Shipping{
			RecipientName: "Nguyen Van A",
			Phone:         "0900000000",
			AddressLine:   "1 Le Loi",
			City:          "Ho Chi Minh City",
			Country:       "VN",
			FeeCents:      500,
		},
		PlacedAt: time.Now().UTC(),
	}
	require.NoError(t, orders.NewRepository(h.db).Create(context.Background(), order))
	return order
}

func (h *paymentHarness) signedCallback(t *testing.T, order *models.Order, resultCode string) Callback {
	t.Helper()
	cb := Callback{
		OrderRef:    OrderRef(order.ID),
		Amount:      order.Payment.AmountCents,
		ResultCode:  resultCode,
		ExternalRef: "txn-" + uuid.NewString()[:8],
	}
	cb.Signature = h.gateway.SignCallback(cb)
	return cb
}

func (h *paymentHarness) orderState(t *testing.T, orderID uuid.UUID) *models.Order {
	t.Helper()
	order, err := orders.NewRepository(h.db).FindByID(context.Background(), orderID)
	require.NoError(t, err)
	return order
}

func TestHandleCallbackSuccessTransitionsOnce(t *testing.T) {
	t.Parallel()

	h := newPaymentHarness(t)
	order := h.seedGatewayOrder(t, uuid.New(), 17000)
	cb := h.signedCallback(t, order, ResultCodeSuccess)

	outcome, err := h.svc.HandleCallback(context.Background(), cb)
	require.NoError(t, err)
	assert.True(t, outcome.Paid)
	assert.False(t, outcome.Duplicate)
	assert.Equal(t, order.OrderNumber, outcome.OrderNumber)
	assert.Equal(t, "/checkout/success", outcome.RedirectPath)

	state := h.orderState(t, order.ID)
	assert.Equal(t, enums.OrderStatusPaid, state.Status)
	assert.Equal(t, enums.PaymentStatusAuthorized, state.Payment.Status)
	require.NotNil(t, state.Payment.ExternalRef)
	assert.Equal(t, cb.ExternalRef, *state.Payment.ExternalRef)
	require.NotNil(t, state.Payment.SettledAt)

	// duplicate delivery replays the recorded outcome, no second transition
	again, err := h.svc.HandleCallback(context.Background(), cb)
	require.NoError(t, err)
	assert.True(t, again.Paid)
	assert.True(t, again.Duplicate)

	after := h.orderState(t, order.ID)
	assert.Equal(t, state.Status, after.Status)
	assert.Equal(t, state.Payment.Status, after.Payment.Status)

	var events int64
	require.NoError(t, h.db.Model(&models.OutboxEvent{}).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestHandleCallbackFailureCancelsAndRestocks(t *testing.T) {
	t.Parallel()

	h := newPaymentHarness(t)
	order := h.seedGatewayOrder(t, uuid.New(), 17000)
	cb := h.signedCallback(t, order, "51")
	cb.Reason = "insufficient funds"
	cb.Signature = h.gateway.SignCallback(cb)

	outcome, err := h.svc.HandleCallback(context.Background(), cb)
	require.NoError(t, err)
	assert.False(t, outcome.Paid)
	assert.Equal(t, "/checkout/failure", outcome.RedirectPath)

	state := h.orderState(t, order.ID)
	assert.Equal(t, enums.OrderStatusCancelled, state.Status)
	assert.Equal(t, enums.PaymentStatusFailed, state.Payment.Status)
	require.NotNil(t, state.Payment.FailureReason)
	assert.Equal(t, "insufficient funds", *state.Payment.FailureReason)
	require.NotNil(t, state.CancelledAt)

	// cancelled settlement returns its stock
	var product models.Product
	require.NoError(t, h.db.First(&product, "id = ?", order.Items[0].ProductID).Error)
	assert.Equal(t, 2, product.StockQty)
}

func TestHandleCallbackInvalidSignature(t *testing.T) {
	t.Parallel()

	h := newPaymentHarness(t)
	order := h.seedGatewayOrder(t, uuid.New(), 17000)
	cb := h.signedCallback(t, order, ResultCodeSuccess)
	cb.Signature = "deadbeef"

	_, err := h.svc.HandleCallback(context.Background(), cb)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())

	state := h.orderState(t, order.ID)
	assert.Equal(t, enums.OrderStatusPending, state.Status)
}

func TestHandleCallbackAmountMismatch(t *testing.T) {
	t.Parallel()

	h := newPaymentHarness(t)
	order := h.seedGatewayOrder(t, uuid.New(), 17000)
	cb := Callback{
		OrderRef:    OrderRef(order.ID),
		Amount:      1,
		ResultCode:  ResultCodeSuccess,
		ExternalRef: "txn-1",
	}
	cb.Signature = h.gateway.SignCallback(cb)

	_, err := h.svc.HandleCallback(context.Background(), cb)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestRedirectURLForOrderRegenerates(t *testing.T) {
	t.Parallel()

	h := newPaymentHarness(t)
	customerID := uuid.New()
	order := h.seedGatewayOrder(t, customerID, 17000)

	first, err := h.svc.RedirectURLForOrder(context.Background(), customerID, order.ID)
	require.NoError(t, err)
	second, err := h.svc.RedirectURLForOrder(context.Background(), customerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// once settled, regeneration is refused
	cb := h.signedCallback(t, order, ResultCodeSuccess)
	_, err = h.svc.HandleCallback(context.Background(), cb)
	require.NoError(t, err)

	_, err = h.svc.RedirectURLForOrder(context.Background(), customerID, order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestRedirectURLForOrderForeignCustomer(t *testing.T) {
	t.Parallel()

	h := newPaymentHarness(t)
	order := h.seedGatewayOrder(t, uuid.New(), 17000)

	_, err := h.svc.RedirectURLForOrder(context.Background(), uuid.New(), order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func newPaymentTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:payment_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  discount_percent INTEGER NOT NULL DEFAULT 0,
  discount_ends_at DATETIME,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  customer_phone TEXT,
  coupon_id TEXT,
  coupon_code TEXT,
  subtotal_cents INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  placed_at DATETIME NOT NULL,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  sku TEXT NOT NULL,
  color TEXT,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  amount_cents INTEGER NOT NULL,
  external_ref TEXT UNIQUE,
  failure_reason TEXT,
  settled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS shippings (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  recipient_name TEXT NOT NULL,
  phone TEXT NOT NULL,
  address_line TEXT NOT NULL,
  city TEXT NOT NULL,
  country TEXT NOT NULL DEFAULT 'VN',
  postal_code TEXT,
  note TEXT,
  fee_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
