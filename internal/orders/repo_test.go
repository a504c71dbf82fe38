package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
	pkgpagination "github.com/HaDo2003/DTechAPI-sub002/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:ordersrepo?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
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
);`
	orderLines := `
CREATE TABLE IF NOT EXISTS order_lines (
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
);`
	payments := `
CREATE TABLE IF NOT EXISTS payments (
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
);`
	shippings := `
CREATE TABLE IF NOT EXISTS shippings (
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
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderLines).Error)
	require.NoError(t, db.Exec(payments).Error)
	require.NoError(t, db.Exec(shippings).Error)

	t.Cleanup(func() {
		for _, table := range []string{"shippings", "payments", "order_lines", "orders"} {
			db.Exec("DELETE FROM " + table)
		}
	})
	return db
}

func newTestOrder(customerID uuid.UUID, method enums.PaymentMethod, placedAt time.Time) *models.Order {
	paymentStatus := enums.PaymentStatusPending
	if method == enums.PaymentMethodCOD {
		paymentStatus = enums.PaymentStatusAuthorized
	}
	return &models.Order{
		OrderNumber:   NewOrderNumber(placedAt),
		CustomerID:    customerID,
		Status:        enums.OrderStatusPending,
		CustomerName:  "Nguyen Van A",
		CustomerEmail: "a@example.com",
		SubtotalCents: 18000,
		DiscountCents: 1500,
		ShippingCents: 500,
		TotalCents:    17000,
		Items: []models.OrderLine{{
			ProductID:      uuid.New(),
			ProductName:    "Laptop",
			SKU:            "LAP-01",
			Quantity:       2,
			UnitPriceCents: 9000,
			LineTotalCents: 18000,
		}},
		Payment: &models.Payment{
			Method:      method,
			Status:      paymentStatus,
			AmountCents: 17000,
		},
		Shipping: &models.Shipping{
			RecipientName: "Nguyen Van A",
			Phone:         "0900000000",
			AddressLine:   "1 Le Loi",
			City:          "Ho Chi Minh City",
			Country:       "VN",
			FeeCents:      500,
		},
		PlacedAt: placedAt,
	}
}

func TestRepositoryCreatePersistsAggregate(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	customerID := uuid.New()
	order := newTestOrder(customerID, enums.PaymentMethodCOD, time.Now().UTC())
	require.NoError(t, repo.Create(context.Background(), order))

	found, err := repo.FindByIDForCustomer(context.Background(), order.ID, customerID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	require.NotNil(t, found.Payment)
	require.NotNil(t, found.Shipping)
	assert.Equal(t, order.OrderNumber, found.OrderNumber)
	assert.Equal(t, enums.PaymentStatusAuthorized, found.Payment.Status)
	assert.Equal(t, int64(17000), found.TotalCents)
	assert.Equal(t, int64(500), found.Shipping.FeeCents)
}

func TestRepositoryFindScopedToCustomer(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := newTestOrder(uuid.New(), enums.PaymentMethodCOD, time.Now().UTC())
	require.NoError(t, repo.Create(context.Background(), order))

	_, err := repo.FindByIDForCustomer(context.Background(), order.ID, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUpdateStatusConditional(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := newTestOrder(uuid.New(), enums.PaymentMethodGateway, time.Now().UTC())
	require.NoError(t, repo.Create(context.Background(), order))

	affected, err := repo.UpdateStatus(context.Background(), order.ID, enums.OrderStatusPending, enums.OrderStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// second transition from pending loses: the order already moved on
	affected, err = repo.UpdateStatus(context.Background(), order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestRepositoryMarkCancelled(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := newTestOrder(uuid.New(), enums.PaymentMethodGateway, time.Now().UTC())
	require.NoError(t, repo.Create(context.Background(), order))

	at := time.Now().UTC()
	affected, err := repo.MarkCancelled(context.Background(), order.ID, enums.OrderStatusPending, at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, found.Status)
	require.NotNil(t, found.CancelledAt)
}

func TestRepositoryListCursorPagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	customerID := uuid.New()
	now := time.Now().UTC()
	var created []*models.Order
	for i := 0; i < 3; i++ {
		order := newTestOrder(customerID, enums.PaymentMethodCOD, now.Add(-time.Duration(i)*time.Hour))
		order.CreatedAt = now.Add(-time.Duration(i) * time.Hour)
		require.NoError(t, repo.Create(context.Background(), order))
		created = append(created, order)
	}
	foreign := newTestOrder(uuid.New(), enums.PaymentMethodCOD, now)
	require.NoError(t, repo.Create(context.Background(), foreign))

	firstPage, err := repo.List(context.Background(), listQuery{customerID: customerID, limit: 2})
	require.NoError(t, err)
	require.Len(t, firstPage, 2)
	assert.Equal(t, created[0].ID, firstPage[0].ID)
	assert.Equal(t, created[1].ID, firstPage[1].ID)
	require.Len(t, firstPage[0].Items, 1)
	require.NotNil(t, firstPage[0].Payment)

	secondPage, err := repo.List(context.Background(), listQuery{
		customerID: customerID,
		limit:      2,
		cursor: &pkgpagination.Cursor{
			CreatedAt: firstPage[1].CreatedAt,
			ID:        firstPage[1].ID,
		},
	})
	require.NoError(t, err)
	require.Len(t, secondPage, 1)
	assert.Equal(t, created[2].ID, secondPage[0].ID)
}

func TestRepositoryFindGatewayPendingBefore(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	stale := newTestOrder(uuid.New(), enums.PaymentMethodGateway, now.Add(-48*time.Hour))
	fresh := newTestOrder(uuid.New(), enums.PaymentMethodGateway, now.Add(-time.Hour))
	cod := newTestOrder(uuid.New(), enums.PaymentMethodCOD, now.Add(-48*time.Hour))
	require.NoError(t, repo.Create(context.Background(), stale))
	require.NoError(t, repo.Create(context.Background(), fresh))
	require.NoError(t, repo.Create(context.Background(), cod))

	found, err := repo.FindGatewayPendingBefore(context.Background(), now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
}
