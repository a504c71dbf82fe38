package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
	pkgerrors "github.com/HaDo2003/DTechAPI-sub002/pkg/errors"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/pagination"
)

func TestGetStatusReturnsView(t *testing.T) {
	t.Parallel()

	customerID := uuid.New()
	settled := time.Now().UTC()
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "DT-20260901-0001",
		CustomerID:    customerID,
		Status:        enums.OrderStatusPaid,
		SubtotalCents: 18000,
		DiscountCents: 1500,
		ShippingCents: 500,
		TotalCents:    17000,
		Items: []models.OrderLine{{
			ProductID:      uuid.New(),
			ProductName:    "Laptop",
			Quantity:       2,
			UnitPriceCents: 9000,
			LineTotalCents: 18000,
		}},
		Payment: &models.Payment{
			Method:      enums.PaymentMethodGateway,
			Status:      enums.PaymentStatusAuthorized,
			AmountCents: 17000,
			SettledAt:   &settled,
		},
		PlacedAt: settled.Add(-time.Hour),
	}

	svc, err := NewService(&stubOrderRepo{order: order})
	require.NoError(t, err)

	view, err := svc.GetStatus(context.Background(), customerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "DT-20260901-0001", view.OrderNumber)
	assert.Equal(t, enums.OrderStatusPaid, view.Status)
	assert.Equal(t, int64(17000), view.TotalCents)
	require.Len(t, view.Items, 1)
	require.NotNil(t, view.Payment)
	assert.Equal(t, enums.PaymentStatusAuthorized, view.Payment.Status)
}

func TestGetStatusForeignCustomer(t *testing.T) {
	t.Parallel()

	order := &models.Order{ID: uuid.New(), CustomerID: uuid.New()}
	svc, err := NewService(&stubOrderRepo{order: order})
	require.NoError(t, err)

	_, err = svc.GetStatus(context.Background(), uuid.New(), order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

type stubOrderRepo struct {
	order *models.Order
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) OrderRepository { return s }

func (s *stubOrderRepo) Create(ctx context.Context, order *models.Order) error { return nil }

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrderRepo) FindByIDForCustomer(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID || s.order.CustomerID != customerID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrderRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if s.order == nil || s.order.OrderNumber != orderNumber {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrderRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error) {
	return 1, nil
}

func (s *stubOrderRepo) MarkCancelled(ctx context.Context, orderID uuid.UUID, from enums.OrderStatus, at time.Time) (int64, error) {
	return 1, nil
}

func (s *stubOrderRepo) List(ctx context.Context, opts listQuery) ([]models.Order, error) {
	if s.order == nil {
		return nil, nil
	}
	return []models.Order{*s.order}, nil
}

func (s *stubOrderRepo) FindGatewayPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	return nil, nil
}

type listStubRepo struct {
	stubOrderRepo
	rows      []models.Order
	gotLimit  int
	gotCursor *pagination.Cursor
}

func (s *listStubRepo) List(ctx context.Context, opts listQuery) ([]models.Order, error) {
	s.gotLimit = opts.limit
	s.gotCursor = opts.cursor
	if len(s.rows) > opts.limit {
		return s.rows[:opts.limit], nil
	}
	return s.rows, nil
}

func TestListOrdersBuildsNextCursor(t *testing.T) {
	t.Parallel()

	customerID := uuid.New()
	now := time.Now().UTC()
	rows := make([]models.Order, 3)
	for i := range rows {
		rows[i] = models.Order{
			ID:          uuid.New(),
			OrderNumber: NewOrderNumber(now),
			CustomerID:  customerID,
			Status:      enums.OrderStatusPaid,
			TotalCents:  int64(1000 * (i + 1)),
			PlacedAt:    now.Add(-time.Duration(i) * time.Hour),
			CreatedAt:   now.Add(-time.Duration(i) * time.Hour),
		}
	}

	repo := &listStubRepo{rows: rows}
	svc, err := NewService(repo)
	require.NoError(t, err)

	result, err := svc.ListOrders(context.Background(), ListParams{
		CustomerID: customerID,
		Params:     pagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, repo.gotLimit)
	require.Len(t, result.Items, 2)
	require.NotEmpty(t, result.Cursor)

	cursor, err := pagination.ParseCursor(result.Cursor)
	require.NoError(t, err)
	assert.Equal(t, rows[2].ID, cursor.ID)

	// second page request carries the decoded cursor into the query
	_, err = svc.ListOrders(context.Background(), ListParams{
		CustomerID: customerID,
		Params:     pagination.Params{Limit: 2, Cursor: result.Cursor},
	})
	require.NoError(t, err)
	require.NotNil(t, repo.gotCursor)
	assert.Equal(t, rows[2].ID, repo.gotCursor.ID)
}

func TestListOrdersRejectsBadCursor(t *testing.T) {
	t.Parallel()

	svc, err := NewService(&stubOrderRepo{})
	require.NoError(t, err)

	_, err = svc.ListOrders(context.Background(), ListParams{
		CustomerID: uuid.New(),
		Params:     pagination.Params{Cursor: "not-base64!"},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
