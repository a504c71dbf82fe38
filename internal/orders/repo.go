package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/internal/repo"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
)

type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &Repository{base: repo.NewBase(tx)}
}

func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}
	if order.Payment != nil {
		if order.Payment.ID == uuid.Nil {
			order.Payment.ID = uuid.New()
		}
		order.Payment.OrderID = order.ID
	}
	if order.Shipping != nil {
		if order.Shipping.ID == uuid.Nil {
			order.Shipping.ID = uuid.New()
		}
		order.Shipping.OrderID = order.ID
	}
	return r.base.DB(ctx).Create(order).Error
}

func (r *Repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, "orders.id = ?", orderID)
}

func (r *Repository) FindByIDForCustomer(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	var record models.Order
	err := r.base.DB(ctx).
		Preload("Items").
		Preload("Payment").
		Preload("Shipping").
		Where("orders.id = ? AND orders.customer_id = ?", orderID, customerID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return r.findOne(ctx, "orders.order_number = ?", orderNumber)
}

func (r *Repository) findOne(ctx context.Context, query string, args ...any) (*models.Order, error) {
	var record models.Order
	err := r.base.DB(ctx).
		Preload("Items").
		Preload("Payment").
		Preload("Shipping").
		Where(query, args...).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateStatus transitions the order only when it is still in the expected
// state. Zero rows affected means a concurrent writer got there first.
func (r *Repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error) {
	result := r.base.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		UpdateColumn("status", to)
	return result.RowsAffected, result.Error
}

func (r *Repository) MarkCancelled(ctx context.Context, orderID uuid.UUID, from enums.OrderStatus, at time.Time) (int64, error) {
	result := r.base.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		UpdateColumns(map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": at,
		})
	return result.RowsAffected, result.Error
}

// List returns customer-scoped orders using cursor pagination.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Order, error) {
	query := r.base.DB(ctx).
		Model(&models.Order{}).
		Preload("Items").
		Preload("Payment").
		Where("customer_id = ?", opts.customerID)

	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindGatewayPendingBefore lists orders abandoned mid-redirect: still pending
// with a pending gateway payment placed before the cutoff.
func (r *Repository) FindGatewayPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var records []models.Order
	err := r.base.DB(ctx).
		Preload("Items").
		Preload("Payment").
		Joins("JOIN payments ON payments.order_id = orders.id").
		Where("orders.status = ?", enums.OrderStatusPending).
		Where("payments.method = ? AND payments.status = ?", enums.PaymentMethodGateway, enums.PaymentStatusPending).
		Where("orders.placed_at < ?", cutoff).
		Order("orders.placed_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
