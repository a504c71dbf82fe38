package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
)

// OrderRepository persists and reads settlement aggregates. Create writes the
// whole aggregate (lines, payment, shipping) in one association insert, so it
// must run on a transaction handle.
type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByIDForCustomer(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	List(ctx context.Context, opts listQuery) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error)
	MarkCancelled(ctx context.Context, orderID uuid.UUID, from enums.OrderStatus, at time.Time) (int64, error)
	FindGatewayPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}
