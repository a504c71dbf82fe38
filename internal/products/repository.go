package products

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/internal/repo"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
)

// Repository is the engine's read-and-adjust view of the catalog. Product
// CRUD lives elsewhere; this side only prices, reserves, and restocks.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{base: repo.NewBase(tx)}
}

func (r *Repository) FindByID(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var record models.Product
	err := r.base.DB(ctx).Where("id = ?", productID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) FindByIDs(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var records []models.Product
	err := r.base.DB(ctx).Where("id IN ?", productIDs).Find(&records).Error
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		out[record.ID] = record
	}
	return out, nil
}

// Restock returns previously decremented stock, used when a pending order is
// cancelled. Unconditional add; quantities were validated at settlement.
func (r *Repository) Restock(ctx context.Context, productID uuid.UUID, quantity int) error {
	return r.base.DB(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock_qty", gorm.Expr("stock_qty + ?", quantity)).Error
}

// ClearExpiredDiscounts zeroes time-boxed discounts whose window has passed.
// Conditional, so a second sweep with no changes touches zero rows.
func (r *Repository) ClearExpiredDiscounts(ctx context.Context, now time.Time) (int64, error) {
	result := r.base.DB(ctx).
		Model(&models.Product{}).
		Where("discount_percent > 0 AND discount_ends_at IS NOT NULL AND discount_ends_at < ?", now).
		UpdateColumns(map[string]any{
			"discount_percent": 0,
			"discount_ends_at": nil,
		})
	return result.RowsAffected, result.Error
}
