package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/internal/repo"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
)

// PaymentRepository transitions payment rows with conditional updates. The
// status predicate in each write is what makes callback handling idempotent
// under redelivery and races.
type PaymentRepository interface {
	WithTx(tx *gorm.DB) PaymentRepository
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	Settle(ctx context.Context, orderID uuid.UUID, externalRef string, at time.Time) (int64, error)
	Fail(ctx context.Context, orderID uuid.UUID, reason string) (int64, error)
}

type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) PaymentRepository {
	if tx == nil {
		return r
	}
	return &Repository{base: repo.NewBase(tx)}
}

func (r *Repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var record models.Payment
	err := r.base.DB(ctx).Where("order_id = ?", orderID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) Settle(ctx context.Context, orderID uuid.UUID, externalRef string, at time.Time) (int64, error) {
	result := r.base.DB(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusPending).
		UpdateColumns(map[string]any{
			"status":       enums.PaymentStatusAuthorized,
			"external_ref": externalRef,
			"settled_at":   at,
		})
	return result.RowsAffected, result.Error
}

func (r *Repository) Fail(ctx context.Context, orderID uuid.UUID, reason string) (int64, error) {
	result := r.base.DB(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusPending).
		UpdateColumns(map[string]any{
			"status":         enums.PaymentStatusFailed,
			"failure_reason": reason,
		})
	return result.RowsAffected, result.Error
}
