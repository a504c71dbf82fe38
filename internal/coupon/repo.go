package coupon

import (
	"context"
	"strings"
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

func (r *Repository) WithTx(tx *gorm.DB) CouponRepository {
	if tx == nil {
		return r
	}
	return &Repository{base: repo.NewBase(tx)}
}

func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var record models.Coupon
	err := r.base.DB(ctx).
		Where("lower(code) = ?", strings.ToLower(code)).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) RedemptionExists(ctx context.Context, couponID, customerID uuid.UUID) (bool, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.CouponRedemption{}).
		Where("coupon_id = ? AND customer_id = ?", couponID, customerID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) InsertRedemption(ctx context.Context, redemption *models.CouponRedemption) error {
	if redemption.ID == uuid.Nil {
		redemption.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(redemption).Error
}

// ExpireAvailableBefore flips coupons whose window has closed to unavailable.
func (r *Repository) ExpireAvailableBefore(ctx context.Context, now time.Time) (int64, error) {
	result := r.base.DB(ctx).
		Model(&models.Coupon{}).
		Where("status = ?", enums.CouponStatusAvailable).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		UpdateColumn("status", enums.CouponStatusUnavailable)
	return result.RowsAffected, result.Error
}

// ConsumeUsage bumps used_count while the limit still has headroom. Zero rows
// affected means the coupon was exhausted by a racing settlement.
func (r *Repository) ConsumeUsage(ctx context.Context, couponID uuid.UUID) (int64, error) {
	result := r.base.DB(ctx).
		Model(&models.Coupon{}).
		Where("id = ?", couponID).
		Where("usage_limit IS NULL OR used_count < usage_limit").
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	return result.RowsAffected, result.Error
}
