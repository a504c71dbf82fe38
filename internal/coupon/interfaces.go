package coupon

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
)

// CouponRepository reads coupons and writes redemption ledger rows. Redemption
// writes only ever happen on a settlement transaction handle.
type CouponRepository interface {
	WithTx(tx *gorm.DB) CouponRepository
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	RedemptionExists(ctx context.Context, couponID, customerID uuid.UUID) (bool, error)
	InsertRedemption(ctx context.Context, redemption *models.CouponRedemption) error
	ConsumeUsage(ctx context.Context, couponID uuid.UUID) (int64, error)
}
