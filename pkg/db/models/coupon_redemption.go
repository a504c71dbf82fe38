package models

import (
	"time"

	"github.com/google/uuid"
)

// CouponRedemption records a single use of a coupon by a customer. The
// composite unique index is what enforces once-per-customer under
// concurrent checkouts; the service treats the duplicate-key error as a
// conflict rather than pre-checking.
type CouponRedemption struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CouponID      uuid.UUID `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:idx_coupon_redemptions_coupon_customer"`
	CustomerID    uuid.UUID `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:idx_coupon_redemptions_coupon_customer"`
	OrderID       uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	DiscountCents int64     `gorm:"column:discount_cents;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
