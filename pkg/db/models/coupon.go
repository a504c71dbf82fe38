package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
)

type Coupon struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code            string             `gorm:"column:code;not null;uniqueIndex"`
	Description     string             `gorm:"column:description"`
	DiscountType    enums.DiscountType `gorm:"column:discount_type;not null"`
	DiscountValue   int64              `gorm:"column:discount_value;not null"`
	MaxDiscountCent *int64             `gorm:"column:max_discount_cents"`
	MinOrderCents   int64              `gorm:"column:min_order_cents;not null;default:0"`
	MinQuantity     int                `gorm:"column:min_quantity;not null;default:0"`
	UsageLimit      *int               `gorm:"column:usage_limit"`
	UsedCount       int                `gorm:"column:used_count;not null;default:0"`
	OncePerCustomer bool               `gorm:"column:once_per_customer;not null;default:true"`
	Status          enums.CouponStatus `gorm:"column:status;not null;default:'available'"`
	StartsAt        *time.Time         `gorm:"column:starts_at"`
	ExpiresAt       *time.Time         `gorm:"column:expires_at"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
