package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
)

// Order is the settlement aggregate root. All monetary fields are integer
// cents captured at settlement time; they never change when catalog prices
// do.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string            `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID  uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	Status      enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`

	CustomerName  string `gorm:"column:customer_name;not null"`
	CustomerEmail string `gorm:"column:customer_email;not null"`
	CustomerPhone string `gorm:"column:customer_phone"`

	CouponID      *uuid.UUID `gorm:"column:coupon_id;type:uuid"`
	CouponCode    *string    `gorm:"column:coupon_code"`
	SubtotalCents int64      `gorm:"column:subtotal_cents;not null"`
	DiscountCents int64      `gorm:"column:discount_cents;not null;default:0"`
	ShippingCents int64      `gorm:"column:shipping_cents;not null;default:0"`
	TotalCents    int64      `gorm:"column:total_cents;not null"`

	Items    []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment  *Payment    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Shipping *Shipping   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	PlacedAt    time.Time  `gorm:"column:placed_at;not null"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
