package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
)

// Payment is the one payment attempt per order. Gateway callbacks lock this
// row before reconciling so duplicate deliveries serialize.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Method        enums.PaymentMethod `gorm:"column:method;not null"`
	Status        enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	AmountCents   int64               `gorm:"column:amount_cents;not null"`
	ExternalRef   *string             `gorm:"column:external_ref;uniqueIndex"`
	FailureReason *string             `gorm:"column:failure_reason"`
	SettledAt     *time.Time          `gorm:"column:settled_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
