package models

import (
	"time"

	"github.com/google/uuid"
)

type Shipping struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	RecipientName string    `gorm:"column:recipient_name;not null"`
	Phone         string    `gorm:"column:phone;not null"`
	AddressLine   string    `gorm:"column:address_line;not null"`
	City          string    `gorm:"column:city;not null"`
	Country       string    `gorm:"column:country;not null;default:'VN'"`
	PostalCode    *string   `gorm:"column:postal_code"`
	Note          *string   `gorm:"column:note"`
	FeeCents      int64     `gorm:"column:fee_cents;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
