package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLine snapshots a priced cart line. ProductName and UnitPriceCents
// are copied from the catalog at settlement so later catalog edits do not
// rewrite order history.
type OrderLine struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ProductName    string    `gorm:"column:product_name;not null"`
	SKU            string    `gorm:"column:sku;not null"`
	Color          *string   `gorm:"column:color"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	LineTotalCents int64     `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
