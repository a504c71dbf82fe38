package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog listing consumed by pricing and settlement.
// Catalog CRUD lives elsewhere; this engine reads price/discount/stock and
// the sweeper clears expired discount windows.
type Product struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU             string     `gorm:"column:sku;not null;uniqueIndex"`
	Name            string     `gorm:"column:name;not null"`
	PriceCents      int64      `gorm:"column:price_cents;not null"`
	DiscountPercent int        `gorm:"column:discount_percent;not null;default:0"`
	DiscountEndsAt  *time.Time `gorm:"column:discount_ends_at"`
	StockQty        int        `gorm:"column:stock_qty;not null;default:0"`
	IsActive        bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
