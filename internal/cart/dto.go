package cart

import (
	"github.com/google/uuid"
)

// AddItemInput captures the payload for adding a product to a basket.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Color     *string
}

// LineView is one priced basket line. Unit prices come from the live catalog
// at read time; only settlement snapshots them.
type LineView struct {
	LineID              uuid.UUID `json:"line_id"`
	ProductID           uuid.UUID `json:"product_id"`
	ProductName         string    `json:"product_name"`
	SKU                 string    `json:"sku"`
	Color               *string   `json:"color,omitempty"`
	Quantity            int       `json:"quantity"`
	UnitPriceCents      int64     `json:"unit_price_cents"`
	DiscountCents       int64     `json:"discount_cents"`
	FinalUnitPriceCents int64     `json:"final_unit_price_cents"`
	LineTotalCents      int64     `json:"line_total_cents"`
}

// View is the materialized basket returned to callers.
type View struct {
	CartID        uuid.UUID  `json:"cart_id"`
	CustomerID    uuid.UUID  `json:"customer_id"`
	Items         []LineView `json:"items"`
	TotalQuantity int        `json:"total_quantity"`
	SubtotalCents int64      `json:"subtotal_cents"`
}
