package coupon

import (
	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
)

// Snapshot is the basket shape a coupon is judged against. Both fields come
// from re-priced lines, never from client input.
type Snapshot struct {
	SubtotalCents int64
	Quantity      int
}

// Quote is a successful validation: the coupon row plus the discount it
// grants against the snapshot.
type Quote struct {
	Coupon        *models.Coupon
	DiscountCents int64
}

// ApplyResult is the storefront-facing preview of a coupon against a basket.
type ApplyResult struct {
	Code          string `json:"code"`
	DiscountCents int64  `json:"discount_cents"`
	TotalCents    int64  `json:"total_cents"`
}
