package pricing

import (
	"time"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
)

// LineQuote is the priced view of a single unit at a point in time.
type LineQuote struct {
	UnitPriceCents      int64
	DiscountCents       int64
	FinalUnitPriceCents int64
}

// Quote prices one unit of the product at the given instant. A discount whose
// window has closed is treated as zero; the sweeper will eventually persist
// that same outcome.
func Quote(product models.Product, now time.Time) LineQuote {
	quote := LineQuote{
		UnitPriceCents:      product.PriceCents,
		FinalUnitPriceCents: product.PriceCents,
	}
	if product.DiscountPercent <= 0 {
		return quote
	}
	if product.DiscountEndsAt != nil && product.DiscountEndsAt.Before(now) {
		return quote
	}
	percent := product.DiscountPercent
	if percent > 100 {
		percent = 100
	}
	quote.DiscountCents = product.PriceCents * int64(percent) / 100
	quote.FinalUnitPriceCents = product.PriceCents - quote.DiscountCents
	return quote
}

// QuoteLine prices quantity units, returning the per-unit quote and the line
// total at the discounted price.
func QuoteLine(product models.Product, quantity int, now time.Time) (LineQuote, int64) {
	quote := Quote(product, now)
	if quantity <= 0 {
		return quote, 0
	}
	return quote, quote.FinalUnitPriceCents * int64(quantity)
}
