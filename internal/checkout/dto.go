package checkout

import (
	"github.com/google/uuid"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
)

// ShippingInput carries the recipient details captured at checkout.
type ShippingInput struct {
	RecipientName string  `json:"recipient_name" validate:"required"`
	Phone         string  `json:"phone" validate:"required"`
	AddressLine   string  `json:"address_line" validate:"required"`
	City          string  `json:"city" validate:"required"`
	Country       string  `json:"country"`
	PostalCode    *string `json:"postal_code,omitempty"`
	Note          *string `json:"note,omitempty"`
}

// BuyNowInput is the ephemeral single-line basket. It is never persisted;
// it exists only for the duration of one settlement attempt.
type BuyNowInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
	Color     *string   `json:"color,omitempty"`
}

// Draft is everything a settlement attempt needs besides the customer id.
// When BuyNow is nil the customer's persisted cart is the source.
type Draft struct {
	CustomerName  string              `json:"customer_name" validate:"required"`
	CustomerEmail string              `json:"customer_email" validate:"required,email"`
	CustomerPhone string              `json:"customer_phone"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`
	CouponCode    *string             `json:"coupon_code,omitempty"`
	Shipping      ShippingInput       `json:"shipping" validate:"required"`
	BuyNow        *BuyNowInput        `json:"buy_now,omitempty"`
}

// Result is the settled order plus, for gateway payments, the redirect URL
// the storefront forwards the customer to.
type Result struct {
	Order      *models.Order
	PaymentURL string
}

type draftLine struct {
	lineID    uuid.UUID
	productID uuid.UUID
	quantity  int
	color     *string
}
