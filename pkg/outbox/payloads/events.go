package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
)

// OrderPlacedEvent signals a settled checkout.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalCents    int64               `json:"total_cents"`
	CouponCode    *string             `json:"coupon_code,omitempty"`
	PlacedAt      time.Time           `json:"placed_at"`
}

// OrderPaidEvent is emitted when a gateway callback confirms payment.
type OrderPaidEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CustomerID  uuid.UUID `json:"customer_id"`
	AmountCents int64     `json:"amount_cents"`
	ExternalRef string    `json:"external_ref"`
	SettledAt   time.Time `json:"settled_at"`
}

// OrderPaymentFailedEvent is emitted when the gateway reports a failed charge.
type OrderPaymentFailedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CustomerID  uuid.UUID `json:"customer_id"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderCancelledEvent reports an order cancelled by the pending-order sweep.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CustomerID  uuid.UUID `json:"customer_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}
