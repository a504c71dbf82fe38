package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
)

type LineView struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Color          *string   `json:"color,omitempty"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
}

type PaymentView struct {
	Method      enums.PaymentMethod `json:"method"`
	Status      enums.PaymentStatus `json:"status"`
	AmountCents int64               `json:"amount_cents"`
	SettledAt   *time.Time          `json:"settled_at,omitempty"`
}

// StatusView is the read model behind the order-status endpoint. It carries
// the public order number, never gateway references.
type StatusView struct {
	OrderID       uuid.UUID         `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	Status        enums.OrderStatus `json:"status"`
	CouponCode    *string           `json:"coupon_code,omitempty"`
	SubtotalCents int64             `json:"subtotal_cents"`
	DiscountCents int64             `json:"discount_cents"`
	ShippingCents int64             `json:"shipping_cents"`
	TotalCents    int64             `json:"total_cents"`
	Items         []LineView        `json:"items"`
	Payment       *PaymentView      `json:"payment,omitempty"`
	PlacedAt      time.Time         `json:"placed_at"`
}

func NewStatusView(order *models.Order) *StatusView {
	view := &StatusView{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		CouponCode:    order.CouponCode,
		SubtotalCents: order.SubtotalCents,
		DiscountCents: order.DiscountCents,
		ShippingCents: order.ShippingCents,
		TotalCents:    order.TotalCents,
		Items:         make([]LineView, 0, len(order.Items)),
		PlacedAt:      order.PlacedAt,
	}
	for _, line := range order.Items {
		view.Items = append(view.Items, LineView{
			ProductID:      line.ProductID,
			ProductName:    line.ProductName,
			Color:          line.Color,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			LineTotalCents: line.LineTotalCents,
		})
	}
	if order.Payment != nil {
		view.Payment = &PaymentView{
			Method:      order.Payment.Method,
			Status:      order.Payment.Status,
			AmountCents: order.Payment.AmountCents,
			SettledAt:   order.Payment.SettledAt,
		}
	}
	return view
}
