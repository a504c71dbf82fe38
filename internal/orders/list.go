package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
	pkgpagination "github.com/HaDo2003/DTechAPI-sub002/pkg/pagination"
)

type ListParams struct {
	CustomerID uuid.UUID
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

// ListItem is the condensed history row. Line detail stays behind the
// per-order status endpoint.
type ListItem struct {
	ID          uuid.UUID            `json:"id"`
	OrderNumber string               `json:"order_number"`
	Status      enums.OrderStatus    `json:"status"`
	TotalCents  int64                `json:"total_cents"`
	ItemCount   int                  `json:"item_count"`
	Method      *enums.PaymentMethod `json:"payment_method,omitempty"`
	PlacedAt    time.Time            `json:"placed_at"`
	CancelledAt *time.Time           `json:"cancelled_at,omitempty"`
}

type listQuery struct {
	customerID uuid.UUID
	limit      int
	cursor     *pkgpagination.Cursor
}

func toListItem(m models.Order) ListItem {
	item := ListItem{
		ID:          m.ID,
		OrderNumber: m.OrderNumber,
		Status:      m.Status,
		TotalCents:  m.TotalCents,
		PlacedAt:    m.PlacedAt,
		CancelledAt: m.CancelledAt,
	}
	for _, line := range m.Items {
		item.ItemCount += line.Quantity
	}
	if m.Payment != nil {
		method := m.Payment.Method
		item.Method = &method
	}
	return item
}
