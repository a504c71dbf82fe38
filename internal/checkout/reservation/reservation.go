package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	pkgerrors "github.com/HaDo2003/DTechAPI-sub002/pkg/errors"
)

// StockReservationRequest asks for qty units of a product on behalf of one
// basket line.
type StockReservationRequest struct {
	LineID    uuid.UUID
	ProductID uuid.UUID
	Qty       int
}

// StockReservationResult reports the outcome per line. Reason is set only
// when the reservation failed.
type StockReservationResult struct {
	LineID    uuid.UUID
	ProductID uuid.UUID
	Reserved  bool
	Reason    string
}

// ReserveStock decrements product stock with conditional updates on the
// caller's transaction. The WHERE clause is the concurrency guard: two racing
// settlements cannot both take the last unit because only one update matches.
func ReserveStock(ctx context.Context, tx *gorm.DB, requests []StockReservationRequest) ([]StockReservationResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stock reservation requires a transaction")
	}
	for _, req := range requests {
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid quantity %d for product %s", req.Qty, req.ProductID))
		}
	}

	results := make([]StockReservationResult, 0, len(requests))
	for _, req := range requests {
		update := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND is_active = ? AND stock_qty >= ?", req.ProductID, true, req.Qty).
			UpdateColumn("stock_qty", gorm.Expr("stock_qty - ?", req.Qty))
		if update.Error != nil {
			return nil, update.Error
		}
		result := StockReservationResult{LineID: req.LineID, ProductID: req.ProductID}
		if update.RowsAffected > 0 {
			result.Reserved = true
			results = append(results, result)
			continue
		}

		var product models.Product
		err := tx.WithContext(ctx).Where("id = ?", req.ProductID).First(&product).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			result.Reason = "product not found"
		case err != nil:
			return nil, err
		case !product.IsActive:
			result.Reason = "product unavailable"
		default:
			result.Reason = fmt.Sprintf("only %d left", product.StockQty)
		}
		results = append(results, result)
	}
	return results, nil
}
