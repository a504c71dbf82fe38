package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
)

// CartRepository exposes persistence operations for basket data.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindOrCreateByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	FindLine(ctx context.Context, cartID, lineID uuid.UUID) (*models.CartItem, error)
	FindLineByProduct(ctx context.Context, cartID, productID uuid.UUID, color *string) (*models.CartItem, error)
	CreateLine(ctx context.Context, line *models.CartItem) error
	UpdateLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error
	DeleteLine(ctx context.Context, lineID uuid.UUID) error
	DeleteLines(ctx context.Context, cartID uuid.UUID) error
}
