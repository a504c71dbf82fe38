package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/internal/repo"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
)

// Repository is the GORM-backed CartRepository.
type Repository struct {
	base repo.Base
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{base: repo.NewBase(tx)}
}

// FindOrCreateByCustomer loads the customer's cart, creating it lazily on
// first use.
func (r *Repository) FindOrCreateByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	record, err := r.FindByCustomer(ctx, customerID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := models.Cart{ID: uuid.New(), CustomerID: customerID}
	if err := r.base.DB(ctx).Create(&fresh).Error; err != nil {
		return nil, err
	}
	return &fresh, nil
}

// FindByCustomer loads the customer's cart with its lines.
func (r *Repository) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	var record models.Cart
	err := r.base.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("customer_id = ?", customerID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindLine returns the line only when it belongs to the given cart.
func (r *Repository) FindLine(ctx context.Context, cartID, lineID uuid.UUID) (*models.CartItem, error) {
	var line models.CartItem
	err := r.base.DB(ctx).
		Where("id = ? AND cart_id = ?", lineID, cartID).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// FindLineByProduct matches an existing line on (product, color).
func (r *Repository) FindLineByProduct(ctx context.Context, cartID, productID uuid.UUID, color *string) (*models.CartItem, error) {
	query := r.base.DB(ctx).Where("cart_id = ? AND product_id = ?", cartID, productID)
	if color == nil {
		query = query.Where("color IS NULL")
	} else {
		query = query.Where("color = ?", *color)
	}
	var line models.CartItem
	if err := query.First(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

// CreateLine inserts a new cart line.
func (r *Repository) CreateLine(ctx context.Context, line *models.CartItem) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(line).Error
}

// UpdateLineQuantity sets the absolute quantity on a line.
func (r *Repository) UpdateLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	return r.base.DB(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", lineID).
		Update("quantity", quantity).Error
}

// DeleteLine removes a single line.
func (r *Repository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	return r.base.DB(ctx).
		Where("id = ?", lineID).
		Delete(&models.CartItem{}).Error
}

// DeleteLines empties the cart.
func (r *Repository) DeleteLines(ctx context.Context, cartID uuid.UUID) error {
	return r.base.DB(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}
