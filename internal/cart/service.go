package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/internal/pricing"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	pkgerrors "github.com/HaDo2003/DTechAPI-sub002/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// Service exposes basket operations.
type Service interface {
	AddItem(ctx context.Context, customerID uuid.UUID, input AddItemInput) (*View, error)
	Get(ctx context.Context, customerID uuid.UUID) (*View, error)
	UpdateQuantity(ctx context.Context, customerID, lineID uuid.UUID, delta int) (*View, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
}

type service struct {
	repo     CartRepository
	products productLoader
	tx       txRunner
	now      func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, products productLoader, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, products: products, tx: tx, now: time.Now}, nil
}

// AddItem merges onto an existing (product, color) line or appends a new one.
func (s *service) AddItem(ctx context.Context, customerID uuid.UUID, input AddItemInput) (*View, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.loadSellableProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindOrCreateByCustomer(ctx, customerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		existing, err := repo.FindLineByProduct(ctx, record.ID, input.ProductID, input.Color)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find cart line")
		}

		requested := input.Quantity
		if existing != nil {
			requested += existing.Quantity
		}
		if requested > product.StockQty {
			return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("only %d left", product.StockQty)).
				WithDetails(map[string]any{"product_id": product.ID, "available": product.StockQty})
		}

		if existing != nil {
			return repo.UpdateLineQuantity(ctx, existing.ID, requested)
		}
		line := models.CartItem{
			CartID:    record.ID,
			ProductID: input.ProductID,
			Quantity:  input.Quantity,
			Color:     input.Color,
		}
		return repo.CreateLine(ctx, &line)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, customerID)
}

// Get materializes the basket with current catalog prices.
func (s *service) Get(ctx context.Context, customerID uuid.UUID) (*View, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	record, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// An untouched cart reads as empty, not as an error.
			return &View{CustomerID: customerID, Items: []LineView{}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	return s.materialize(ctx, record)
}

// UpdateQuantity applies a delta; a resulting quantity <= 0 removes the line.
func (s *service) UpdateQuantity(ctx context.Context, customerID, lineID uuid.UUID, delta int) (*View, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if lineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line id is required")
	}

	record, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		line, err := repo.FindLine(ctx, record.ID, lineID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find cart line")
		}

		next := line.Quantity + delta
		if next <= 0 {
			return repo.DeleteLine(ctx, line.ID)
		}

		product, err := s.loadSellableProduct(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if next > product.StockQty {
			return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("only %d left", product.StockQty)).
				WithDetails(map[string]any{"product_id": product.ID, "available": product.StockQty})
		}
		return repo.UpdateLineQuantity(ctx, line.ID, next)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, customerID)
}

// Clear empties the basket. Settlement calls this after commit; failures are
// the caller's to log, never to surface.
func (s *service) Clear(ctx context.Context, customerID uuid.UUID) error {
	record, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return s.repo.DeleteLines(ctx, record.ID)
}

func (s *service) materialize(ctx context.Context, record *models.Cart) (*View, error) {
	view := &View{
		CartID:     record.ID,
		CustomerID: record.CustomerID,
		Items:      make([]LineView, 0, len(record.Items)),
	}
	if len(record.Items) == 0 {
		return view, nil
	}

	ids := make([]uuid.UUID, 0, len(record.Items))
	for _, line := range record.Items {
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	now := s.now()
	for _, line := range record.Items {
		product, ok := products[line.ProductID]
		if !ok || !product.IsActive {
			// Delisted products drop out of the view; settlement would
			// reject them anyway.
			continue
		}
		quote, lineTotal := pricing.QuoteLine(product, line.Quantity, now)
		view.Items = append(view.Items, LineView{
			LineID:              line.ID,
			ProductID:           product.ID,
			ProductName:         product.Name,
			SKU:                 product.SKU,
			Color:               line.Color,
			Quantity:            line.Quantity,
			UnitPriceCents:      quote.UnitPriceCents,
			DiscountCents:       quote.DiscountCents,
			FinalUnitPriceCents: quote.FinalUnitPriceCents,
			LineTotalCents:      lineTotal,
		})
		view.TotalQuantity += line.Quantity
		view.SubtotalCents += lineTotal
	}
	return view, nil
}

func (s *service) loadSellableProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}
