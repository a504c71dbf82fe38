package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  discount_percent INTEGER NOT NULL DEFAULT 0,
  discount_ends_at DATETIME,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, product models.Product) models.Product {
	t.Helper()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func TestRepositoryFindByIDs(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)

	a := seedProduct(t, db, models.Product{SKU: "A-01", Name: "A", PriceCents: 1000, StockQty: 5, IsActive: true})
	b := seedProduct(t, db, models.Product{SKU: "B-01", Name: "B", PriceCents: 2000, StockQty: 5, IsActive: true})

	found, err := repo.FindByIDs(context.Background(), []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, int64(1000), found[a.ID].PriceCents)
	assert.Equal(t, int64(2000), found[b.ID].PriceCents)
}

func TestRepositoryRestock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)

	product := seedProduct(t, db, models.Product{SKU: "C-01", Name: "C", PriceCents: 1000, StockQty: 2, IsActive: true})
	require.NoError(t, repo.Restock(context.Background(), product.ID, 3))

	found, err := repo.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, found.StockQty)
}

func TestRepositoryClearExpiredDiscounts(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	expired := seedProduct(t, db, models.Product{SKU: "D-01", Name: "D", PriceCents: 1000, DiscountPercent: 20, DiscountEndsAt: &past, StockQty: 1, IsActive: true})
	active := seedProduct(t, db, models.Product{SKU: "E-01", Name: "E", PriceCents: 1000, DiscountPercent: 30, DiscountEndsAt: &future, StockQty: 1, IsActive: true})

	affected, err := repo.ClearExpiredDiscounts(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	cleared, err := repo.FindByID(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.Zero(t, cleared.DiscountPercent)
	assert.Nil(t, cleared.DiscountEndsAt)

	kept, err := repo.FindByID(context.Background(), active.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, kept.DiscountPercent)

	// second sweep with nothing to expire writes nothing
	affected, err = repo.ClearExpiredDiscounts(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, affected)
}
