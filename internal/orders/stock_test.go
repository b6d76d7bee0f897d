package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pymesoft/comercio-backend/pkg/db/models"
	pkgerrors "github.com/pymesoft/comercio-backend/pkg/errors"
)

func TestApplyStockDelta(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	product := models.Product{SKU: "SKU-1", Name: "Widget", Price: decimal.RequireFromString("10.00"), Stock: 5}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	if err := ApplyStockDelta(ctx, db, product.ID, -3); err != nil {
		t.Fatalf("consume stock: %v", err)
	}
	if got := loadStock(t, db, product.ID); got != 2 {
		t.Fatalf("expected stock 2, got %d", got)
	}

	if err := ApplyStockDelta(ctx, db, product.ID, 4); err != nil {
		t.Fatalf("restore stock: %v", err)
	}
	if got := loadStock(t, db, product.ID); got != 6 {
		t.Fatalf("expected stock 6, got %d", got)
	}
}

func TestApplyStockDeltaGuardsNegativeStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	product := models.Product{SKU: "SKU-2", Name: "Widget", Price: decimal.RequireFromString("10.00"), Stock: 2}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	err := ApplyStockDelta(ctx, db, product.ID, -3)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStockConflict {
		t.Fatalf("expected stock conflict, got %v", err)
	}
	if got := loadStock(t, db, product.ID); got != 2 {
		t.Fatalf("stock should be untouched, got %d", got)
	}
}

func TestApplyStockDeltaUnknownProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)

	err := ApplyStockDelta(context.Background(), db, 9999, -1)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApplyStockDeltaZeroIsNoop(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)

	if err := ApplyStockDelta(context.Background(), db, 9999, 0); err != nil {
		t.Fatalf("zero delta should be a no-op, got %v", err)
	}
}

func loadStock(t *testing.T, db *gorm.DB, productID int64) int {
	t.Helper()
	var product models.Product
	if err := db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Party{},
		&models.PaymentMethod{},
		&models.Product{},
		&models.Order{},
		&models.OrderLine{},
		&models.PaymentEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
