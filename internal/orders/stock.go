package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pymesoft/comercio-backend/pkg/db/models"
	pkgerrors "github.com/pymesoft/comercio-backend/pkg/errors"
)

// ApplyStockDelta adjusts a product's stock by delta inside the caller's
// transaction. The guard in the WHERE clause keeps stock non-negative even
// when two writers race; losing the guard surfaces as CodeStockConflict so
// callers can retry.
func ApplyStockDelta(ctx context.Context, tx *gorm.DB, productID int64, delta int) error {
	if delta == 0 {
		return nil
	}

	res := tx.WithContext(ctx).Exec(
		"UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ? AND stock + ? >= 0",
		delta, time.Now().UTC(), productID, delta,
	)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "adjust product stock")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product existence")
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	}
	return pkgerrors.New(pkgerrors.CodeStockConflict, "insufficient stock").
		WithDetails(map[string]any{"product_id": productID, "delta": delta})
}

// ApplyStockDeltas applies each delta in order, stopping at the first failure.
func ApplyStockDeltas(ctx context.Context, tx *gorm.DB, deltas []StockDelta) error {
	for _, d := range deltas {
		if err := ApplyStockDelta(ctx, tx, d.ProductID, d.Delta); err != nil {
			return err
		}
	}
	return nil
}
