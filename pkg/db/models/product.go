package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item with its current stock level. Stock is kept
// non-negative by the conditional update in the stock adjuster.
type Product struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	SKU         string          `gorm:"column:sku;not null;unique"`
	Name        string          `gorm:"column:name;not null"`
	Description *string         `gorm:"column:description"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Cost        decimal.Decimal `gorm:"column:cost;type:numeric(12,2);not null;default:0"`
	Stock       int             `gorm:"column:stock;not null;default:0"`
	MinStock    int             `gorm:"column:min_stock;not null;default:0"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
