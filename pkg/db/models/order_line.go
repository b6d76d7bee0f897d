package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLine captures the quantity and pricing snapshot for one product on an
// order. Subtotal is Qty * UnitPrice at write time.
type OrderLine struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   int64           `gorm:"column:order_id;not null;index"`
	ProductID int64           `gorm:"column:product_id;not null"`
	Qty       int             `gorm:"column:qty;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal  decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Product   *Product        `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
