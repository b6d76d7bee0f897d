package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pymesoft/comercio-backend/pkg/db/models"
	"github.com/pymesoft/comercio-backend/pkg/enums"
)

// LineInput is one requested line on an order write. UnitPrice is optional;
// when absent an existing line keeps its captured price and a new line is
// priced from the catalog.
type LineInput struct {
	ProductID int64            `json:"product_id" validate:"required,gt=0"`
	Qty       int              `json:"qty" validate:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// CreateOrderInput carries everything needed to open a new order.
type CreateOrderInput struct {
	Kind            enums.OrderKind `json:"kind" validate:"required"`
	PartyID         int64           `json:"party_id" validate:"required,gt=0"`
	PaymentMethodID *int64          `json:"payment_method_id,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	Lines           []LineInput     `json:"lines" validate:"required,min=1,dive"`
}

// ReplaceLinesInput carries the full desired line set for an order edit.
type ReplaceLinesInput struct {
	OrderID int64       `json:"-"`
	Lines   []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// OrderFilters describe the inputs supported by the order list.
type OrderFilters struct {
	Kind     *enums.OrderKind
	Status   *enums.OrderStatus
	PartyID  *int64
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// LowStockItem is one row of the replenishment report.
type LowStockItem struct {
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	MinStock  int    `json:"min_stock"`
}

// StockDelta is the signed stock adjustment for one product.
type StockDelta struct {
	ProductID int64
	Delta     int
}

// Replacement is the outcome of diffing an order's lines against a desired set.
type Replacement struct {
	Lines  []models.OrderLine
	Deltas []StockDelta
	Total  decimal.Decimal
}
