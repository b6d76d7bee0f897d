package orders

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/pymesoft/comercio-backend/pkg/db/models"
	"github.com/pymesoft/comercio-backend/pkg/enums"
	pkgerrors "github.com/pymesoft/comercio-backend/pkg/errors"
)

// ComputeReplacement diffs an order's current lines against the desired set
// and produces the new lines, the per-product stock deltas, and the new total.
// It is a pure function; stock availability is validated against the product
// snapshots handed in, and the conditional update in ApplyStockDelta remains
// the authority under concurrency.
//
// For sales a line quantity consumes stock; for purchases it adds stock.
// Removed lines return what they held, grown lines take the difference, and
// new lines take their full quantity.
//
// Prices resolve in order: an explicit unit price on the request, then the
// price already captured on the order's line, then the catalog (Price for
// sales, Cost for purchases). A line's captured price never changes just
// because the catalog moved.
func ComputeReplacement(kind enums.OrderKind, current []models.OrderLine, desired []LineInput, products map[int64]models.Product) (*Replacement, error) {
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order kind %q", kind))
	}
	if len(desired) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}

	// Duplicate product rows collapse into one line; the first explicit
	// price for a product wins.
	desiredQty := make(map[int64]int, len(desired))
	desiredPrice := make(map[int64]decimal.Decimal, len(desired))
	order := make([]int64, 0, len(desired))
	for _, input := range desired {
		if input.ProductID <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required on every line")
		}
		if input.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive").
				WithDetails(map[string]any{"product_id": input.ProductID})
		}
		if input.UnitPrice != nil {
			if input.UnitPrice.IsNegative() {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative").
					WithDetails(map[string]any{"product_id": input.ProductID})
			}
			if _, set := desiredPrice[input.ProductID]; !set {
				desiredPrice[input.ProductID] = *input.UnitPrice
			}
		}
		if _, seen := desiredQty[input.ProductID]; !seen {
			order = append(order, input.ProductID)
		}
		desiredQty[input.ProductID] += input.Qty
	}

	currentQty := make(map[int64]int, len(current))
	currentPrice := make(map[int64]decimal.Decimal, len(current))
	for _, line := range current {
		currentQty[line.ProductID] += line.Qty
		if _, seen := currentPrice[line.ProductID]; !seen {
			currentPrice[line.ProductID] = line.UnitPrice
		}
	}

	sign := stockSign(kind)

	deltas := make([]StockDelta, 0, len(desiredQty)+len(currentQty))
	for _, productID := range unionProductIDs(currentQty, desiredQty) {
		diff := desiredQty[productID] - currentQty[productID]
		if diff == 0 {
			continue
		}
		delta := sign * diff
		// Any consuming delta is checked, including a shrunk purchase that
		// takes back stock which may already be sold on.
		if delta < 0 {
			product, ok := products[productID]
			if !ok {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"product_id": productID})
			}
			if product.Stock+delta < 0 {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
					WithDetails(map[string]any{
						"product_id": productID,
						"requested":  -delta,
						"available":  product.Stock,
					})
			}
		}
		deltas = append(deltas, StockDelta{ProductID: productID, Delta: delta})
	}

	lines := make([]models.OrderLine, 0, len(order))
	total := decimal.Zero
	for _, productID := range order {
		product, ok := products[productID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID})
		}
		qty := desiredQty[productID]
		unitPrice, ok := desiredPrice[productID]
		if !ok {
			if captured, held := currentPrice[productID]; held {
				unitPrice = captured
			} else if kind == enums.OrderKindPurchase {
				unitPrice = product.Cost
			} else {
				unitPrice = product.Price
			}
		}
		subtotal := unitPrice.Mul(decimal.NewFromInt(int64(qty)))
		lines = append(lines, models.OrderLine{
			ProductID: productID,
			Qty:       qty,
			UnitPrice: unitPrice,
			Subtotal:  subtotal,
		})
		total = total.Add(subtotal)
	}

	return &Replacement{Lines: lines, Deltas: deltas, Total: total}, nil
}

// ReversalDeltas returns the stock adjustments that undo the given lines,
// used when an order is deleted.
func ReversalDeltas(kind enums.OrderKind, lines []models.OrderLine) []StockDelta {
	sign := -stockSign(kind)
	qty := make(map[int64]int, len(lines))
	for _, line := range lines {
		qty[line.ProductID] += line.Qty
	}
	ids := make([]int64, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	deltas := make([]StockDelta, 0, len(ids))
	for _, id := range ids {
		deltas = append(deltas, StockDelta{ProductID: id, Delta: sign * qty[id]})
	}
	return deltas
}

func stockSign(kind enums.OrderKind) int {
	if kind == enums.OrderKindPurchase {
		return 1
	}
	return -1
}

func unionProductIDs(a, b map[int64]int) []int64 {
	seen := make(map[int64]struct{}, len(a)+len(b))
	ids := make([]int64, 0, len(a)+len(b))
	for id := range a {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for id := range b {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
