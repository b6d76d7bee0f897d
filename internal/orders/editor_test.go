package orders

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pymesoft/comercio-backend/pkg/db/models"
	"github.com/pymesoft/comercio-backend/pkg/enums"
	pkgerrors "github.com/pymesoft/comercio-backend/pkg/errors"
)

func productFixture(id int64, price string, stock int) models.Product {
	return models.Product{
		ID:    id,
		Price: decimal.RequireFromString(price),
		Cost:  decimal.RequireFromString(price).Div(decimal.NewFromInt(2)),
		Stock: stock,
	}
}

func TestComputeReplacementNewOrder(t *testing.T) {
	t.Parallel()

	products := map[int64]models.Product{
		1: productFixture(1, "10.00", 5),
		2: productFixture(2, "4.50", 3),
	}

	replacement, err := ComputeReplacement(enums.OrderKindSale, nil, []LineInput{
		{ProductID: 1, Qty: 2},
		{ProductID: 2, Qty: 1},
	}, products)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(replacement.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(replacement.Lines))
	}
	if !replacement.Total.Equal(decimal.RequireFromString("24.50")) {
		t.Fatalf("unexpected total %s", replacement.Total)
	}
	wantDeltas := map[int64]int{1: -2, 2: -1}
	for _, delta := range replacement.Deltas {
		if wantDeltas[delta.ProductID] != delta.Delta {
			t.Fatalf("unexpected delta for product %d: %d", delta.ProductID, delta.Delta)
		}
	}
}

func TestComputeReplacementDiffsAgainstCurrentLines(t *testing.T) {
	t.Parallel()

	// Order holds 2 units, only 3 remain on the shelf. Growing the line to 5
	// needs just the 3-unit difference, so it fits exactly.
	products := map[int64]models.Product{
		1: productFixture(1, "10.00", 3),
	}
	current := []models.OrderLine{
		{ProductID: 1, Qty: 2, UnitPrice: decimal.RequireFromString("10.00"), Subtotal: decimal.RequireFromString("20.00")},
	}

	replacement, err := ComputeReplacement(enums.OrderKindSale, current, []LineInput{{ProductID: 1, Qty: 5}}, products)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(replacement.Deltas) != 1 || replacement.Deltas[0].Delta != -3 {
		t.Fatalf("expected single delta of -3, got %+v", replacement.Deltas)
	}
	if !replacement.Total.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("unexpected total %s", replacement.Total)
	}
}

func TestComputeReplacementInsufficientStock(t *testing.T) {
	t.Parallel()

	products := map[int64]models.Product{
		1: productFixture(1, "10.00", 3),
	}
	current := []models.OrderLine{
		{ProductID: 1, Qty: 2, UnitPrice: decimal.RequireFromString("10.00"), Subtotal: decimal.RequireFromString("20.00")},
	}

	_, err := ComputeReplacement(enums.OrderKindSale, current, []LineInput{{ProductID: 1, Qty: 6}}, products)
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestComputeReplacementRemovedLineRestoresStock(t *testing.T) {
	t.Parallel()

	products := map[int64]models.Product{
		1: productFixture(1, "10.00", 0),
		2: productFixture(2, "5.00", 4),
	}
	current := []models.OrderLine{
		{ProductID: 1, Qty: 3, UnitPrice: decimal.RequireFromString("10.00"), Subtotal: decimal.RequireFromString("30.00")},
	}

	replacement, err := ComputeReplacement(enums.OrderKindSale, current, []LineInput{{ProductID: 2, Qty: 4}}, products)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantDeltas := map[int64]int{1: 3, 2: -4}
	if len(replacement.Deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %+v", replacement.Deltas)
	}
	for _, delta := range replacement.Deltas {
		if wantDeltas[delta.ProductID] != delta.Delta {
			t.Fatalf("unexpected delta for product %d: %d", delta.ProductID, delta.Delta)
		}
	}
}

func TestComputeReplacementPurchaseAddsStock(t *testing.T) {
	t.Parallel()

	products := map[int64]models.Product{
		1: productFixture(1, "10.00", 0),
	}

	replacement, err := ComputeReplacement(enums.OrderKindPurchase, nil, []LineInput{{ProductID: 1, Qty: 7}}, products)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(replacement.Deltas) != 1 || replacement.Deltas[0].Delta != 7 {
		t.Fatalf("expected +7 delta, got %+v", replacement.Deltas)
	}
	// Purchases price lines from cost, not sale price.
	if !replacement.Lines[0].UnitPrice.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("unexpected unit price %s", replacement.Lines[0].UnitPrice)
	}
}

func TestComputeReplacementKeepsCapturedPrice(t *testing.T) {
	t.Parallel()

	// The catalog moved from 10.00 to 12.00 after the line was captured.
	products := map[int64]models.Product{
		1: productFixture(1, "12.00", 10),
	}
	current := []models.OrderLine{
		{ProductID: 1, Qty: 2, UnitPrice: decimal.RequireFromString("10.00"), Subtotal: decimal.RequireFromString("20.00")},
	}

	replacement, err := ComputeReplacement(enums.OrderKindSale, current, []LineInput{{ProductID: 1, Qty: 3}}, products)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !replacement.Lines[0].UnitPrice.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("line should keep its captured price, got %s", replacement.Lines[0].UnitPrice)
	}
	if !replacement.Total.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("unexpected total %s", replacement.Total)
	}
}

func TestComputeReplacementExplicitUnitPrice(t *testing.T) {
	t.Parallel()

	products := map[int64]models.Product{
		1: productFixture(1, "10.00", 10),
	}
	agreed := decimal.RequireFromString("8.50")

	replacement, err := ComputeReplacement(enums.OrderKindSale, nil, []LineInput{
		{ProductID: 1, Qty: 2, UnitPrice: &agreed},
	}, products)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !replacement.Lines[0].UnitPrice.Equal(agreed) {
		t.Fatalf("expected agreed price 8.50, got %s", replacement.Lines[0].UnitPrice)
	}
	if !replacement.Total.Equal(decimal.RequireFromString("17.00")) {
		t.Fatalf("unexpected total %s", replacement.Total)
	}

	negative := decimal.RequireFromString("-1.00")
	_, err = ComputeReplacement(enums.OrderKindSale, nil, []LineInput{
		{ProductID: 1, Qty: 2, UnitPrice: &negative},
	}, products)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestComputeReplacementPurchaseShrinkChecksStock(t *testing.T) {
	t.Parallel()

	// Shrinking a purchase takes stock back out; only 2 units are left.
	products := map[int64]models.Product{
		1: productFixture(1, "10.00", 2),
	}
	current := []models.OrderLine{
		{ProductID: 1, Qty: 5, UnitPrice: decimal.RequireFromString("5.00"), Subtotal: decimal.RequireFromString("25.00")},
	}

	_, err := ComputeReplacement(enums.OrderKindPurchase, current, []LineInput{{ProductID: 1, Qty: 1}}, products)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected insufficient stock conflict, got %v", err)
	}
}

func TestComputeReplacementMergesDuplicateLines(t *testing.T) {
	t.Parallel()

	products := map[int64]models.Product{
		1: productFixture(1, "10.00", 10),
	}

	replacement, err := ComputeReplacement(enums.OrderKindSale, nil, []LineInput{
		{ProductID: 1, Qty: 2},
		{ProductID: 1, Qty: 3},
	}, products)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(replacement.Lines) != 1 || replacement.Lines[0].Qty != 5 {
		t.Fatalf("expected merged line of qty 5, got %+v", replacement.Lines)
	}
}

func TestComputeReplacementValidation(t *testing.T) {
	t.Parallel()

	products := map[int64]models.Product{1: productFixture(1, "10.00", 10)}

	cases := []struct {
		name    string
		desired []LineInput
	}{
		{"empty lines", nil},
		{"zero qty", []LineInput{{ProductID: 1, Qty: 0}}},
		{"negative qty", []LineInput{{ProductID: 1, Qty: -2}}},
		{"missing product id", []LineInput{{ProductID: 0, Qty: 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeReplacement(enums.OrderKindSale, nil, tc.desired, products)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestReversalDeltas(t *testing.T) {
	t.Parallel()

	lines := []models.OrderLine{
		{ProductID: 1, Qty: 2},
		{ProductID: 2, Qty: 4},
		{ProductID: 1, Qty: 1},
	}

	saleDeltas := ReversalDeltas(enums.OrderKindSale, lines)
	if len(saleDeltas) != 2 || saleDeltas[0].Delta != 3 || saleDeltas[1].Delta != 4 {
		t.Fatalf("unexpected sale reversal %+v", saleDeltas)
	}

	purchaseDeltas := ReversalDeltas(enums.OrderKindPurchase, lines)
	if purchaseDeltas[0].Delta != -3 || purchaseDeltas[1].Delta != -4 {
		t.Fatalf("unexpected purchase reversal %+v", purchaseDeltas)
	}
}
