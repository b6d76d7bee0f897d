package payments

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pymesoft/comercio-backend/pkg/enums"
	pkgerrors "github.com/pymesoft/comercio-backend/pkg/errors"
)

// EncodeOrderRef builds the human-readable reference placed on payment intent
// descriptions, e.g. "sale 42". DecodeOrderRef is its inverse.
func EncodeOrderRef(kind enums.OrderKind, orderID int64) string {
	return fmt.Sprintf("%s %d", kind, orderID)
}

// DecodeOrderRef extracts the order id from a payment description. The id is
// the last whitespace-separated token, so prose before the reference is
// tolerated.
func DecodeOrderRef(description string) (int64, error) {
	fields := strings.Fields(description)
	if len(fields) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "payment description is empty")
	}
	id, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "payment description has no order reference").
			WithDetails(map[string]any{"description": description})
	}
	return id, nil
}
