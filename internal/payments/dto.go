package payments

import (
	"github.com/shopspring/decimal"

	"github.com/pymesoft/comercio-backend/pkg/db/models"
	"github.com/pymesoft/comercio-backend/pkg/enums"
)

// RecordPaymentInput carries one confirmed payment to apply to an order.
// PaymentMethodID, when set, is stored in the same transaction as the event.
type RecordPaymentInput struct {
	OrderID         int64
	Amount          decimal.Decimal
	Source          enums.PaymentSource
	ExternalRef     *string
	Description     *string
	PaymentMethodID *int64
}

// ConfirmCashInput settles an order's outstanding balance in cash. A missing
// reference gets a generated one.
type ConfirmCashInput struct {
	OrderID         int64   `json:"-"`
	PaymentMethodID *int64  `json:"payment_method_id,omitempty"`
	Reference       *string `json:"reference,omitempty" validate:"omitempty,min=4,max=64"`
}

// PaymentResult reports what a recorded payment did to the order.
type PaymentResult struct {
	Order          *models.Order   `json:"order"`
	Applied        decimal.Decimal `json:"applied"`
	BecamePaid     bool            `json:"became_paid"`
	AlreadyApplied bool            `json:"already_applied"`
}

// IntentDetails is returned when a provider payment intent is opened.
type IntentDetails struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	AmountMinor  int64  `json:"amount_minor"`
	Currency     string `json:"currency"`
}
