package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pymesoft/comercio-backend/pkg/enums"
)

// Order represents a sale to a customer or a purchase from a supplier.
// Total is always the sum of the line subtotals; TotalPaid never exceeds it.
type Order struct {
	ID                    int64             `gorm:"column:id;primaryKey;autoIncrement"`
	Kind                  enums.OrderKind   `gorm:"column:kind;type:text;not null"`
	PartyID               int64             `gorm:"column:party_id;not null;index"`
	Total                 decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	TotalPaid             decimal.Decimal   `gorm:"column:total_paid;type:numeric(12,2);not null;default:0"`
	Status                enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentMethodID       *int64            `gorm:"column:payment_method_id"`
	PaymentRef            *string           `gorm:"column:payment_ref"`
	StripePaymentIntentID *string           `gorm:"column:stripe_payment_intent_id"`
	PaidAt                *time.Time        `gorm:"column:paid_at"`
	Notes                 *string           `gorm:"column:notes"`
	Party                 *Party            `gorm:"foreignKey:PartyID"`
	Lines                 []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaymentEvents         []PaymentEvent    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// Outstanding returns the unpaid balance, never negative.
func (o Order) Outstanding() decimal.Decimal {
	balance := o.Total.Sub(o.TotalPaid)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}
