package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pymesoft/comercio-backend/pkg/enums"
)

// PaymentEvent is the immutable audit record of one confirmed payment.
// Amount keeps the full confirmed amount even when the applied portion was
// clamped by the order total. ExternalRef is unique when present and is the
// database backstop for webhook replays.
type PaymentEvent struct {
	ID          int64               `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID     int64               `gorm:"column:order_id;not null;index"`
	Source      enums.PaymentSource `gorm:"column:source;type:text;not null"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	ExternalRef *string             `gorm:"column:external_ref;uniqueIndex:idx_payment_events_external_ref"`
	Description *string             `gorm:"column:description"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}
