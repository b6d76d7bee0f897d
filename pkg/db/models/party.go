package models

import "time"

// Party is the counterparty on an order, a customer for sales or a supplier
// for purchases.
type Party struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;not null"`
	Email     *string   `gorm:"column:email"`
	Phone     *string   `gorm:"column:phone"`
	TaxID     *string   `gorm:"column:tax_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
