package models

import "time"

// Notification stores an in-app record of an order event broadcast.
type Notification struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   int64      `gorm:"column:order_id;not null;index"`
	Title     string     `gorm:"column:title;type:text;not null"`
	Message   string     `gorm:"column:message;type:text;not null"`
	ReadAt    *time.Time `gorm:"column:read_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
