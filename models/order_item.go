package models

import "time"

// OrderItem is an immutable snapshot of one cart line at checkout time.
type OrderItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     string    `gorm:"type:varchar(36);index;not null" json:"order_id"`
	ProductID   string    `gorm:"type:varchar(36);index;not null" json:"product_id"`
	ProductName string    `gorm:"type:varchar(255);not null" json:"product_name"`
	Qty         int       `gorm:"not null" json:"qty"`
	Price       int64     `gorm:"not null" json:"price"`
	LineTotal   int64     `gorm:"not null" json:"line_total"`
	CreatedAt   time.Time `json:"created_at"`
}
