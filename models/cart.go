package models

import "time"

// Cart belongs to exactly one user and is removed once checked out.
type Cart struct {
	BaseModel
	UserID string     `gorm:"type:varchar(36);uniqueIndex;not null" json:"user_id"`
	Items  []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
}

type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    string    `gorm:"type:varchar(36);uniqueIndex:idx_cart_product;not null" json:"cart_id"`
	ProductID string    `gorm:"type:varchar(36);uniqueIndex:idx_cart_product;not null" json:"product_id"`
	Product   Product   `gorm:"foreignKey:ProductID" json:"product"`
	Qty       int       `gorm:"not null" json:"qty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
