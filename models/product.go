package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CategoryMain      = "MAIN"
	CategoryAppetizer = "APPETIZER"
	CategoryDrink     = "DRINK"
)

const (
	MovementIn         = "IN"
	MovementOut        = "OUT"
	MovementAdjustment = "ADJUSTMENT"
)

type Product struct {
	BaseModel
	Name     string  `gorm:"type:varchar(255); not null" json:"name"`
	Price    int64   `gorm:"not null" json:"price"`
	Category string  `gorm:"type:varchar(20); not null;default:'MAIN'" json:"category"`
	Stock    int     `gorm:"not null;default:0" json:"stock"`
	IsActive bool    `gorm:"not null;default:true" json:"is_active"`
	ImageURL *string `gorm:"type:varchar(255)" json:"image_url,omitempty"`
}

// StockMovement is an append-only audit entry for every stock change.
type StockMovement struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProductID string    `gorm:"type:varchar(36);index;not null" json:"product_id"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Type      string    `gorm:"type:varchar(20);index;not null" json:"type"`
	Qty       int       `gorm:"not null" json:"qty"`
	Before    int       `gorm:"not null" json:"before"`
	After     int       `gorm:"not null" json:"after"`
	Note      *string   `gorm:"type:varchar(500)" json:"note,omitempty"`
	ActorID   string    `gorm:"type:varchar(36)" json:"actor_id,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func IsValidCategory(c string) bool {
	return c == CategoryMain || c == CategoryAppetizer || c == CategoryDrink
}

func IsValidMovementType(t string) bool {
	return t == MovementIn || t == MovementOut || t == MovementAdjustment
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
