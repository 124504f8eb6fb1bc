package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentMethodCash         = "CASH"
	PaymentMethodQRIS         = "QRIS"
	PaymentMethodCard         = "CARD"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
	PaymentMethodEWallet      = "EWALLET"
	PaymentMethodOther        = "OTHER"
)

// Payment represents a settlement record for an order
type Payment struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID      string    `gorm:"type:varchar(36);index;not null" json:"order_id"`
	Method       string    `gorm:"type:varchar(20);not null" json:"method"`
	GatewayType  *string   `gorm:"type:varchar(50)" json:"gateway_type,omitempty"` // raw payment_type from the gateway
	Amount       int64     `gorm:"not null" json:"amount"`
	RefCode      *string   `gorm:"type:varchar(100);uniqueIndex" json:"ref_code,omitempty"`
	CashReceived int64     `json:"cash_received,omitempty"`
	Change       int64     `json:"change,omitempty"`
	VerifiedBy   *string   `gorm:"type:varchar(36)" json:"verified_by,omitempty"`
	PaidAt       time.Time `gorm:"not null" json:"paid_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
