package models

import (
	"fmt"
	"time"
)

const (
	OrderStatusOpen            = "OPEN"
	OrderStatusAwaitingPayment = "AWAITING_PAYMENT"
	OrderStatusPaid            = "PAID"
	OrderStatusCancelled       = "CANCELLED"
)

const (
	DiningDineIn   = "DINE_IN"
	DiningTakeAway = "TAKE_AWAY"
)

const (
	PaymentChoiceCash     = "CASH"
	PaymentChoiceCashless = "CASHLESS"
)

type Order struct {
	BaseModel
	Code           string      `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`
	GatewayOrderID string      `gorm:"type:varchar(64);uniqueIndex;not null" json:"gateway_order_id"`
	QueueNo        int         `gorm:"not null" json:"queue_no"`
	UserID         string      `gorm:"type:varchar(36);index;not null" json:"user_id"`
	User           *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	DiningType     string      `gorm:"type:varchar(20);not null" json:"dining_type"`
	PaymentChoice  string      `gorm:"type:varchar(20);not null" json:"payment_choice"`
	Status         string      `gorm:"type:varchar(20);index;not null;default:'AWAITING_PAYMENT'" json:"status"`
	Subtotal       int64       `gorm:"not null" json:"subtotal"`
	Discount       int64       `gorm:"not null;default:0" json:"discount"`
	Tax            int64       `gorm:"not null;default:0" json:"tax"`
	Total          int64       `gorm:"not null" json:"total"`
	ServiceDate    time.Time   `gorm:"index;not null" json:"service_date"`
	PaymentToken   *string     `gorm:"type:varchar(255)" json:"payment_token,omitempty"`
	ClosedAt       *time.Time  `json:"closed_at,omitempty"`
	Items          []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Payments       []Payment   `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
}

// FormatOrderCode builds the ORD-YYYYMMDD-NNN display code.
func FormatOrderCode(day time.Time, queueNo int) string {
	return fmt.Sprintf("ORD-%s-%03d", day.Format("20060102"), queueNo)
}

// GatewayOrderRef derives the gateway-facing id from the code and a short id suffix.
func GatewayOrderRef(code, orderID string) string {
	suffix := orderID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return code + "-" + suffix
}

func IsValidDiningType(d string) bool {
	return d == DiningDineIn || d == DiningTakeAway
}

func IsValidPaymentChoice(p string) bool {
	return p == PaymentChoiceCash || p == PaymentChoiceCashless
}
