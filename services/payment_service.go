package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CashSettlement struct {
	Order   *models.Order   `json:"order"`
	Payment *models.Payment `json:"payment"`
	Change  int64           `json:"change"`
}

// ConfirmResult is the outcome of a cashless confirmation attempt.
type ConfirmResult struct {
	Paid           bool            `json:"paid"`
	AlreadySettled bool            `json:"already_settled"`
	DoubleCharged  bool            `json:"double_charged,omitempty"`
	GatewayStatus  *GatewayStatus  `json:"gateway_status"`
	Order          *models.Order   `json:"order"`
	Payment        *models.Payment `json:"payment,omitempty"`
}

// SettleCash is the cashier entry point: it marks the order PAID, debits stock
// and records a CASH payment in one transaction.
func (s *OrderService) SettleCash(ctx context.Context, actor models.Actor, orderID string, amountTendered int64) (*CashSettlement, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if amountTendered < 0 {
		return nil, validationError("amount must not be negative")
	}

	now := s.now()
	var (
		order   models.Order
		payment models.Payment
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadOrderTx(tx, &order, "id = ?", orderID); err != nil {
			return err
		}
		switch order.Status {
		case models.OrderStatusPaid:
			return ErrOrderAlreadyPaid
		case models.OrderStatusCancelled:
			return ErrOrderCancelled
		}
		if amountTendered < order.Total {
			return ErrInsufficientCash
		}

		transitioned, err := markPaid(tx, &order, now)
		if err != nil {
			return err
		}
		if !transitioned {
			return ErrOrderAlreadyPaid
		}
		if err := s.inventory.DebitForOrder(tx, actor.UserID, &order); err != nil {
			return err
		}

		cashier := actor.UserID
		payment = models.Payment{
			OrderID:      order.ID,
			Method:       models.PaymentMethodCash,
			Amount:       order.Total,
			CashReceived: amountTendered,
			Change:       amountTendered - order.Total,
			VerifiedBy:   &cashier,
			PaidAt:       now.UTC(),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Payments = append(order.Payments, payment)
	utils.InfoLogger.WithFields(logrus.Fields{
		"order_code": order.Code,
		"total":      utils.FormatCurrencyIDR(order.Total),
		"change":     utils.FormatCurrencyIDR(payment.Change),
	}).Info("Order settled in cash")
	s.publisher.Publish(ctx, newOrderEvent(models.EventOrderPaid, &order, &payment))

	return &CashSettlement{Order: &order, Payment: &payment, Change: payment.Change}, nil
}

// ConfirmCashless asks the gateway for the status of the order's gateway id and,
// when paid, settles the order. It is idempotent: repeated or concurrent calls
// produce one PAID transition, one stock debit and one payment row.
// An empty gatewayOrderRef means the id stored on the order.
func (s *OrderService) ConfirmCashless(ctx context.Context, actor models.Actor, orderCode, gatewayOrderRef string) (*ConfirmResult, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	order, err := s.findOrder(ctx, actor, "code = ?", orderCode)
	if err != nil {
		return nil, err
	}

	ref := strings.TrimSpace(gatewayOrderRef)
	if ref == "" {
		ref = order.GatewayOrderID
	}
	if ref != order.GatewayOrderID {
		return nil, ErrGatewayRefDiffer
	}
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: no payment gateway configured", ErrUpstream)
	}

	status, err := s.gateway.QueryStatus(ctx, ref)
	if err != nil {
		if !errors.Is(err, ErrUpstream) {
			err = fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		return nil, err
	}
	if status.OrderID != "" && status.OrderID != ref {
		return nil, fmt.Errorf("%w: status returned for %s, expected %s", ErrUpstream, status.OrderID, ref)
	}

	if !IsPaid(*status) {
		return &ConfirmResult{Paid: false, GatewayStatus: status, Order: order}, nil
	}
	return s.settleCashless(ctx, actor, order.ID, status)
}

// ConfirmNotification is the webhook path: it resolves the order from the
// gateway order id and confirms it as the system actor.
func (s *OrderService) ConfirmNotification(ctx context.Context, gatewayOrderRef string) (*ConfirmResult, error) {
	order, err := s.FindByGatewayRef(ctx, gatewayOrderRef)
	if err != nil {
		return nil, err
	}
	return s.ConfirmCashless(ctx, models.SystemActor, order.Code, gatewayOrderRef)
}

// FindByGatewayRef resolves an order from the id it was registered under at the gateway.
func (s *OrderService) FindByGatewayRef(ctx context.Context, gatewayOrderRef string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Where("gateway_order_id = ?", gatewayOrderRef).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

func (s *OrderService) settleCashless(ctx context.Context, actor models.Actor, orderID string, status *GatewayStatus) (*ConfirmResult, error) {
	var refCode *string
	if status.TransactionID != "" {
		ref := status.TransactionID
		refCode = &ref
	}
	var gatewayType *string
	if status.PaymentType != "" {
		pt := status.PaymentType
		gatewayType = &pt
	}

	now := s.now()
	result := &ConfirmResult{Paid: true, GatewayStatus: status}
	var (
		order        models.Order
		transitioned bool
		created      bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadOrderTx(tx, &order, "id = ?", orderID); err != nil {
			return err
		}
		if order.Status == models.OrderStatusCancelled {
			return ErrOrderCancelled
		}

		if order.Status != models.OrderStatusPaid {
			var err error
			transitioned, err = markPaid(tx, &order, now)
			if err != nil {
				return err
			}
			if transitioned {
				if err := s.inventory.DebitForOrder(tx, actor.UserID, &order); err != nil {
					return err
				}
			}
		}

		if refCode != nil {
			var existing models.Payment
			err := tx.Where("ref_code = ?", *refCode).First(&existing).Error
			if err == nil {
				result.Payment = &existing
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to look up payment: %w", err)
			}
		}

		if !transitioned {
			var count int64
			if err := tx.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to count payments: %w", err)
			}
			if count > 0 {
				// settled through another payment; this one needs a manual refund
				result.DoubleCharged = refCode != nil
				return nil
			}
		}

		payment := models.Payment{
			OrderID:     order.ID,
			Method:      MapPaymentMethod(status.PaymentType),
			GatewayType: gatewayType,
			Amount:      ParseGrossAmount(status.GrossAmount, order.Total),
			RefCode:     refCode,
			PaidAt:      now.UTC(),
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ref_code"}},
			DoNothing: true,
		}).Create(&payment)
		if res.Error != nil {
			return fmt.Errorf("failed to record payment: %w", res.Error)
		}
		if res.RowsAffected == 0 && refCode != nil {
			var existing models.Payment
			if err := tx.Where("ref_code = ?", *refCode).First(&existing).Error; err != nil {
				return fmt.Errorf("failed to look up payment: %w", err)
			}
			result.Payment = &existing
			return nil
		}
		created = true
		result.Payment = &payment
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderCancelled) {
			utils.ErrorLogger.WithFields(logrus.Fields{
				"order_id":       orderID,
				"transaction_id": status.TransactionID,
			}).Error("Gateway reports payment for a cancelled order, refund required")
		}
		return nil, err
	}

	result.AlreadySettled = !transitioned && !created
	if err := s.db.WithContext(ctx).Preload("Items").Preload("Payments").First(&order, "id = ?", orderID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	result.Order = &order

	fields := logrus.Fields{
		"order_code":     order.Code,
		"transaction_id": status.TransactionID,
		"payment_type":   status.PaymentType,
	}
	switch {
	case result.DoubleCharged:
		utils.ErrorLogger.WithFields(fields).Warn("Order already settled by another payment, refund required")
	case transitioned:
		utils.InfoLogger.WithFields(fields).Info("Cashless payment confirmed")
		s.publisher.Publish(ctx, newOrderEvent(models.EventOrderPaid, &order, result.Payment))
	case created:
		utils.InfoLogger.WithFields(fields).Info("Missing payment record restored for paid order")
	}
	return result, nil
}

func loadOrderTx(tx *gorm.DB, order *models.Order, cond string, arg interface{}) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where(cond, arg).First(order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to load order: %w", err)
	}
	if err := tx.Where("order_id = ?", order.ID).Find(&order.Items).Error; err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	return nil
}

// markPaid moves the order from AWAITING_PAYMENT to PAID. It reports false when
// another transaction already did so.
func markPaid(tx *gorm.DB, order *models.Order, now time.Time) (bool, error) {
	now = now.UTC()
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderStatusAwaitingPayment).
		Updates(map[string]interface{}{
			"status":     models.OrderStatusPaid,
			"closed_at":  now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	order.Status = models.OrderStatusPaid
	order.ClosedAt = &now
	return true, nil
}
