package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

const historyLimit = 25

// OrderService is the order lifecycle engine: checkout, settlement and cancellation.
// Settlement lives in payment_service.go.
type OrderService struct {
	db        *gorm.DB
	inventory *InventoryService
	gateway   PaymentGateway
	counter   QueueCounter
	publisher EventPublisher
	pricing   PricingPolicy
	loc       *time.Location
	now       func() time.Time
}

type OrderServiceConfig struct {
	Gateway   PaymentGateway
	Counter   QueueCounter
	Publisher EventPublisher
	Pricing   PricingPolicy
	Location  *time.Location
}

func NewOrderService(db *gorm.DB, inventory *InventoryService, cfg OrderServiceConfig) *OrderService {
	s := &OrderService{
		db:        db,
		inventory: inventory,
		gateway:   cfg.Gateway,
		counter:   cfg.Counter,
		publisher: cfg.Publisher,
		pricing:   cfg.Pricing,
		loc:       cfg.Location,
		now:       time.Now,
	}
	if s.counter == nil {
		s.counter = DBQueueCounter{}
	}
	if s.publisher == nil {
		s.publisher = NopPublisher{}
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

type CheckoutInput struct {
	DiningType    string
	PaymentChoice string
}

type CheckoutResult struct {
	Order   *models.Order   `json:"order"`
	Session *PaymentSession `json:"payment_session,omitempty"`
}

// Checkout turns the actor's cart into an order awaiting payment. Cart removal,
// order creation and queue numbering share one transaction. For cashless orders
// a gateway session is requested after commit; if that fails the order is kept
// and the error is returned together with the result.
func (s *OrderService) Checkout(ctx context.Context, actor models.Actor, input CheckoutInput) (*CheckoutResult, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	if !models.IsValidDiningType(input.DiningType) {
		return nil, validationError("dining type must be DINE_IN or TAKE_AWAY")
	}
	if !models.IsValidPaymentChoice(input.PaymentChoice) {
		return nil, validationError("payment choice must be CASH or CASHLESS")
	}

	now := s.now().In(s.loc)
	serviceDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		err := tx.Preload("Items.Product").Where("user_id = ?", actor.UserID).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && len(cart.Items) == 0) {
			return ErrEmptyCart
		}
		if err != nil {
			return fmt.Errorf("failed to load cart: %w", err)
		}

		lines := cart.Items
		sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })

		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			p := line.Product
			if !p.IsActive {
				return fmt.Errorf("%w (%s)", ErrProductInactive, p.Name)
			}
			if line.Qty > p.Stock {
				return fmt.Errorf("%w: %s has %d left, requested %d", ErrInsufficientStock, p.Name, p.Stock, line.Qty)
			}
			items = append(items, models.OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Qty:         line.Qty,
				Price:       p.Price,
				LineTotal:   p.Price * int64(line.Qty),
			})
		}

		amounts := s.pricing.Compute(items)

		queueNo, err := s.counter.Next(ctx, tx, now.Format("20060102"))
		if err != nil {
			return err
		}

		order = models.Order{
			BaseModel:     models.BaseModel{ID: uuid.NewString()},
			Code:          models.FormatOrderCode(now, queueNo),
			QueueNo:       queueNo,
			UserID:        actor.UserID,
			DiningType:    input.DiningType,
			PaymentChoice: input.PaymentChoice,
			Status:        models.OrderStatusAwaitingPayment,
			Subtotal:      amounts.Subtotal,
			Discount:      amounts.Discount,
			Tax:           amounts.Tax,
			Total:         amounts.Total,
			ServiceDate:   serviceDate,
			Items:         items,
		}
		order.GatewayOrderID = models.GatewayOrderRef(order.Code, order.ID)

		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return deleteCart(tx, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_code": order.Code,
		"user_id":    order.UserID,
		"total":      order.Total,
		"payment":    order.PaymentChoice,
	}).Info("Order created")
	s.publisher.Publish(ctx, newOrderEvent(models.EventOrderCreated, &order, nil))

	result := &CheckoutResult{Order: &order}
	if order.PaymentChoice != models.PaymentChoiceCashless {
		return result, nil
	}

	session, err := s.createSession(ctx, &order)
	if err != nil {
		return result, err
	}
	result.Session = session
	return result, nil
}

// PaymentSession returns the gateway session of a cashless order, creating one if
// the order has none yet.
func (s *OrderService) PaymentSession(ctx context.Context, actor models.Actor, code string) (*PaymentSession, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	order, err := s.findOrder(ctx, actor, "code = ?", code)
	if err != nil {
		return nil, err
	}
	if order.PaymentChoice != models.PaymentChoiceCashless {
		return nil, ErrNotCashless
	}
	switch order.Status {
	case models.OrderStatusPaid:
		return nil, ErrOrderAlreadyPaid
	case models.OrderStatusCancelled:
		return nil, ErrOrderCancelled
	}
	if order.PaymentToken != nil && *order.PaymentToken != "" {
		return &PaymentSession{Token: *order.PaymentToken, GatewayOrderID: order.GatewayOrderID}, nil
	}
	return s.createSession(ctx, order)
}

func (s *OrderService) createSession(ctx context.Context, order *models.Order) (*PaymentSession, error) {
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: no payment gateway configured", ErrUpstream)
	}

	req := SessionRequest{GatewayOrderID: order.GatewayOrderID, Amount: order.Total}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", order.UserID).Error; err == nil {
		req.CustomerName = user.Name
		req.CustomerEmail = user.Email
	}

	session, err := s.gateway.CreateSession(ctx, req)
	if err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"order_code":       order.Code,
			"gateway_order_id": order.GatewayOrderID,
		}).Errorf("Payment session creation failed, order stays awaiting payment: %v", err)
		if !errors.Is(err, ErrUpstream) && !errors.Is(err, ErrValidation) {
			err = fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		return nil, err
	}

	token := session.Token
	if err := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", order.ID).
		Update("payment_token", token).Error; err != nil {
		utils.ErrorLogger.Errorf("Failed to store payment token for %s: %v", order.Code, err)
	} else {
		order.PaymentToken = &token
	}
	return session, nil
}

// GetOrder returns an order by code. Orders of other customers are reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, actor models.Actor, code string) (*models.Order, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	return s.findOrder(ctx, actor, "code = ?", code)
}

func (s *OrderService) GetOrderByID(ctx context.Context, actor models.Actor, id string) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	return s.findOrder(ctx, actor, "id = ?", id)
}

// History lists the actor's latest orders, newest first.
func (s *OrderService) History(ctx context.Context, actor models.Actor) ([]models.Order, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	var orders []models.Order
	err := s.db.WithContext(ctx).Preload("Items").Preload("Payments").
		Where("user_id = ?", actor.UserID).
		Order("created_at DESC").Limit(historyLimit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}
	return orders, nil
}

type OrderFilter struct {
	Query   string
	Status  string
	Dining  string
	Range   string
	Page    int
	PerPage int
}

// ListOrders is the admin order list.
func (s *OrderService) ListOrders(ctx context.Context, actor models.Actor, filter OrderFilter) ([]models.Order, Pagination, error) {
	if !actor.IsAdmin() {
		return nil, Pagination{}, ErrAdminOnly
	}
	page, perPage := normalizePage(filter.Page, filter.PerPage)

	query := s.db.WithContext(ctx).Model(&models.Order{}).
		Joins("LEFT JOIN users ON users.id = orders.user_id")

	switch filter.Status {
	case "", "all":
	case models.OrderStatusAwaitingPayment, models.OrderStatusPaid, models.OrderStatusCancelled:
		query = query.Where("orders.status = ?", filter.Status)
	case models.OrderStatusOpen:
		// OPEN orders are carts and never persisted
		query = query.Where("1 = 0")
	default:
		return nil, Pagination{}, validationError("invalid status %q", filter.Status)
	}

	switch filter.Dining {
	case "", "all":
	case models.DiningDineIn, models.DiningTakeAway:
		query = query.Where("orders.dining_type = ?", filter.Dining)
	default:
		return nil, Pagination{}, validationError("invalid dining type %q", filter.Dining)
	}

	now := s.now().In(s.loc)
	switch filter.Range {
	case "", "all":
	case "today":
		query = query.Where("orders.created_at >= ?", time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc).UTC())
	case "7d":
		query = query.Where("orders.created_at >= ?", now.AddDate(0, 0, -7).UTC())
	case "30d":
		query = query.Where("orders.created_at >= ?", now.AddDate(0, 0, -30).UTC())
	default:
		return nil, Pagination{}, validationError("invalid range %q", filter.Range)
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		like := containsPattern(q)
		query = query.Where("LOWER(orders.code) LIKE ? ESCAPE '!' OR LOWER(users.name) LIKE ? ESCAPE '!'", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []models.Order
	err := query.Select("orders.*").
		Preload("Items").Preload("Payments").Preload("User").
		Order("orders.created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&orders).Error
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, newPagination(page, perPage, total), nil
}

// CancelOrder moves an order awaiting payment to CANCELLED. Cancelling an
// already cancelled order is a no-op.
func (s *OrderService) CancelOrder(ctx context.Context, actor models.Actor, code string) (*models.Order, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	order, err := s.findOrder(ctx, actor, "code = ?", code)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case models.OrderStatusCancelled:
		return order, nil
	case models.OrderStatusPaid:
		return nil, ErrOrderNotCancelable
	}

	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderStatusAwaitingPayment).
		Updates(map[string]interface{}{
			"status":     models.OrderStatusCancelled,
			"closed_at":  now,
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrOrderNotCancelable
	}
	order.Status = models.OrderStatusCancelled
	order.ClosedAt = &now

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_code": order.Code,
		"actor":      actor.Role,
	}).Info("Order cancelled")
	s.publisher.Publish(ctx, newOrderEvent(models.EventOrderCancelled, order, nil))
	return order, nil
}

// StaleCashlessOrders lists cashless orders still awaiting payment that were created before cutoff.
func (s *OrderService) StaleCashlessOrders(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("status = ? AND payment_choice = ? AND created_at < ?",
			models.OrderStatusAwaitingPayment, models.PaymentChoiceCashless, cutoff.UTC()).
		Order("created_at ASC").Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) findOrder(ctx context.Context, actor models.Actor, cond string, arg interface{}) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").Preload("Payments").Where(cond, arg).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if !actor.CanAccess(order.UserID) {
		return nil, ErrOrderNotFound
	}
	return &order, nil
}
