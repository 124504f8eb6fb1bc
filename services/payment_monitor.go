package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

const monitorBatchSize = 50

// PaymentMetrics menyimpan metrik rekonsiliasi pembayaran
type PaymentMetrics struct {
	Attempts  int64      `json:"attempts"`
	Paid      int64      `json:"paid"`
	Pending   int64      `json:"pending"`
	Cancelled int64      `json:"cancelled"`
	Failed    int64      `json:"failed"`
	QueueSize int        `json:"queue_size"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
}

// PaymentMonitor re-drives ConfirmCashless for cashless orders that are still
// awaiting payment, and cancels the ones the gateway will never settle.
type PaymentMonitor struct {
	orders        *OrderService
	metrics       PaymentMetrics
	retryQueue    []string
	retryInterval time.Duration
	expiry        time.Duration
	mutex         sync.Mutex
	stopChan      chan struct{}
	stopOnce      sync.Once
}

func NewPaymentMonitor(orders *OrderService, retryInterval, expiry time.Duration) *PaymentMonitor {
	return &PaymentMonitor{
		orders:        orders,
		retryQueue:    make([]string, 0),
		retryInterval: retryInterval,
		expiry:        expiry,
		stopChan:      make(chan struct{}),
	}
}

// Start memulai goroutine monitoring
func (pm *PaymentMonitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(pm.retryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-pm.stopChan:
				return
			case <-ticker.C:
				pm.RunOnce(ctx)
			}
		}
	}()
	utils.InfoLogger.WithField("interval", pm.retryInterval.String()).Info("Payment monitor started")
}

func (pm *PaymentMonitor) Stop() {
	pm.stopOnce.Do(func() { close(pm.stopChan) })
}

// AddToRetryQueue menambahkan kode order ke antrian retry
func (pm *PaymentMonitor) AddToRetryQueue(code string) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	for _, c := range pm.retryQueue {
		if c == code {
			return
		}
	}
	pm.retryQueue = append(pm.retryQueue, code)
	pm.metrics.QueueSize = len(pm.retryQueue)
}

// RunOnce drains the retry queue and then sweeps stale cashless orders.
func (pm *PaymentMonitor) RunOnce(ctx context.Context) {
	pm.mutex.Lock()
	queue := pm.retryQueue
	pm.retryQueue = make([]string, 0)
	pm.metrics.QueueSize = 0
	pm.mutex.Unlock()

	seen := make(map[string]bool, len(queue))
	for _, code := range queue {
		seen[code] = true
		order, err := pm.orders.GetOrder(ctx, models.SystemActor, code)
		if err != nil {
			utils.ErrorLogger.Errorf("Error loading order %s for retry: %v", code, err)
			continue
		}
		if order.Status != models.OrderStatusAwaitingPayment {
			continue
		}
		pm.reconcile(ctx, *order)
	}

	cutoff := pm.orders.now().Add(-pm.retryInterval)
	stale, err := pm.orders.StaleCashlessOrders(ctx, cutoff, monitorBatchSize)
	if err != nil {
		utils.ErrorLogger.Errorf("Error listing stale orders: %v", err)
	}
	for _, order := range stale {
		if seen[order.Code] {
			continue
		}
		pm.reconcile(ctx, order)
	}

	now := pm.orders.now()
	pm.mutex.Lock()
	pm.metrics.LastRunAt = &now
	pm.mutex.Unlock()
}

func (pm *PaymentMonitor) reconcile(ctx context.Context, order models.Order) {
	pm.count(func(m *PaymentMetrics) { m.Attempts++ })

	res, err := pm.orders.ConfirmCashless(ctx, models.SystemActor, order.Code, "")
	if err != nil {
		pm.count(func(m *PaymentMetrics) { m.Failed++ })
		if errors.Is(err, ErrUpstream) {
			pm.AddToRetryQueue(order.Code)
		}
		utils.ErrorLogger.WithField("order_code", order.Code).Errorf("Payment reconciliation failed: %v", err)
		return
	}
	if res.Paid {
		pm.count(func(m *PaymentMetrics) { m.Paid++ })
		return
	}

	expired := pm.orders.now().Sub(order.CreatedAt) > pm.expiry
	if IsFinalFailure(*res.GatewayStatus) || expired {
		if _, err := pm.orders.CancelOrder(ctx, models.SystemActor, order.Code); err != nil {
			pm.count(func(m *PaymentMetrics) { m.Failed++ })
			utils.ErrorLogger.WithField("order_code", order.Code).Errorf("Error cancelling unpaid order: %v", err)
			return
		}
		pm.count(func(m *PaymentMetrics) { m.Cancelled++ })
		utils.InfoLogger.WithFields(logrus.Fields{
			"order_code": order.Code,
			"status":     res.GatewayStatus.TransactionStatus,
		}).Info("Unpaid cashless order cancelled")
		return
	}
	pm.count(func(m *PaymentMetrics) { m.Pending++ })
}

func (pm *PaymentMonitor) count(update func(*PaymentMetrics)) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()
	update(&pm.metrics)
}

// GetMetrics mengembalikan metrik saat ini
func (pm *PaymentMonitor) GetMetrics() PaymentMetrics {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()
	return pm.metrics
}
