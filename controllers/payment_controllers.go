package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// SignatureValidator verifies the signature_key of a gateway notification.
type SignatureValidator interface {
	ValidateSignature(orderID, statusCode, grossAmount, signature string) bool
}

// MidtransNotification is the body Midtrans posts to the notification URL.
type MidtransNotification struct {
	OrderID           string `json:"order_id" binding:"required"`
	StatusCode        string `json:"status_code" binding:"required"`
	GrossAmount       string `json:"gross_amount" binding:"required"`
	SignatureKey      string `json:"signature_key" binding:"required"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
}

type PaymentController struct {
	Orders    *services.OrderService
	Signature SignatureValidator
	Retry     RetryQueue
}

func NewPaymentController(orders *services.OrderService, signature SignatureValidator, retry RetryQueue) *PaymentController {
	return &PaymentController{Orders: orders, Signature: signature, Retry: retry}
}

// HandleNotification verifies the callback and then re-queries the gateway
// through ConfirmNotification; the notification body itself is never trusted
// for the paid decision.
func (pc *PaymentController) HandleNotification(c *gin.Context) {
	var n MidtransNotification
	if err := c.ShouldBindJSON(&n); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	fields := logrus.Fields{
		"gateway_order_id":   n.OrderID,
		"transaction_status": n.TransactionStatus,
		"transaction_id":     n.TransactionID,
	}
	if !pc.Signature.ValidateSignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey) {
		utils.ErrorLogger.WithFields(fields).Warn("Rejected notification with invalid signature")
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid signature"))
		return
	}
	utils.InfoLogger.WithFields(fields).Info("Payment notification received")

	result, err := pc.Orders.ConfirmNotification(c.Request.Context(), n.OrderID)
	if err != nil {
		if errors.Is(err, services.ErrUpstream) && pc.Retry != nil {
			if order, lookupErr := pc.Orders.FindByGatewayRef(c.Request.Context(), n.OrderID); lookupErr == nil {
				pc.Retry.AddToRetryQueue(order.Code)
			}
		}
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Notification processed", gin.H{
		"order_code":      result.Order.Code,
		"paid":            result.Paid,
		"already_settled": result.AlreadySettled,
	})
}
