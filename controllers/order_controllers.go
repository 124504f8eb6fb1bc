package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// OrderController serves the customer side of the order lifecycle.
type OrderController struct {
	Orders *services.OrderService
	Retry  RetryQueue
}

func NewOrderController(orders *services.OrderService, retry RetryQueue) *OrderController {
	return &OrderController{Orders: orders, Retry: retry}
}

func (oc *OrderController) Checkout(c *gin.Context) {
	var req struct {
		DiningType    string `json:"dining_type" binding:"required,oneof=DINE_IN TAKE_AWAY"`
		PaymentChoice string `json:"payment_choice" binding:"required,oneof=CASH CASHLESS"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	result, err := oc.Orders.Checkout(c.Request.Context(), currentActor(c), services.CheckoutInput{
		DiningType:    req.DiningType,
		PaymentChoice: req.PaymentChoice,
	})
	if err != nil {
		if result != nil && result.Order != nil {
			// order exists, only the payment session failed
			utils.RespondErrorWithData(c, statusForError(err), err, gin.H{
				"order_code": result.Order.Code,
				"order":      result.Order,
			})
			return
		}
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", result)
}

func (oc *OrderController) History(c *gin.Context) {
	orders, err := oc.Orders.History(c.Request.Context(), currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order history", orders)
}

func (oc *OrderController) GetOrder(c *gin.Context) {
	order, err := oc.Orders.GetOrder(c.Request.Context(), currentActor(c), c.Param("code"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

func (oc *OrderController) PaymentSession(c *gin.Context) {
	session, err := oc.Orders.PaymentSession(c.Request.Context(), currentActor(c), c.Param("code"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment session", session)
}

// ConfirmCashless is polled by the customer after returning from the payment page.
func (oc *OrderController) ConfirmCashless(c *gin.Context) {
	code := c.Param("code")
	result, err := oc.Orders.ConfirmCashless(c.Request.Context(), currentActor(c), code, c.Query("mid"))
	if err != nil {
		if errors.Is(err, services.ErrUpstream) && oc.Retry != nil {
			oc.Retry.AddToRetryQueue(code)
		}
		respondServiceError(c, err)
		return
	}

	message := "Payment not completed yet"
	switch {
	case result.Paid && result.AlreadySettled:
		message = "Order already paid"
	case result.Paid:
		message = "Payment confirmed"
	}
	utils.RespondJSON(c, http.StatusOK, message, result)
}

func (oc *OrderController) Cancel(c *gin.Context) {
	order, err := oc.Orders.CancelOrder(c.Request.Context(), currentActor(c), c.Param("code"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}
