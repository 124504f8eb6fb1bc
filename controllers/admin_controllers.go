package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// MetricsSource exposes payment reconciliation counters.
type MetricsSource interface {
	GetMetrics() services.PaymentMetrics
}

// AdminController covers cashier settlement and the admin order list.
type AdminController struct {
	Orders  *services.OrderService
	Metrics MetricsSource
}

func NewAdminController(orders *services.OrderService, metrics MetricsSource) *AdminController {
	return &AdminController{Orders: orders, Metrics: metrics}
}

func (ac *AdminController) ListOrders(c *gin.Context) {
	orders, page, err := ac.Orders.ListOrders(c.Request.Context(), currentActor(c), services.OrderFilter{
		Query:   c.Query("q"),
		Status:  c.DefaultQuery("status", "all"),
		Dining:  c.DefaultQuery("dining", "all"),
		Range:   c.DefaultQuery("range", "all"),
		Page:    queryInt(c, "page"),
		PerPage: queryInt(c, "perPage"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", gin.H{
		"orders":     orders,
		"pagination": page,
	})
}

func (ac *AdminController) GetOrder(c *gin.Context) {
	order, err := ac.Orders.GetOrderByID(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// SettleCash -> kasir menerima pembayaran tunai
func (ac *AdminController) SettleCash(c *gin.Context) {
	var req struct {
		Amount *int64 `json:"amount" binding:"required,min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	settlement, err := ac.Orders.SettleCash(c.Request.Context(), currentActor(c), c.Param("id"), *req.Amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order paid", gin.H{
		"order":            settlement.Order,
		"payment":          settlement.Payment,
		"change":           settlement.Change,
		"change_formatted": utils.FormatCurrencyIDR(settlement.Change),
	})
}

func (ac *AdminController) CancelOrder(c *gin.Context) {
	actor := currentActor(c)
	order, err := ac.Orders.GetOrderByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	order, err = ac.Orders.CancelOrder(c.Request.Context(), actor, order.Code)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}

func (ac *AdminController) PaymentMonitor(c *gin.Context) {
	if ac.Metrics == nil {
		utils.RespondJSON(c, http.StatusOK, "Payment monitor disabled", nil)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment monitor metrics", ac.Metrics.GetMetrics())
}
