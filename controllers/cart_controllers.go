package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type CartController struct {
	Cart *services.CartService
}

func NewCartController(cart *services.CartService) *CartController {
	return &CartController{Cart: cart}
}

func (cc *CartController) GetCart(c *gin.Context) {
	cart, err := cc.Cart.GetCart(c.Request.Context(), currentActor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cart", cart)
}

func (cc *CartController) AddItem(c *gin.Context) {
	var req struct {
		ProductID string `json:"product_id" binding:"required,uuid"`
		Qty       int    `json:"qty" binding:"required,min=1,max=999"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	cart, err := cc.Cart.AddItem(c.Request.Context(), currentActor(c), req.ProductID, req.Qty)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item added to cart", cart)
}

// UpdateItem sets the quantity of a line; qty 0 removes it.
func (cc *CartController) UpdateItem(c *gin.Context) {
	var req struct {
		Qty *int `json:"qty" binding:"required,min=0,max=999"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	cart, err := cc.Cart.SetItemQty(c.Request.Context(), currentActor(c), c.Param("productId"), *req.Qty)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cart updated", cart)
}

func (cc *CartController) RemoveItem(c *gin.Context) {
	cart, err := cc.Cart.RemoveItem(c.Request.Context(), currentActor(c), c.Param("productId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item removed", cart)
}

func (cc *CartController) Clear(c *gin.Context) {
	if err := cc.Cart.Clear(c.Request.Context(), currentActor(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cart cleared", nil)
}
