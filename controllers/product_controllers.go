package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type ProductController struct {
	Inventory *services.InventoryService
}

func NewProductController(inventory *services.InventoryService) *ProductController {
	return &ProductController{Inventory: inventory}
}

// ListProducts -> menu untuk storefront, admin bisa melihat produk non-aktif
func (pc *ProductController) ListProducts(c *gin.Context) {
	actor := currentActor(c)
	products, page, err := pc.Inventory.ListProducts(c.Request.Context(), services.ProductFilter{
		Query:           c.Query("q"),
		Category:        c.Query("category"),
		IncludeInactive: actor.IsAdmin() && c.Query("all") == "true",
		Page:            queryInt(c, "page"),
		PerPage:         queryInt(c, "perPage"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of products", gin.H{
		"products":   products,
		"pagination": page,
	})
}

func (pc *ProductController) CreateProduct(c *gin.Context) {
	var req struct {
		Name     string  `json:"name" binding:"required"`
		Price    *int64  `json:"price" binding:"required,min=0"`
		Category string  `json:"category" binding:"required,oneof=MAIN APPETIZER DRINK"`
		Stock    int     `json:"stock" binding:"min=0"`
		IsActive *bool   `json:"is_active"`
		ImageURL *string `json:"image_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	product, err := pc.Inventory.CreateProduct(c.Request.Context(), currentActor(c), services.ProductInput{
		Name:     req.Name,
		Price:    *req.Price,
		Category: req.Category,
		Stock:    req.Stock,
		IsActive: active,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Product created", product)
}

func (pc *ProductController) GetStock(c *gin.Context) {
	product, err := pc.Inventory.GetStock(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Current stock", gin.H{
		"product_id": product.ID,
		"name":       product.Name,
		"stock":      product.Stock,
	})
}

func (pc *ProductController) AdjustStock(c *gin.Context) {
	var req struct {
		Type string `json:"type" binding:"required,oneof=IN OUT ADJUSTMENT"`
		Qty  *int   `json:"qty" binding:"required,min=0"`
		Note string `json:"note" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	movement, err := pc.Inventory.AdjustStock(c.Request.Context(), currentActor(c), c.Param("id"), services.StockAdjustment{
		Type: req.Type,
		Qty:  *req.Qty,
		Note: req.Note,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Stock updated", gin.H{
		"product_id": movement.ProductID,
		"stock":      movement.After,
		"movement":   movement,
	})
}

func (pc *ProductController) ListMovements(c *gin.Context) {
	movements, page, err := pc.Inventory.ListMovements(c.Request.Context(), services.MovementFilter{
		ProductID: c.Query("productId"),
		Type:      c.Query("type"),
		Page:      queryInt(c, "page"),
		PerPage:   queryInt(c, "perPage"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Stock movements", gin.H{
		"movements":  movements,
		"pagination": page,
	})
}

// queryInt returns 0 for a missing or malformed parameter; services apply defaults.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
