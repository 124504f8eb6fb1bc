package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"gorm.io/gorm"
)

// Dependencies carries everything the HTTP layer needs.
type Dependencies struct {
	DB         *gorm.DB
	Inventory  *services.InventoryService
	Cart       *services.CartService
	Orders     *services.OrderService
	Signature  controllers.SignatureValidator
	Monitor    *services.PaymentMonitor
	Hub        *kds.Hub
	CORSOrigin string
}

func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(deps.CORSOrigin))
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.NewRateLimiter(50, time.Second).RateLimit())

	// Monitor can be nil when reconciliation is disabled
	var (
		retry   controllers.RetryQueue
		metrics controllers.MetricsSource
	)
	if deps.Monitor != nil {
		retry = deps.Monitor
		metrics = deps.Monitor
	}

	userCtrl := controllers.NewUserController(deps.DB)
	productCtrl := controllers.NewProductController(deps.Inventory)
	cartCtrl := controllers.NewCartController(deps.Cart)
	orderCtrl := controllers.NewOrderController(deps.Orders, retry)
	adminCtrl := controllers.NewAdminController(deps.Orders, metrics)
	paymentCtrl := controllers.NewPaymentController(deps.Orders, deps.Signature, retry)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.Use(middlewares.NewStrictRateLimiter())
	{
		auth.POST("/register", userCtrl.Register)
		auth.POST("/login", userCtrl.Login)
	}

	api.GET("/products", productCtrl.ListProducts)

	payments := api.Group("/payments")
	payments.Use(middlewares.PaymentRateLimiter(), middlewares.LogPaymentRequest())
	{
		payments.POST("/midtrans/notification", paymentCtrl.HandleNotification)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	authorized := api.Group("/")
	authorized.Use(middlewares.AuthMiddleware())
	{
		authorized.POST("/auth/logout", userCtrl.Logout)
		authorized.GET("/profile", userCtrl.GetProfile)

		cart := authorized.Group("/cart")
		{
			cart.GET("", cartCtrl.GetCart)
			cart.POST("/items", cartCtrl.AddItem)
			cart.PATCH("/items/:productId", cartCtrl.UpdateItem)
			cart.DELETE("/items/:productId", cartCtrl.RemoveItem)
			cart.DELETE("", cartCtrl.Clear)
		}

		authorized.POST("/checkout", orderCtrl.Checkout)

		orders := authorized.Group("/orders")
		{
			orders.GET("/history", orderCtrl.History)
			orders.GET("/:code", orderCtrl.GetOrder)
			orders.POST("/:code/payment-session", orderCtrl.PaymentSession)
			orders.POST("/:code/confirm-cashless", orderCtrl.ConfirmCashless)
			orders.POST("/:code/cancel", orderCtrl.Cancel)
		}

		// ----------------------------------------------------------------
		//                      ADMIN ROUTES
		// ----------------------------------------------------------------
		admin := authorized.Group("/admin")
		admin.Use(middlewares.RequireRole(models.RoleAdmin))
		{
			admin.GET("/orders", adminCtrl.ListOrders)
			admin.GET("/orders/:id", adminCtrl.GetOrder)
			admin.POST("/orders/:id/pay-cash", adminCtrl.SettleCash)
			admin.POST("/orders/:id/cancel", adminCtrl.CancelOrder)

			admin.GET("/products", productCtrl.ListProducts)
			admin.POST("/products", productCtrl.CreateProduct)
			admin.GET("/products/:id/stock", productCtrl.GetStock)
			admin.POST("/products/:id/stock", productCtrl.AdjustStock)
			admin.GET("/stock-movements", productCtrl.ListMovements)

			admin.GET("/payments/monitor", adminCtrl.PaymentMonitor)
		}
	}

	if deps.Hub != nil {
		liveCtrl := controllers.NewLiveFeedController(deps.Hub, deps.CORSOrigin)
		r.GET("/ws/orders", middlewares.WebSocketAuthMiddleware(), liveCtrl.Subscribe)
	}

	return r
}
