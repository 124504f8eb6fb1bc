package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

func main() {
	utils.InitLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	if cfg.JWTSecret == "" {
		utils.ErrorLogger.Fatal("JWT_SECRET must be set")
	}
	utils.ConfigureJWT(cfg.JWTSecret, cfg.JWTTTL)

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize DB
	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	if err := database.EnsureAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		utils.ErrorLogger.Fatalf("Failed to create admin: %v", err)
	}
	if cfg.SeedDemo {
		if err := database.SeedDemoProducts(db); err != nil {
			utils.ErrorLogger.Errorf("Failed to seed demo products: %v", err)
		}
	}

	midtransService := services.NewMidtransService(&services.MidtransConfig{
		ServerKey:    cfg.MidtransServerKey,
		ClientKey:    cfg.MidtransClientKey,
		IsProduction: cfg.MidtransIsProduction,
	})
	if err := midtransService.ValidateConfig(); err != nil {
		utils.ErrorLogger.Warnf("Midtrans is not configured, cashless payments will fail: %v", err)
	}

	var counter services.QueueCounter = services.DBQueueCounter{}
	if cfg.QueueCounter == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		counter = services.NewRedisQueueCounter(rdb)
		utils.InfoLogger.WithField("addr", cfg.RedisAddr).Info("Queue numbers served by redis")
	}

	hub := kds.NewHub()
	publishers := services.MultiPublisher{hub}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := services.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		publishers = append(publishers, kafkaPublisher)
		utils.InfoLogger.WithField("topic", cfg.KafkaTopic).Info("Order events published to kafka")
	}

	inventory := services.NewInventoryService(db)
	orders := services.NewOrderService(db, inventory, services.OrderServiceConfig{
		Gateway:   midtransService,
		Counter:   counter,
		Publisher: publishers,
		Pricing:   services.PricingPolicy{TaxRateBps: cfg.TaxRateBps},
		Location:  cfg.Location(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var monitor *services.PaymentMonitor
	if cfg.ReconcileInterval > 0 {
		monitor = services.NewPaymentMonitor(orders, cfg.ReconcileInterval, cfg.PaymentExpiry)
		monitor.Start(ctx)
		defer monitor.Stop()
	}

	r := router.SetupRouter(router.Dependencies{
		DB:         db,
		Inventory:  inventory,
		Cart:       services.NewCartService(db),
		Orders:     orders,
		Signature:  midtransService,
		Monitor:    monitor,
		Hub:        hub,
		CORSOrigin: cfg.CORSOrigin,
	})
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		utils.ErrorLogger.Warnf("Failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Println("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Errorf("Server shutdown failed: %v", err)
	}
}
