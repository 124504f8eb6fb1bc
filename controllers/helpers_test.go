package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testServerKey = "SB-Mid-server-test"

var userSeq int64

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateSession(ctx context.Context, req services.SessionRequest) (*services.PaymentSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PaymentSession), args.Error(1)
}

func (m *mockGateway) QueryStatus(ctx context.Context, gatewayOrderID string) (*services.GatewayStatus, error) {
	args := m.Called(ctx, gatewayOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.GatewayStatus), args.Error(1)
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	t       *testing.T
	db      *gorm.DB
	engine  *gin.Engine
	gateway *mockGateway
	monitor *services.PaymentMonitor
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitLogger()
	utils.ConfigureJWT("controller-test-secret", time.Hour)

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig(logger.Silent))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	gateway := new(mockGateway)
	inventory := services.NewInventoryService(db)
	orders := services.NewOrderService(db, inventory, services.OrderServiceConfig{Gateway: gateway})
	monitor := services.NewPaymentMonitor(orders, time.Hour, 24*time.Hour)

	engine := router.SetupRouter(router.Dependencies{
		DB:         db,
		Inventory:  inventory,
		Cart:       services.NewCartService(db),
		Orders:     orders,
		Signature:  services.NewMidtransService(&services.MidtransConfig{ServerKey: testServerKey}),
		Monitor:    monitor,
		CORSOrigin: "*",
	})
	return &testAPI{t: t, db: db, engine: engine, gateway: gateway, monitor: monitor}
}

// user creates an account directly and returns a bearer token for it.
func (a *testAPI) user(role string) (models.User, string) {
	a.t.Helper()
	u := models.User{
		Name:     "Test " + role,
		Email:    fmt.Sprintf("%s-%d@example.com", role, atomic.AddInt64(&userSeq, 1)),
		Password: "x",
		Role:     role,
	}
	require.NoError(a.t, a.db.Create(&u).Error)
	token, err := utils.GenerateToken(u.ID, u.Role)
	require.NoError(a.t, err)
	return u, token
}

func (a *testAPI) product(name string, price int64, stock int) models.Product {
	a.t.Helper()
	p := models.Product{Name: name, Price: price, Category: models.CategoryMain, Stock: stock, IsActive: true}
	require.NoError(a.t, a.db.Create(&p).Error)
	return p
}

func (a *testAPI) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

// checkout adds lines to the cart of token's user and checks out over HTTP.
func (a *testAPI) checkout(token, choice string, lines map[string]int) models.Order {
	a.t.Helper()
	for productID, qty := range lines {
		w, _ := a.do(http.MethodPost, "/api/cart/items", token, map[string]interface{}{
			"product_id": productID,
			"qty":        qty,
		})
		require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	}
	w, resp := a.do(http.MethodPost, "/api/checkout", token, map[string]string{
		"dining_type":    models.DiningDineIn,
		"payment_choice": choice,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var result struct {
		Order models.Order `json:"order"`
	}
	decode(a.t, resp.Data, &result)
	return result.Order
}
