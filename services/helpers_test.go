package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	testLocation = time.FixedZone("WIB", 7*60*60)
	userSeq      int64
)

// newTestDB opens a private in-memory database. A single connection keeps
// concurrent callers serialized the way row locks would on a server database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig(logger.Silent))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, role string) models.Actor {
	t.Helper()
	user := models.User{
		Name:     "User " + role,
		Email:    fmt.Sprintf("%s-%d@example.com", role, atomic.AddInt64(&userSeq, 1)),
		Password: "x",
		Role:     role,
	}
	require.NoError(t, db.Create(&user).Error)
	return models.Actor{UserID: user.ID, Role: role}
}

func createProduct(t *testing.T, db *gorm.DB, name string, price int64, stock int) models.Product {
	t.Helper()
	product := models.Product{Name: name, Price: price, Category: models.CategoryMain, Stock: stock, IsActive: true}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func productStock(t *testing.T, db *gorm.DB, id string) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return p.Stock
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateSession(ctx context.Context, req SessionRequest) (*PaymentSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaymentSession), args.Error(1)
}

func (m *mockGateway) QueryStatus(ctx context.Context, gatewayOrderID string) (*GatewayStatus, error) {
	args := m.Called(ctx, gatewayOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GatewayStatus), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evt models.OrderEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, evt := range p.events {
		if evt.EventType == eventType {
			n++
		}
	}
	return n
}

type testEngine struct {
	db        *gorm.DB
	orders    *OrderService
	inventory *InventoryService
	carts     *CartService
	gateway   *mockGateway
	events    *recordingPublisher
	now       time.Time
}

func newTestEngine(t *testing.T, pricing PricingPolicy) *testEngine {
	t.Helper()
	db := newTestDB(t)
	e := &testEngine{
		db:        db,
		inventory: NewInventoryService(db),
		carts:     NewCartService(db),
		gateway:   new(mockGateway),
		events:    &recordingPublisher{},
		now:       time.Date(2024, 3, 15, 12, 0, 0, 0, testLocation),
	}
	e.orders = NewOrderService(db, e.inventory, OrderServiceConfig{
		Gateway:   e.gateway,
		Publisher: e.events,
		Pricing:   pricing,
		Location:  testLocation,
	})
	e.orders.now = func() time.Time { return e.now }
	return e
}

// checkout fills the customer's cart and checks it out.
func (e *testEngine) checkout(t *testing.T, customer models.Actor, choice string, lines map[string]int) *models.Order {
	t.Helper()
	ctx := context.Background()
	for productID, qty := range lines {
		_, err := e.carts.AddItem(ctx, customer, productID, qty)
		require.NoError(t, err)
	}
	if choice == models.PaymentChoiceCashless {
		e.gateway.On("CreateSession", mock.Anything, mock.Anything).
			Return(&PaymentSession{Token: "snap-token"}, nil).Maybe()
	}
	result, err := e.orders.Checkout(ctx, customer, CheckoutInput{
		DiningType:    models.DiningDineIn,
		PaymentChoice: choice,
	})
	require.NoError(t, err)
	return result.Order
}
