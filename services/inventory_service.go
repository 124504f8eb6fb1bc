package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxNoteLength = 500

// InventoryService owns product stock and the stock movement ledger.
type InventoryService struct {
	db *gorm.DB
}

func NewInventoryService(db *gorm.DB) *InventoryService {
	return &InventoryService{db: db}
}

type ProductFilter struct {
	Query           string
	Category        string
	IncludeInactive bool
	Page            int
	PerPage         int
}

type ProductInput struct {
	Name     string
	Price    int64
	Category string
	Stock    int
	IsActive bool
	ImageURL *string
}

type StockAdjustment struct {
	Type string
	Qty  int
	Note string
}

type MovementFilter struct {
	ProductID string
	Type      string
	Page      int
	PerPage   int
}

func (s *InventoryService) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, Pagination, error) {
	page, perPage := normalizePage(filter.Page, filter.PerPage)
	if filter.Category != "" && !models.IsValidCategory(filter.Category) {
		return nil, Pagination{}, validationError("invalid category %q", filter.Category)
	}

	query := s.db.WithContext(ctx).Model(&models.Product{})
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		query = query.Where("LOWER(name) LIKE ? ESCAPE '!'", containsPattern(q))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count products: %w", err)
	}

	var products []models.Product
	err := query.Order("name ASC").Offset((page - 1) * perPage).Limit(perPage).Find(&products).Error
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list products: %w", err)
	}
	return products, newPagination(page, perPage, total), nil
}

func (s *InventoryService) CreateProduct(ctx context.Context, actor models.Actor, input ProductInput) (*models.Product, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	name := strings.TrimSpace(input.Name)
	switch {
	case name == "":
		return nil, validationError("name is required")
	case input.Price < 0:
		return nil, validationError("price must not be negative")
	case input.Stock < 0:
		return nil, validationError("stock must not be negative")
	case !models.IsValidCategory(input.Category):
		return nil, validationError("invalid category %q", input.Category)
	}

	product := models.Product{
		Name:     name,
		Price:    input.Price,
		Category: input.Category,
		Stock:    input.Stock,
		IsActive: input.IsActive,
		ImageURL: input.ImageURL,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// is_active has a default, so a false value must be written explicitly
		if err := tx.Create(&product).Error; err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		if !input.IsActive {
			if err := tx.Model(&product).Update("is_active", false).Error; err != nil {
				return fmt.Errorf("failed to create product: %w", err)
			}
		}
		if input.Stock > 0 {
			note := "initial stock"
			return tx.Create(&models.StockMovement{
				ProductID: product.ID,
				Type:      models.MovementIn,
				Qty:       input.Stock,
				Before:    0,
				After:     input.Stock,
				Note:      &note,
				ActorID:   actor.UserID,
			}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetStock returns the product with its current stock level.
func (s *InventoryService) GetStock(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &product, nil
}

// AdjustStock applies an IN, OUT or absolute ADJUSTMENT change and records a movement.
func (s *InventoryService) AdjustStock(ctx context.Context, actor models.Actor, productID string, adj StockAdjustment) (*models.StockMovement, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if !models.IsValidMovementType(adj.Type) {
		return nil, validationError("type must be one of IN, OUT, ADJUSTMENT")
	}
	if adj.Type == models.MovementAdjustment {
		if adj.Qty < 0 {
			return nil, validationError("qty must not be negative")
		}
	} else if adj.Qty <= 0 {
		return nil, validationError("qty must be greater than zero")
	}
	if len(adj.Note) > maxNoteLength {
		return nil, validationError("note must be at most %d characters", maxNoteLength)
	}

	var movement models.StockMovement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "id = ?", productID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to load product: %w", err)
		}

		var res *gorm.DB
		switch adj.Type {
		case models.MovementIn:
			res = tx.Model(&models.Product{}).Where("id = ?", productID).
				Updates(map[string]interface{}{"stock": gorm.Expr("stock + ?", adj.Qty), "updated_at": time.Now().UTC()})
		case models.MovementOut:
			res = tx.Model(&models.Product{}).Where("id = ? AND stock >= ?", productID, adj.Qty).
				Updates(map[string]interface{}{"stock": gorm.Expr("stock - ?", adj.Qty), "updated_at": time.Now().UTC()})
		case models.MovementAdjustment:
			res = tx.Model(&models.Product{}).Where("id = ?", productID).
				Updates(map[string]interface{}{"stock": adj.Qty, "updated_at": time.Now().UTC()})
		}
		if res.Error != nil {
			return fmt.Errorf("failed to update stock: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &StockConflictError{ProductID: productID, CurrentStock: product.Stock, Attempted: product.Stock - adj.Qty}
		}

		after, err := currentStock(tx, productID)
		if err != nil {
			return err
		}

		movement = models.StockMovement{
			ProductID: productID,
			Type:      adj.Type,
			Qty:       adj.Qty,
			Before:    product.Stock,
			After:     after,
			ActorID:   actor.UserID,
		}
		if note := strings.TrimSpace(adj.Note); note != "" {
			movement.Note = &note
		}
		if err := tx.Create(&movement).Error; err != nil {
			return fmt.Errorf("failed to record stock movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"product_id": productID,
		"type":       adj.Type,
		"qty":        adj.Qty,
		"stock":      movement.After,
	}).Info("Stock adjusted")
	return &movement, nil
}

// DebitForOrder decrements stock for every item of the order inside tx.
// Each decrement is conditional on enough stock being left; a shortfall
// aborts the surrounding transaction.
func (s *InventoryService) DebitForOrder(tx *gorm.DB, actorID string, order *models.Order) error {
	items := make([]models.OrderItem, len(order.Items))
	copy(items, order.Items)
	// stable lock order across concurrent settlements
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	note := "order " + order.Code
	for _, item := range items {
		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock >= ?", item.ProductID, item.Qty).
			Updates(map[string]interface{}{"stock": gorm.Expr("stock - ?", item.Qty), "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return fmt.Errorf("failed to decrement stock: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			current, err := currentStock(tx, item.ProductID)
			if err != nil {
				return err
			}
			return &StockConflictError{ProductID: item.ProductID, CurrentStock: current, Attempted: current - item.Qty}
		}

		after, err := currentStock(tx, item.ProductID)
		if err != nil {
			return err
		}
		itemNote := note
		err = tx.Create(&models.StockMovement{
			ProductID: item.ProductID,
			Type:      models.MovementOut,
			Qty:       item.Qty,
			Before:    after + item.Qty,
			After:     after,
			Note:      &itemNote,
			ActorID:   actorID,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to record stock movement: %w", err)
		}
	}
	return nil
}

func (s *InventoryService) ListMovements(ctx context.Context, filter MovementFilter) ([]models.StockMovement, Pagination, error) {
	page, perPage := normalizePage(filter.Page, filter.PerPage)
	if filter.Type != "" && !models.IsValidMovementType(filter.Type) {
		return nil, Pagination{}, validationError("invalid movement type %q", filter.Type)
	}

	query := s.db.WithContext(ctx).Model(&models.StockMovement{})
	if filter.ProductID != "" {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count stock movements: %w", err)
	}

	var movements []models.StockMovement
	err := query.Preload("Product").Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).Find(&movements).Error
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list stock movements: %w", err)
	}
	return movements, newPagination(page, perPage, total), nil
}

func currentStock(tx *gorm.DB, productID string) (int, error) {
	var stock int
	err := tx.Model(&models.Product{}).Where("id = ?", productID).Select("stock").Scan(&stock).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read stock: %w", err)
	}
	return stock, nil
}
