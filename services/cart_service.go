package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxLineQty = 999

// CartService keeps one mutable cart per authenticated customer.
type CartService struct {
	db *gorm.DB
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

type CartLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Qty       int    `json:"qty"`
	Stock     int    `json:"stock"`
	IsActive  bool   `json:"is_active"`
	LineTotal int64  `json:"line_total"`
}

type CartView struct {
	Lines    []CartLine `json:"lines"`
	Subtotal int64      `json:"subtotal"`
	Count    int        `json:"count"`
}

func requireIdentity(actor models.Actor) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

func (s *CartService) GetCart(ctx context.Context, actor models.Actor) (*CartView, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	var cart models.Cart
	err := s.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	}).Preload("Items.Product").Where("user_id = ?", actor.UserID).First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &CartView{Lines: []CartLine{}}, nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return buildCartView(cart.Items), nil
}

// AddItem adds qty of a product to the cart, merging with an existing line.
func (s *CartService) AddItem(ctx context.Context, actor models.Actor, productID string, qty int) (*CartView, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	if qty < 1 || qty > maxLineQty {
		return nil, validationError("qty must be between 1 and %d", maxLineQty)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := activeProduct(tx, productID); err != nil {
			return err
		}
		cart, err := ensureCart(tx, actor.UserID)
		if err != nil {
			return err
		}

		var item models.CartItem
		err = tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&models.CartItem{CartID: cart.ID, ProductID: productID, Qty: qty}).Error
		case err != nil:
			return fmt.Errorf("failed to load cart item: %w", err)
		}
		if item.Qty+qty > maxLineQty {
			return validationError("qty must be between 1 and %d", maxLineQty)
		}
		return tx.Model(&item).Update("qty", item.Qty+qty).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, actor)
}

// SetItemQty overwrites the quantity of a line. Zero removes it.
func (s *CartService) SetItemQty(ctx context.Context, actor models.Actor, productID string, qty int) (*CartView, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	if qty < 0 || qty > maxLineQty {
		return nil, validationError("qty must be between 0 and %d", maxLineQty)
	}
	if qty == 0 {
		return s.RemoveItem(ctx, actor, productID)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := activeProduct(tx, productID); err != nil {
			return err
		}
		cart, err := ensureCart(tx, actor.UserID)
		if err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"qty", "updated_at"}),
		}).Create(&models.CartItem{CartID: cart.ID, ProductID: productID, Qty: qty}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, actor)
}

func (s *CartService) RemoveItem(ctx context.Context, actor models.Actor, productID string) (*CartView, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).
		Where("product_id = ? AND cart_id IN (?)", productID,
			s.db.Model(&models.Cart{}).Select("id").Where("user_id = ?", actor.UserID)).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrCartItemMissing
	}
	return s.GetCart(ctx, actor)
}

func (s *CartService) Clear(ctx context.Context, actor models.Actor) error {
	if err := requireIdentity(actor); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteCart(tx, actor.UserID)
	})
}

func activeProduct(tx *gorm.DB, productID string) (*models.Product, error) {
	var product models.Product
	if err := tx.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if !product.IsActive {
		return nil, ErrProductInactive
	}
	return &product, nil
}

func ensureCart(tx *gorm.DB, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Cart{UserID: userID}
		if err := tx.Create(&cart).Error; err != nil {
			return nil, fmt.Errorf("failed to create cart: %w", err)
		}
		return &cart, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &cart, nil
}

// deleteCart removes the cart and its lines. Used by Clear and by checkout.
func deleteCart(tx *gorm.DB, userID string) error {
	var cart models.Cart
	err := tx.Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}
	if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}
	if err := tx.Delete(&cart).Error; err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func buildCartView(items []models.CartItem) *CartView {
	view := &CartView{Lines: make([]CartLine, 0, len(items))}
	for _, it := range items {
		line := CartLine{
			ProductID: it.ProductID,
			Name:      it.Product.Name,
			Price:     it.Product.Price,
			Qty:       it.Qty,
			Stock:     it.Product.Stock,
			IsActive:  it.Product.IsActive,
			LineTotal: it.Product.Price * int64(it.Qty),
		}
		view.Lines = append(view.Lines, line)
		view.Subtotal += line.LineTotal
		view.Count += it.Qty
	}
	return view
}
