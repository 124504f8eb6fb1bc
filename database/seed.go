package database

import (
	"errors"
	"fmt"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// EnsureAdmin creates the admin account when it does not exist yet.
func EnsureAdmin(db *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := models.User{Name: "Administrator", Email: email, Password: string(hashed), Role: models.RoleAdmin}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	utils.InfoLogger.WithField("email", email).Info("Admin account created")
	return nil
}

var demoProducts = []models.Product{
	{Name: "Nasi Goreng Spesial", Price: 35000, Category: models.CategoryMain, Stock: 50, IsActive: true},
	{Name: "Mie Ayam Bakso", Price: 28000, Category: models.CategoryMain, Stock: 40, IsActive: true},
	{Name: "Sate Ayam", Price: 32000, Category: models.CategoryMain, Stock: 30, IsActive: true},
	{Name: "Lumpia Semarang", Price: 18000, Category: models.CategoryAppetizer, Stock: 25, IsActive: true},
	{Name: "Tahu Crispy", Price: 15000, Category: models.CategoryAppetizer, Stock: 25, IsActive: true},
	{Name: "Es Teh Manis", Price: 8000, Category: models.CategoryDrink, Stock: 100, IsActive: true},
	{Name: "Es Jeruk", Price: 12000, Category: models.CategoryDrink, Stock: 80, IsActive: true},
}

// SeedDemoProducts fills an empty catalog with a small menu.
func SeedDemoProducts(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, p := range demoProducts {
			product := p
			if err := tx.Create(&product).Error; err != nil {
				return fmt.Errorf("failed to seed product %s: %w", p.Name, err)
			}
			note := "seed"
			movement := models.StockMovement{
				ProductID: product.ID,
				Type:      models.MovementIn,
				Qty:       product.Stock,
				Before:    0,
				After:     product.Stock,
				Note:      &note,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return fmt.Errorf("failed to seed stock movement: %w", err)
			}
		}
		utils.InfoLogger.Infof("Seeded %d demo products", len(demoProducts))
		return nil
	})
}
