package product

import (
	"testing"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func mustCreateTestCategory(t *testing.T, tx *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name}
	if err := tx.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

func mustCreateTestProduct(t *testing.T, tx *gorm.DB, name string, stock int, price int64) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:          name,
		Code:          name,
		PurchasePrice: decimal.NewFromInt(price / 2),
		SalePrice:     decimal.NewFromInt(price),
		StockQuantity: stock,
		IsActive:      true,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}
