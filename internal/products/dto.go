package product

import (
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductDTO is the API representation of a catalog product.
type ProductDTO struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Code          string          `json:"code"`
	CategoryID    *uuid.UUID      `json:"category_id,omitempty"`
	CategoryName  *string         `json:"category_name,omitempty"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	StockQuantity int             `json:"stock_quantity"`
	LowStock      bool            `json:"low_stock"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CreateProductInput is the payload for adding a product. StockQuantity is the
// opening stock and is audited as an initial movement.
type CreateProductInput struct {
	Name          string          `json:"name" validate:"required,max=200"`
	Description   string          `json:"description" validate:"max=2000"`
	Code          string          `json:"code" validate:"max=50"`
	CategoryID    *uuid.UUID      `json:"category_id"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
	IsActive      *bool           `json:"is_active"`
}

// UpdateProductInput carries optional fields. Stock is intentionally absent.
type UpdateProductInput struct {
	Name          *string          `json:"name" validate:"omitempty,max=200"`
	Description   *string          `json:"description" validate:"omitempty,max=2000"`
	Code          *string          `json:"code" validate:"omitempty,max=50"`
	CategoryID    *uuid.UUID       `json:"category_id"`
	ClearCategory bool             `json:"clear_category"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
	SalePrice     *decimal.Decimal `json:"sale_price"`
	IsActive      *bool            `json:"is_active"`
}

// StockAdjustmentInput is a signed manual correction of stock.
type StockAdjustmentInput struct {
	Delta int    `json:"delta" validate:"required"`
	Note  string `json:"note" validate:"max=500"`
}

func productToDTO(p *models.Product, lowStockThreshold int) ProductDTO {
	dto := ProductDTO{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Code:          p.Code,
		CategoryID:    p.CategoryID,
		PurchasePrice: p.PurchasePrice,
		SalePrice:     p.SalePrice,
		StockQuantity: p.StockQuantity,
		LowStock:      p.StockQuantity <= lowStockThreshold,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.Category != nil {
		name := p.Category.Name
		dto.CategoryName = &name
	}
	return dto
}
