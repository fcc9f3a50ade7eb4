package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a sellable catalog entry with a mutable stock level.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name          string          `gorm:"column:name;not null" json:"name"`
	Description   string          `gorm:"column:description;not null" json:"description"`
	Code          string          `gorm:"column:code;not null;index" json:"code"`
	CategoryID    *uuid.UUID      `gorm:"column:category_id;type:uuid;index" json:"category_id"`
	PurchasePrice decimal.Decimal `gorm:"column:purchase_price;type:numeric(12,2);not null" json:"purchase_price"`
	SalePrice     decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2);not null" json:"sale_price"`
	StockQuantity int             `gorm:"column:stock_quantity;not null" json:"stock_quantity"`
	IsActive      bool            `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"-"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	p.ID = ensureID(p.ID)
	return nil
}
