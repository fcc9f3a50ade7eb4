package models

import (
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sale is the header of a point-of-sale transaction. Total is persisted and only
// recomputed when line items are replaced.
type Sale struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SoldAt        time.Time           `gorm:"column:sold_at;not null;index" json:"sold_at"`
	CustomerID    *uuid.UUID          `gorm:"column:customer_id;type:uuid;index" json:"customer_id"`
	OperatorID    *uuid.UUID          `gorm:"column:operator_id;type:uuid" json:"operator_id"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null" json:"total"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null" json:"payment_method"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Customer *Customer `gorm:"foreignKey:CustomerID;constraint:OnDelete:SET NULL" json:"-"`
	Operator *User     `gorm:"foreignKey:OperatorID;constraint:OnDelete:SET NULL" json:"-"`
}

func (s *Sale) BeforeCreate(*gorm.DB) error {
	s.ID = ensureID(s.ID)
	return nil
}

// SaleLineItem captures one product, its quantity and the unit price at sale time.
type SaleLineItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SaleID    uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index" json:"sale_id"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index" json:"product_id"`
	Position  int             `gorm:"column:position;not null" json:"position"`
	Quantity  int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	Sale    *Sale    `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"-"`
	Product *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
}

func (SaleLineItem) TableName() string {
	return "sale_line_items"
}

func (li *SaleLineItem) BeforeCreate(*gorm.DB) error {
	li.ID = ensureID(li.ID)
	return nil
}

// Subtotal is unit price times quantity.
func (li SaleLineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}
