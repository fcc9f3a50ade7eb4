package models

import (
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockMovement is an append-only audit row for every stock change. It keeps
// plain ids instead of foreign keys so history outlives deleted products and sales.
type StockMovement struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index"`
	SaleID        *uuid.UUID              `gorm:"column:sale_id;type:uuid;index"`
	ActorUserID   *uuid.UUID              `gorm:"column:actor_user_id;type:uuid"`
	Type          enums.StockMovementType `gorm:"column:type;type:text;not null"`
	QuantityDelta int                     `gorm:"column:quantity_delta;not null"`
	StockBefore   int                     `gorm:"column:stock_before;not null"`
	StockAfter    int                     `gorm:"column:stock_after;not null"`
	Note          string                  `gorm:"column:note;not null"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	m.ID = ensureID(m.ID)
	return nil
}
