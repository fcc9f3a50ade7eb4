package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer holds contact details referenced optionally by sales.
type Customer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null;index" json:"name"`
	TaxID     string    `gorm:"column:tax_id;not null" json:"tax_id"`
	Phone     string    `gorm:"column:phone;not null" json:"phone"`
	Email     string    `gorm:"column:email;not null" json:"email"`
	Address   string    `gorm:"column:address;not null" json:"address"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	c.ID = ensureID(c.ID)
	return nil
}
