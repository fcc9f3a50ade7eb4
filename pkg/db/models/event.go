package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultEventColor = "blue"

// Event is a calendar entry; templates are reusable drafts without a start.
type Event struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title      string     `gorm:"column:title;size:200;not null" json:"title"`
	Start      *time.Time `gorm:"column:start_at;index" json:"start"`
	AllDay     bool       `gorm:"column:all_day;not null" json:"all_day"`
	Color      string     `gorm:"column:color;size:20;not null" json:"color"`
	IsTemplate bool       `gorm:"column:is_template;not null" json:"is_template"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	e.ID = ensureID(e.ID)
	if e.Color == "" {
		e.Color = DefaultEventColor
	}
	return nil
}
