package models

import (
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportRecord tracks one generated report document.
type ReportRecord struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Type          enums.ReportType   `gorm:"column:type;type:text;not null;index"`
	Format        enums.ReportFormat `gorm:"column:format;type:text;not null"`
	Description   string             `gorm:"column:description;not null"`
	StartDate     time.Time          `gorm:"column:start_date;type:date;not null"`
	EndDate       time.Time          `gorm:"column:end_date;type:date;not null"`
	FileName      string             `gorm:"column:file_name;not null"`
	FilePath      string             `gorm:"column:file_path;not null"`
	FileSize      int64              `gorm:"column:file_size;not null"`
	Status        enums.RecordStatus `gorm:"column:status;type:text;not null"`
	TotalRecords  int                `gorm:"column:total_records;not null"`
	TotalAmount   decimal.Decimal    `gorm:"column:total_amount;type:numeric(14,2);not null"`
	CreatedByID   *uuid.UUID         `gorm:"column:created_by_id;type:uuid"`
	FailureReason *string            `gorm:"column:failure_reason"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime;index"`
	CompletedAt   *time.Time         `gorm:"column:completed_at"`

	CreatedBy *User `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
}

func (r *ReportRecord) BeforeCreate(*gorm.DB) error {
	r.ID = ensureID(r.ID)
	return nil
}
