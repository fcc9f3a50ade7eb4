package models

import (
	"time"

	dbtypes "github.com/angelmondragon/storedesk-backend/pkg/db/types"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BackupRecord tracks one archive file and its lifecycle.
type BackupRecord struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Description   string               `gorm:"column:description;not null"`
	FilePath      string               `gorm:"column:file_path;not null"`
	FileSize      int64                `gorm:"column:file_size;not null"`
	Status        enums.RecordStatus   `gorm:"column:status;type:text;not null;index"`
	OperatorID    *uuid.UUID           `gorm:"column:operator_id;type:uuid"`
	OperatorName  string               `gorm:"column:operator_name;not null"`
	EntityCounts  dbtypes.EntityCounts `gorm:"column:entity_counts;type:jsonb;not null"`
	FailureReason *string              `gorm:"column:failure_reason"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime;index"`
	CompletedAt   *time.Time           `gorm:"column:completed_at"`

	Operator *User `gorm:"foreignKey:OperatorID;constraint:OnDelete:SET NULL"`
}

func (b *BackupRecord) BeforeCreate(*gorm.DB) error {
	b.ID = ensureID(b.ID)
	return nil
}
