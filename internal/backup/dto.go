package backup

import (
	"io"
	"path"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	"github.com/google/uuid"
)

// CreateBackupInput starts a manual or scheduled backup.
type CreateBackupInput struct {
	Description string     `json:"description" validate:"max=500"`
	OperatorID  *uuid.UUID `json:"-"`
}

// BackupDTO is the API view of a backup record.
type BackupDTO struct {
	ID            uuid.UUID          `json:"id"`
	Description   string             `json:"description"`
	FileName      string             `json:"file_name"`
	FileSize      int64              `json:"file_size"`
	Status        enums.RecordStatus `json:"status"`
	OperatorID    *uuid.UUID         `json:"operator_id,omitempty"`
	OperatorName  string             `json:"operator_name"`
	EntityCounts  map[string]int     `json:"entity_counts"`
	TotalRecords  int                `json:"total_records"`
	FailureReason *string            `json:"failure_reason,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
}

// Download is an opened archive ready to stream.
type Download struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

func toDTO(record *models.BackupRecord) BackupDTO {
	counts := map[string]int(record.EntityCounts)
	if counts == nil {
		counts = map[string]int{}
	}
	fileName := ""
	if record.FilePath != "" {
		fileName = path.Base(record.FilePath)
	}
	return BackupDTO{
		ID:            record.ID,
		Description:   record.Description,
		FileName:      fileName,
		FileSize:      record.FileSize,
		Status:        record.Status,
		OperatorID:    record.OperatorID,
		OperatorName:  record.OperatorName,
		EntityCounts:  counts,
		TotalRecords:  record.EntityCounts.Total(),
		FailureReason: record.FailureReason,
		CreatedAt:     record.CreatedAt,
		CompletedAt:   record.CompletedAt,
	}
}
