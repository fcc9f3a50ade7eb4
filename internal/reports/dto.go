package reports

import (
	"io"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateReportInput requests a new report document. Dates are YYYY-MM-DD.
type GenerateReportInput struct {
	Type        string     `json:"type" validate:"required"`
	Format      string     `json:"format" validate:"required"`
	StartDate   string     `json:"start_date" validate:"required"`
	EndDate     string     `json:"end_date" validate:"required"`
	Description string     `json:"description" validate:"max=500"`
	CreatedByID *uuid.UUID `json:"-"`
}

// ReportDTO is the API view of a report record.
type ReportDTO struct {
	ID            uuid.UUID          `json:"id"`
	Type          enums.ReportType   `json:"type"`
	Format        enums.ReportFormat `json:"format"`
	Description   string             `json:"description"`
	StartDate     string             `json:"start_date"`
	EndDate       string             `json:"end_date"`
	FileName      string             `json:"file_name"`
	FileSize      int64              `json:"file_size"`
	Status        enums.RecordStatus `json:"status"`
	TotalRecords  int                `json:"total_records"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	CreatedByID   *uuid.UUID         `json:"created_by_id,omitempty"`
	CreatedByName string             `json:"created_by_name,omitempty"`
	FailureReason *string            `json:"failure_reason,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
}

// Download is an opened report document ready to stream.
type Download struct {
	FileName    string
	ContentType string
	Size        int64
	Inline      bool
	Body        io.ReadCloser
}

func toDTO(record *models.ReportRecord) ReportDTO {
	dto := ReportDTO{
		ID:            record.ID,
		Type:          record.Type,
		Format:        record.Format,
		Description:   record.Description,
		StartDate:     record.StartDate.Format(dateLayout),
		EndDate:       record.EndDate.Format(dateLayout),
		FileName:      record.FileName,
		FileSize:      record.FileSize,
		Status:        record.Status,
		TotalRecords:  record.TotalRecords,
		TotalAmount:   record.TotalAmount,
		CreatedByID:   record.CreatedByID,
		FailureReason: record.FailureReason,
		CreatedAt:     record.CreatedAt,
		CompletedAt:   record.CompletedAt,
	}
	if record.CreatedBy != nil {
		dto.CreatedByName = record.CreatedBy.DisplayName()
	}
	return dto
}
