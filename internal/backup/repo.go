package backup

import (
	"context"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists backup records.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, record *models.BackupRecord) error {
	return r.db.WithContext(ctx).Omit("Operator").Create(record).Error
}

func (r *Repository) Save(ctx context.Context, record *models.BackupRecord) error {
	return r.db.WithContext(ctx).Omit("Operator").Save(record).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BackupRecord, error) {
	var record models.BackupRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns the newest records first.
func (r *Repository) List(ctx context.Context, limit int) ([]models.BackupRecord, error) {
	var rows []models.BackupRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListCreatedBefore returns records older than cutoff, oldest first.
func (r *Repository) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.BackupRecord, error) {
	var rows []models.BackupRecord
	err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff.UTC()).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.BackupRecord{}, "id = ?", id).Error
}

// FindOperator loads the user that triggered a backup.
func (r *Repository) FindOperator(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
