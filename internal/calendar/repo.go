package calendar

import (
	"context"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists calendar events.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *Repository) Save(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Save(event).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Event{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

type eventQuery struct {
	Scheduled bool
	Templates *bool
	From      *time.Time
	To        *time.Time
}

// List returns events ordered by start, unscheduled ones last.
func (r *Repository) List(ctx context.Context, q eventQuery) ([]models.Event, error) {
	qb := r.db.WithContext(ctx).Model(&models.Event{})
	if q.Scheduled {
		qb = qb.Where("start_at IS NOT NULL")
	}
	if q.Templates != nil {
		qb = qb.Where("is_template = ?", *q.Templates)
	}
	if q.From != nil {
		qb = qb.Where("start_at >= ?", q.From.UTC())
	}
	if q.To != nil {
		qb = qb.Where("start_at < ?", q.To.UTC())
	}

	var rows []models.Event
	err := qb.
		Order("CASE WHEN start_at IS NULL THEN 1 ELSE 0 END").
		Order("start_at ASC").
		Order("title ASC").
		Find(&rows).Error
	return rows, err
}
