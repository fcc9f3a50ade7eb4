package reports

import (
	"context"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists report records and reads the data reports aggregate.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, record *models.ReportRecord) error {
	return r.db.WithContext(ctx).Omit("CreatedBy").Create(record).Error
}

func (r *Repository) Save(ctx context.Context, record *models.ReportRecord) error {
	return r.db.WithContext(ctx).Omit("CreatedBy").Save(record).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ReportRecord, error) {
	var record models.ReportRecord
	if err := r.db.WithContext(ctx).Preload("CreatedBy").First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns the newest records first, optionally for one report type.
func (r *Repository) List(ctx context.Context, reportType *enums.ReportType, limit int) ([]models.ReportRecord, error) {
	query := r.db.WithContext(ctx).Preload("CreatedBy")
	if reportType != nil {
		query = query.Where("type = ?", *reportType)
	}
	var rows []models.ReportRecord
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListCreatedBefore returns records older than cutoff, oldest first.
func (r *Repository) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.ReportRecord, error) {
	var rows []models.ReportRecord
	err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff.UTC()).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ReportRecord{}, "id = ?", id).Error
}

// SalesInRange loads sales with from <= sold_at < to, ordered by sold_at then id.
func (r *Repository) SalesInRange(ctx context.Context, from, to time.Time) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("sold_at >= ? AND sold_at < ?", from.UTC(), to.UTC()).
		Order("sold_at ASC, id ASC").
		Find(&sales).Error
	return sales, err
}

// LinesInRange loads the line items of sales with from <= sold_at < to, joined
// with product and category names.
func (r *Repository) LinesInRange(ctx context.Context, from, to time.Time) ([]SoldLine, error) {
	var lines []SoldLine
	err := r.db.WithContext(ctx).
		Table("sale_line_items AS li").
		Select(`li.product_id AS product_id,
			p.name AS product_name,
			p.code AS product_code,
			c.name AS category_name,
			li.quantity AS quantity,
			li.unit_price AS unit_price`).
		Joins("JOIN sales s ON s.id = li.sale_id").
		Joins("JOIN products p ON p.id = li.product_id").
		Joins("LEFT JOIN categories c ON c.id = p.category_id").
		Where("s.sold_at >= ? AND s.sold_at < ?", from.UTC(), to.UTC()).
		Order("s.sold_at ASC, li.sale_id ASC, li.position ASC").
		Scan(&lines).Error
	return lines, err
}
