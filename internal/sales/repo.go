package sales

import (
	"context"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists sale headers and line items.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) CreateSale(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(sale).Error
}

func (r *Repository) CreateLines(ctx context.Context, lines []models.SaleLineItem) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&lines).Error
}

// FindByID loads a sale header with customer and operator.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Operator").
		First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// FindByIDForUpdate locks the sale header for the rest of the transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListLines returns the sale's lines in entry order with their products.
func (r *Repository) ListLines(ctx context.Context, saleID uuid.UUID) ([]models.SaleLineItem, error) {
	var lines []models.SaleLineItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("sale_id = ?", saleID).
		Order("position ASC").
		Order("id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *Repository) DeleteLines(ctx context.Context, saleID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("sale_id = ?", saleID).Delete(&models.SaleLineItem{}).Error
}

// UpdateHeader writes the mutable header columns.
func (r *Repository) UpdateHeader(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).
		Model(sale).
		Select("customer_id", "payment_method", "total", "updated_at").
		Updates(sale).Error
}

func (r *Repository) DeleteSale(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Sale{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

func (r *Repository) CustomerExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Customer{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

type saleListQuery struct {
	ListSalesInput
	Limit  int
	Cursor *pagination.Cursor
}

// List pages sale headers newest first.
func (r *Repository) List(ctx context.Context, q saleListQuery) ([]models.Sale, error) {
	qb := r.db.WithContext(ctx).Model(&models.Sale{}).Preload("Customer").Preload("Operator")
	if q.CustomerID != nil {
		qb = qb.Where("customer_id = ?", *q.CustomerID)
	}
	if q.PaymentMethod != nil {
		qb = qb.Where("payment_method = ?", *q.PaymentMethod)
	}
	if q.From != nil {
		qb = qb.Where("sold_at >= ?", q.From.UTC())
	}
	if q.To != nil {
		qb = qb.Where("sold_at < ?", q.To.UTC())
	}
	if q.Cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID)
	}

	var rows []models.Sale
	err := qb.Order("created_at DESC").Order("id DESC").Limit(q.Limit).Find(&rows).Error
	return rows, err
}

type lineCount struct {
	SaleID uuid.UUID
	Units  int
}

// CountUnits sums line quantities per sale.
func (r *Repository) CountUnits(ctx context.Context, saleIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(saleIDs))
	if len(saleIDs) == 0 {
		return out, nil
	}
	var rows []lineCount
	if err := r.db.WithContext(ctx).
		Model(&models.SaleLineItem{}).
		Select("sale_id, SUM(quantity) AS units").
		Where("sale_id IN ?", saleIDs).
		Group("sale_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SaleID] = row.Units
	}
	return out, nil
}
