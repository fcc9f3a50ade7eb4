package customers

import (
	"context"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *Repository) Save(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// List pages customers newest first. Search matches name, tax id or email.
func (r *Repository) List(ctx context.Context, search string, limit int, cursor *pagination.Cursor) ([]models.Customer, error) {
	query := r.db.WithContext(ctx).Model(&models.Customer{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(tax_id) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Customer
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountSales returns the number of sales attributed to the customer.
func (r *Repository) CountSales(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Sale{}).Where("customer_id = ?", id).Count(&count).Error
	return count, err
}

// LastSaleAt returns the newest sold_at for the customer, nil when none.
func (r *Repository) LastSaleAt(ctx context.Context, id uuid.UUID) (*time.Time, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Select("sold_at").
		Where("customer_id = ?", id).
		Order("sold_at DESC").
		Limit(1).
		Find(&sale).Error
	if err != nil {
		return nil, err
	}
	if sale.SoldAt.IsZero() {
		return nil, nil
	}
	soldAt := sale.SoldAt.UTC()
	return &soldAt, nil
}

// Delete detaches sales from the customer and removes the row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	if err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("customer_id = ?", id).
		Update("customer_id", nil).Error; err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Delete(&models.Customer{}, "id = ?", id)
	return res.RowsAffected, res.Error
}
