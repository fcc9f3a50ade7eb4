package categories

import (
	"context"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists catalog categories.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *Repository) Save(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// ExistsByName matches case-insensitively, optionally ignoring one id.
func (r *Repository) ExistsByName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Category{}).Where("LOWER(name) = LOWER(?)", name)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) List(ctx context.Context, search string) ([]models.Category, error) {
	var rows []models.Category
	query := r.db.WithContext(ctx).Order("name ASC")
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+search+"%")
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountProducts returns how many products reference the category.
func (r *Repository) CountProducts(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("category_id = ?", id).Count(&count).Error
	return count, err
}

// Delete clears product references before removing the row so the outcome does
// not depend on the dialect enforcing ON DELETE SET NULL.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("category_id = ?", id).
		Update("category_id", nil).Error; err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Delete(&models.Category{}, "id = ?", id)
	return res.RowsAffected, res.Error
}
