package product

import (
	"context"
	"strings"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository owns product persistence and guarded stock mutations.
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

// FindByID loads a product with its category.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate loads a product holding a row lock until the transaction ends.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDsForUpdate locks every listed product in id order.
func (r *Repository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateDetails persists every editable column except stock_quantity.
func (r *Repository) UpdateDetails(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(product).
		Select("name", "description", "code", "category_id", "purchase_price", "sale_price", "is_active", "updated_at").
		Omit(clause.Associations).
		Updates(product).Error
}

func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

func (r *Repository) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountLineItemReferences reports how many sale lines point at the product.
func (r *Repository) CountLineItemReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SaleLineItem{}).Where("product_id = ?", id).Count(&count).Error
	return count, err
}

func (r *Repository) DeleteLineItemsByProduct(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("product_id = ?", id).Delete(&models.SaleLineItem{})
	return res.RowsAffected, res.Error
}

// ApplyStockDelta adds delta to the stock only when the result stays non-negative.
// A false return means the guard rejected the change.
func (r *Repository) ApplyStockDelta(ctx context.Context, id uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_quantity + ? >= 0", id, delta).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListLowStock returns active products at or below the threshold, lowest first.
func (r *Repository) ListLowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("is_active = ? AND stock_quantity <= ?", true, threshold).
		Order("stock_quantity ASC").
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

// ListProducts pages products newest first using a created_at/id keyset.
func (r *Repository) ListProducts(ctx context.Context, query productListQuery, lowStockThreshold int) (*ProductListResult, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Product{}).Preload("Category")
	if q := strings.ToLower(strings.TrimSpace(query.Filters.Query)); q != "" {
		like := "%" + q + "%"
		qb = qb.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", like, like)
	}
	if query.Filters.CategoryID != nil {
		qb = qb.Where("category_id = ?", *query.Filters.CategoryID)
	}
	if query.Filters.Active != nil {
		qb = qb.Where("is_active = ?", *query.Filters.Active)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, err
	}

	result := &ProductListResult{Products: make([]ProductDTO, 0, pageSize)}
	if len(rows) > pageSize {
		last := rows[pageSize-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:pageSize]
	}
	for i := range rows {
		result.Products = append(result.Products, productToDTO(&rows[i], lowStockThreshold))
	}
	return result, nil
}
