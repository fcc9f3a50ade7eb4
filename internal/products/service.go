package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storedesk-backend/internal/ledger"
	"github.com/angelmondragon/storedesk-backend/pkg/db"
	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/angelmondragon/storedesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service exposes catalog product management and audited stock changes.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, actorID *uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	AdjustStock(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, input StockAdjustmentInput) (*ProductDTO, error)
	ListLowStock(ctx context.Context) ([]ProductDTO, error)
	ListMovements(ctx context.Context, id uuid.UUID, limit int) ([]ledger.MovementDTO, error)
}

// Options holds the catalog policy knobs.
type Options struct {
	DeletePolicy      enums.ProductDeletePolicy
	LowStockThreshold int
}

type service struct {
	repo     *Repository
	dbClient db.TxRunner
	ledger   ledger.Service
	opts     Options
}

// NewService constructs a product service instance.
func NewService(repo *Repository, dbClient db.TxRunner, ledgerSvc ledger.Service, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if opts.DeletePolicy == "" {
		opts.DeletePolicy = enums.ProductDeleteCascade
	}
	if opts.LowStockThreshold < 0 {
		opts.LowStockThreshold = 0
	}
	return &service{repo: repo, dbClient: dbClient, ledger: ledgerSvc, opts: opts}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if _, err := pagination.ParseCursor(input.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	result, err := s.repo.ListProducts(ctx, productListQuery(input), s.opts.LowStockThreshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	return result, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := productToDTO(product, s.opts.LowStockThreshold)
	return &dto, nil
}

func (s *service) CreateProduct(ctx context.Context, actorID *uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.StockQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock_quantity must be zero or positive")
	}
	if err := validatePrices(input.PurchasePrice, input.SalePrice); err != nil {
		return nil, err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	product := &models.Product{
		Name:          name,
		Description:   strings.TrimSpace(input.Description),
		Code:          strings.TrimSpace(input.Code),
		CategoryID:    input.CategoryID,
		PurchasePrice: input.PurchasePrice.Round(2),
		SalePrice:     input.SalePrice.Round(2),
		StockQuantity: input.StockQuantity,
		IsActive:      isActive,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := ensureCategory(ctx, txRepo, product.CategoryID); err != nil {
			return err
		}
		if _, err := txRepo.CreateProduct(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		if product.StockQuantity > 0 {
			if _, err := s.ledger.WithTx(tx).RecordMovement(ctx, ledger.RecordMovementInput{
				ProductID:     product.ID,
				ActorUserID:   actorID,
				Type:          enums.StockMovementInitial,
				StockBefore:   0,
				QuantityDelta: product.StockQuantity,
				Note:          "opening stock",
			}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return s.GetProduct(ctx, product.ID)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := s.load(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if err := applyUpdateToProduct(product, input); err != nil {
			return err
		}
		if err := ensureCategory(ctx, txRepo, product.CategoryID); err != nil {
			return err
		}
		if err := txRepo.UpdateDetails(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct honours the configured policy for sale lines referencing the product.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := s.load(ctx, txRepo, id); err != nil {
			return err
		}

		refs, err := txRepo.CountLineItemReferences(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count product references")
		}
		if refs > 0 {
			if s.opts.DeletePolicy == enums.ProductDeleteRestrict {
				return pkgerrors.Newf(pkgerrors.CodeStateConflict, "product is referenced by %d sale line(s)", refs).
					WithDetails(map[string]any{"line_items": refs})
			}
			if _, err := txRepo.DeleteLineItemsByProduct(ctx, id); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product line items")
			}
		}

		if _, err := txRepo.DeleteProduct(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
		}
		return nil
	})
}

// AdjustStock applies a signed manual correction and records an adjustment movement.
func (s *service) AdjustStock(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, input StockAdjustmentInput) (*ProductDTO, error) {
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := txRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock product")
		}
		if product.StockQuantity+input.Delta < 0 {
			return insufficientStock(product, -input.Delta)
		}
		ok, err := txRepo.ApplyStockDelta(ctx, id, input.Delta)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: adjust stock")
		}
		if !ok {
			return insufficientStock(product, -input.Delta)
		}
		_, err = s.ledger.WithTx(tx).RecordMovement(ctx, ledger.RecordMovementInput{
			ProductID:     id,
			ActorUserID:   actorID,
			Type:          enums.StockMovementAdjustment,
			StockBefore:   product.StockQuantity,
			QuantityDelta: input.Delta,
			Note:          strings.TrimSpace(input.Note),
		})
		return err
	}); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

func (s *service) ListLowStock(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListLowStock(ctx, s.opts.LowStockThreshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list low stock products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, productToDTO(&rows[i], s.opts.LowStockThreshold))
	}
	return out, nil
}

func (s *service) ListMovements(ctx context.Context, id uuid.UUID, limit int) ([]ledger.MovementDTO, error) {
	if _, err := s.load(ctx, s.repo, id); err != nil {
		return nil, err
	}
	return s.ledger.ListForProduct(ctx, id, limit)
}

func (s *service) load(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Product, error) {
	product, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return product, nil
}

func ensureCategory(ctx context.Context, repo *Repository, categoryID *uuid.UUID) error {
	if categoryID == nil {
		return nil
	}
	exists, err := repo.CategoryExists(ctx, *categoryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check category")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return nil
}

func validatePrices(purchase, sale decimal.Decimal) error {
	if purchase.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase_price must be zero or positive")
	}
	if sale.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale_price must be zero or positive")
	}
	return nil
}

func applyUpdateToProduct(product *models.Product, input UpdateProductInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Code != nil {
		product.Code = strings.TrimSpace(*input.Code)
	}
	if input.ClearCategory {
		product.CategoryID = nil
	} else if input.CategoryID != nil {
		categoryID := *input.CategoryID
		product.CategoryID = &categoryID
	}
	product.Category = nil

	purchase, sale := product.PurchasePrice, product.SalePrice
	if input.PurchasePrice != nil {
		purchase = input.PurchasePrice.Round(2)
	}
	if input.SalePrice != nil {
		sale = input.SalePrice.Round(2)
	}
	if err := validatePrices(purchase, sale); err != nil {
		return err
	}
	product.PurchasePrice, product.SalePrice = purchase, sale

	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	return nil
}

func insufficientStock(product *models.Product, requested int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock").
		WithDetails(map[string]any{
			"product_id":   product.ID,
			"product_name": product.Name,
			"requested":    requested,
			"available":    product.StockQuantity,
		})
}
