package product

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/storedesk-backend/internal/ledger"
	"github.com/angelmondragon/storedesk-backend/pkg/db"
	"github.com/angelmondragon/storedesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/angelmondragon/storedesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, opts Options) (Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(client.DB()))
	require.NoError(t, err)
	svc, err := NewService(NewRepository(client.DB()), client, ledgerSvc, opts)
	require.NoError(t, err)
	return svc, client
}

func createSaleWithLine(t *testing.T, client *db.Client, product *models.Product, qty int) *models.Sale {
	t.Helper()
	sale := &models.Sale{
		SoldAt:        time.Now().UTC(),
		Total:         product.SalePrice.Mul(decimal.NewFromInt(int64(qty))),
		PaymentMethod: enums.PaymentMethodCash,
	}
	require.NoError(t, client.DB().Create(sale).Error)
	line := &models.SaleLineItem{SaleID: sale.ID, ProductID: product.ID, Quantity: qty, UnitPrice: product.SalePrice}
	require.NoError(t, client.DB().Create(line).Error)
	return sale
}

func TestCreateProductRecordsOpeningStock(t *testing.T) {
	svc, client := newTestService(t, Options{LowStockThreshold: 5})
	ctx := context.Background()
	category := mustCreateTestCategory(t, client.DB(), "Drinks")
	actor := uuid.New()

	created, err := svc.CreateProduct(ctx, &actor, CreateProductInput{
		Name:          " Cola ",
		Code:          "COLA",
		CategoryID:    &category.ID,
		PurchasePrice: decimal.RequireFromString("0.80"),
		SalePrice:     decimal.RequireFromString("1.50"),
		StockQuantity: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, "Cola", created.Name)
	assert.True(t, created.IsActive)
	assert.False(t, created.LowStock)
	require.NotNil(t, created.CategoryName)
	assert.Equal(t, "Drinks", *created.CategoryName)

	movements, err := svc.ListMovements(ctx, created.ID, 0)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, enums.StockMovementInitial, movements[0].Type)
	assert.Equal(t, 12, movements[0].StockAfter)
	assert.Equal(t, &actor, movements[0].ActorUserID)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, nil, CreateProductInput{Name: ""})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateProduct(ctx, nil, CreateProductInput{Name: "Bad", SalePrice: decimal.NewFromInt(-1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missing := uuid.New()
	_, err = svc.CreateProduct(ctx, nil, CreateProductInput{Name: "Orphan", CategoryID: &missing})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateProductNeverTouchesStock(t *testing.T) {
	svc, client := newTestService(t, Options{})
	ctx := context.Background()
	product := mustCreateTestProduct(t, client.DB(), "Bread", 7, 2)

	name := " Sourdough "
	price := decimal.RequireFromString("3.25")
	inactive := false
	updated, err := svc.UpdateProduct(ctx, product.ID, UpdateProductInput{
		Name:      &name,
		SalePrice: &price,
		IsActive:  &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Sourdough", updated.Name)
	assert.True(t, updated.SalePrice.Equal(price))
	assert.False(t, updated.IsActive)
	assert.Equal(t, 7, updated.StockQuantity)
}

func TestApplyUpdateToProductClearsCategory(t *testing.T) {
	categoryID := uuid.New()
	product := &models.Product{Name: "Tea", CategoryID: &categoryID}

	require.NoError(t, applyUpdateToProduct(product, UpdateProductInput{ClearCategory: true}))
	assert.Nil(t, product.CategoryID)

	blank := "  "
	err := applyUpdateToProduct(product, UpdateProductInput{Name: &blank})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdjustStock(t *testing.T) {
	svc, client := newTestService(t, Options{LowStockThreshold: 5})
	ctx := context.Background()
	product := mustCreateTestProduct(t, client.DB(), "Milk", 3, 1)

	updated, err := svc.AdjustStock(ctx, nil, product.ID, StockAdjustmentInput{Delta: 10, Note: "delivery"})
	require.NoError(t, err)
	assert.Equal(t, 13, updated.StockQuantity)

	_, err = svc.AdjustStock(ctx, nil, product.ID, StockAdjustmentInput{Delta: -14})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 13, details["available"])
	assert.Equal(t, 14, details["requested"])

	updated, err = svc.AdjustStock(ctx, nil, product.ID, StockAdjustmentInput{Delta: -13})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.StockQuantity)
	assert.True(t, updated.LowStock)

	_, err = svc.AdjustStock(ctx, nil, product.ID, StockAdjustmentInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.AdjustStock(ctx, nil, uuid.New(), StockAdjustmentInput{Delta: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	movements, err := svc.ListMovements(ctx, product.ID, 10)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	for _, m := range movements {
		assert.Equal(t, enums.StockMovementAdjustment, m.Type)
	}
}

func TestDeleteProductCascadeRemovesLines(t *testing.T) {
	svc, client := newTestService(t, Options{DeletePolicy: enums.ProductDeleteCascade})
	ctx := context.Background()
	product := mustCreateTestProduct(t, client.DB(), "Eggs", 10, 4)
	sale := createSaleWithLine(t, client, product, 2)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))

	var lines int64
	require.NoError(t, client.DB().Model(&models.SaleLineItem{}).Where("sale_id = ?", sale.ID).Count(&lines).Error)
	assert.Zero(t, lines)

	var reloaded models.Sale
	require.NoError(t, client.DB().First(&reloaded, "id = ?", sale.ID).Error)
	assert.True(t, reloaded.Total.Equal(decimal.NewFromInt(8)), "sale total is persisted, not re-derived")

	assert.True(t, pkgerrors.IsCode(svc.DeleteProduct(ctx, product.ID), pkgerrors.CodeNotFound))
}

func TestDeleteProductRestrictRefusesReferencedProduct(t *testing.T) {
	svc, client := newTestService(t, Options{DeletePolicy: enums.ProductDeleteRestrict})
	ctx := context.Background()
	product := mustCreateTestProduct(t, client.DB(), "Rice", 10, 4)
	createSaleWithLine(t, client, product, 1)

	err := svc.DeleteProduct(ctx, product.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	unused := mustCreateTestProduct(t, client.DB(), "Beans", 1, 1)
	require.NoError(t, svc.DeleteProduct(ctx, unused.ID))
}

func TestListLowStock(t *testing.T) {
	svc, client := newTestService(t, Options{LowStockThreshold: 5})
	ctx := context.Background()
	mustCreateTestProduct(t, client.DB(), "Plenty", 50, 1)
	mustCreateTestProduct(t, client.DB(), "Edge", 5, 1)
	mustCreateTestProduct(t, client.DB(), "Empty", 0, 1)

	rows, err := svc.ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Empty", rows[0].Name)
	assert.Equal(t, "Edge", rows[1].Name)
}

func TestListProductsFiltersAndPaginates(t *testing.T) {
	svc, client := newTestService(t, Options{})
	ctx := context.Background()
	category := mustCreateTestCategory(t, client.DB(), "Pantry")

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, name := range []string{"Flour", "Sugar", "Salt"} {
		p := &models.Product{
			Name:       name,
			Code:       name,
			CategoryID: &category.ID,
			SalePrice:  decimal.NewFromInt(1),
			IsActive:   true,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, client.DB().Create(p).Error)
	}
	mustCreateTestProduct(t, client.DB(), "Loose", 1, 1)

	page, err := svc.ListProducts(ctx, ListProductsInput{
		Filters:    ProductListFilters{CategoryID: &category.ID},
		Pagination: pagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "Salt", page.Products[0].Name)
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.ListProducts(ctx, ListProductsInput{
		Filters:    ProductListFilters{CategoryID: &category.ID},
		Pagination: pagination.Params{Limit: 2, Cursor: page.NextCursor},
	})
	require.NoError(t, err)
	require.Len(t, next.Products, 1)
	assert.Equal(t, "Flour", next.Products[0].Name)

	search, err := svc.ListProducts(ctx, ListProductsInput{Filters: ProductListFilters{Query: "SUG"}})
	require.NoError(t, err)
	require.Len(t, search.Products, 1)

	_, err = svc.ListProducts(ctx, ListProductsInput{Pagination: pagination.Params{Cursor: "not-base64!"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
