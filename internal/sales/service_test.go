package sales

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/storedesk-backend/internal/ledger"
	product "github.com/angelmondragon/storedesk-backend/internal/products"
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

type fixture struct {
	svc    Service
	client *db.Client
	ledger ledger.Service
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	client := dbtest.Open(t)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(client.DB()))
	require.NoError(t, err)
	svc, err := NewService(NewRepository(client.DB()), product.NewRepository(client.DB()), client, ledgerSvc, opts)
	require.NoError(t, err)
	return fixture{svc: svc, client: client, ledger: ledgerSvc}
}

func (f fixture) product(t *testing.T, name string, stock int, price string) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:          name,
		Code:          name,
		SalePrice:     decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, f.client.DB().Create(p).Error)
	return p
}

func (f fixture) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var p models.Product
	require.NoError(t, f.client.DB().First(&p, "id = ?", id).Error)
	return p.StockQuantity
}

func (f fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.client.DB().Model(model).Count(&n).Error)
	return n
}

func TestCreateSaleDecrementsStockAndComputesTotal(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	cola := f.product(t, "Cola", 10, "1.50")
	chips := f.product(t, "Chips", 5, "2.25")

	sale, err := f.svc.CreateSale(ctx, CreateSaleInput{
		PaymentMethod: "card",
		Items: []LineInput{
			{ProductID: cola.ID, Quantity: 3},
			{ProductID: chips.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)

	assert.True(t, sale.Total.Equal(decimal.RequireFromString("9.00")), "total %s", sale.Total)
	assert.Equal(t, enums.PaymentMethodCard, sale.PaymentMethod)
	assert.Equal(t, WalkInCustomerName, sale.CustomerName)
	require.Len(t, sale.Items, 2)
	assert.Equal(t, "Cola", sale.Items[0].ProductName)
	assert.Equal(t, 5, sale.ItemCount)

	assert.Equal(t, 7, f.stockOf(t, cola.ID))
	assert.Equal(t, 3, f.stockOf(t, chips.ID))

	movements, err := f.ledger.ListForSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	for _, m := range movements {
		assert.Equal(t, enums.StockMovementSale, m.Type)
		assert.Negative(t, m.QuantityDelta)
	}
}

func TestCreateSaleDefaultsToCash(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product(t, "Water", 2, "1.00")

	sale, err := f.svc.CreateSale(context.Background(), CreateSaleInput{Items: []LineInput{{ProductID: p.ID, Quantity: 1}}})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodCash, sale.PaymentMethod)
}

func TestCreateSaleInsufficientStockPersistsNothing(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	plenty := f.product(t, "Plenty", 100, "1.00")
	scarce := f.product(t, "Scarce", 2, "4.00")

	_, err := f.svc.CreateSale(ctx, CreateSaleInput{Items: []LineInput{
		{ProductID: plenty.ID, Quantity: 5},
		{ProductID: scarce.ID, Quantity: 3},
	}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	short, ok := details["insufficient_stock"].([]InsufficientStock)
	require.True(t, ok)
	require.Len(t, short, 1)
	assert.Equal(t, scarce.ID, short[0].ProductID)
	assert.Equal(t, 3, short[0].Requested)
	assert.Equal(t, 2, short[0].Available)

	assert.Zero(t, f.count(t, &models.Sale{}))
	assert.Zero(t, f.count(t, &models.SaleLineItem{}))
	assert.Zero(t, f.count(t, &models.StockMovement{}))
	assert.Equal(t, 100, f.stockOf(t, plenty.ID))
	assert.Equal(t, 2, f.stockOf(t, scarce.ID))
}

func TestCreateSaleAggregatesDuplicateLines(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	p := f.product(t, "Gum", 5, "0.50")

	_, err := f.svc.CreateSale(ctx, CreateSaleInput{Items: []LineInput{
		{ProductID: p.ID, Quantity: 3},
		{ProductID: p.ID, Quantity: 3},
	}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "combined quantity exceeds stock")
	assert.Equal(t, 5, f.stockOf(t, p.ID))

	sale, err := f.svc.CreateSale(ctx, CreateSaleInput{Items: []LineInput{
		{ProductID: p.ID, Quantity: 2},
		{ProductID: p.ID, Quantity: 3},
	}})
	require.NoError(t, err)
	require.Len(t, sale.Items, 2)
	assert.Equal(t, 0, f.stockOf(t, p.ID))
	assert.True(t, sale.Total.Equal(decimal.RequireFromString("2.50")))
}

func TestCreateSaleRejectsBadInput(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	p := f.product(t, "Soap", 5, "3.00")
	missingCustomer := uuid.New()

	cases := []struct {
		name  string
		input CreateSaleInput
		code  pkgerrors.Code
	}{
		{"empty", CreateSaleInput{}, pkgerrors.CodeValidation},
		{"zeroQuantity", CreateSaleInput{Items: []LineInput{{ProductID: p.ID}}}, pkgerrors.CodeValidation},
		{"badPayment", CreateSaleInput{PaymentMethod: "barter", Items: []LineInput{{ProductID: p.ID, Quantity: 1}}}, pkgerrors.CodeValidation},
		{"unknownProduct", CreateSaleInput{Items: []LineInput{{ProductID: uuid.New(), Quantity: 1}}}, pkgerrors.CodeNotFound},
		{"unknownCustomer", CreateSaleInput{CustomerID: &missingCustomer, Items: []LineInput{{ProductID: p.ID, Quantity: 1}}}, pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateSale(ctx, tc.input)
			assert.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}
	assert.Zero(t, f.count(t, &models.Sale{}))
	assert.Equal(t, 5, f.stockOf(t, p.ID))
}

func TestReplaceLineItemsIdenticalListIsIdempotent(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	a := f.product(t, "A", 10, "2.00")
	b := f.product(t, "B", 4, "5.00")
	items := []LineInput{{ProductID: a.ID, Quantity: 3}, {ProductID: b.ID, Quantity: 4}}

	sale, err := f.svc.CreateSale(ctx, CreateSaleInput{Items: items})
	require.NoError(t, err)
	require.Equal(t, 0, f.stockOf(t, b.ID))

	replaced, err := f.svc.ReplaceLineItems(ctx, sale.ID, ReplaceLineItemsInput{Items: items})
	require.NoError(t, err, "stock held by the sale counts as available")
	assert.True(t, replaced.Total.Equal(sale.Total))
	assert.Equal(t, 7, f.stockOf(t, a.ID))
	assert.Equal(t, 0, f.stockOf(t, b.ID))
	assert.EqualValues(t, 2, f.count(t, &models.SaleLineItem{}))
}

func TestReplaceLineItemsMovesStock(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	a := f.product(t, "A", 10, "2.00")
	b := f.product(t, "B", 10, "5.00")

	sale, err := f.svc.CreateSale(ctx, CreateSaleInput{Items: []LineInput{{ProductID: a.ID, Quantity: 4}}})
	require.NoError(t, err)

	replaced, err := f.svc.ReplaceLineItems(ctx, sale.ID, ReplaceLineItemsInput{Items: []LineInput{
		{ProductID: a.ID, Quantity: 1},
		{ProductID: b.ID, Quantity: 2},
	}})
	require.NoError(t, err)
	assert.True(t, replaced.Total.Equal(decimal.RequireFromString("12.00")), "total %s", replaced.Total)
	assert.Equal(t, 9, f.stockOf(t, a.ID))
	assert.Equal(t, 8, f.stockOf(t, b.ID))

	_, err = f.svc.ReplaceLineItems(ctx, sale.ID, ReplaceLineItemsInput{Items: []LineInput{{ProductID: b.ID, Quantity: 11}}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, 9, f.stockOf(t, a.ID), "failed replacement leaves stock untouched")
	assert.Equal(t, 8, f.stockOf(t, b.ID))

	got, err := f.svc.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.True(t, got.Total.Equal(replaced.Total))

	_, err = f.svc.ReplaceLineItems(ctx, uuid.New(), ReplaceLineItemsInput{Items: []LineInput{{ProductID: a.ID, Quantity: 1}}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateSaleDetailsLeavesLinesAlone(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	p := f.product(t, "Tea", 10, "3.00")
	customer := &models.Customer{Name: "Carla"}
	require.NoError(t, f.client.DB().Create(customer).Error)

	sale, err := f.svc.CreateSale(ctx, CreateSaleInput{Items: []LineInput{{ProductID: p.ID, Quantity: 2}}})
	require.NoError(t, err)

	method := "transfer"
	updated, err := f.svc.UpdateSaleDetails(ctx, sale.ID, UpdateSaleDetailsInput{CustomerID: &customer.ID, PaymentMethod: &method})
	require.NoError(t, err)
	assert.Equal(t, "Carla", updated.CustomerName)
	assert.Equal(t, enums.PaymentMethodTransfer, updated.PaymentMethod)
	assert.True(t, updated.Total.Equal(sale.Total))
	assert.True(t, updated.SoldAt.Equal(sale.SoldAt))
	assert.Equal(t, 8, f.stockOf(t, p.ID))

	cleared, err := f.svc.UpdateSaleDetails(ctx, sale.ID, UpdateSaleDetailsInput{ClearCustomer: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.CustomerID)
}

func TestDeleteSaleStockPolicy(t *testing.T) {
	t.Run("keepsStockByDefault", func(t *testing.T) {
		f := newFixture(t, Options{})
		ctx := context.Background()
		p := f.product(t, "Jam", 5, "4.00")
		sale, err := f.svc.CreateSale(ctx, CreateSaleInput{Items: []LineInput{{ProductID: p.ID, Quantity: 2}}})
		require.NoError(t, err)

		require.NoError(t, f.svc.DeleteSale(ctx, sale.ID, nil))
		assert.Equal(t, 3, f.stockOf(t, p.ID))
		assert.Zero(t, f.count(t, &models.SaleLineItem{}))

		_, err = f.svc.GetSale(ctx, sale.ID)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
		assert.True(t, pkgerrors.IsCode(f.svc.DeleteSale(ctx, sale.ID, nil), pkgerrors.CodeNotFound))
	})

	t.Run("restoresWhenEnabled", func(t *testing.T) {
		f := newFixture(t, Options{RestoreStockOnDelete: true})
		ctx := context.Background()
		p := f.product(t, "Jam", 5, "4.00")
		sale, err := f.svc.CreateSale(ctx, CreateSaleInput{Items: []LineInput{{ProductID: p.ID, Quantity: 2}}})
		require.NoError(t, err)

		require.NoError(t, f.svc.DeleteSale(ctx, sale.ID, nil))
		assert.Equal(t, 5, f.stockOf(t, p.ID))

		movements, err := f.ledger.ListForSale(ctx, sale.ID)
		require.NoError(t, err)
		var restored int
		for _, m := range movements {
			if m.Type == enums.StockMovementSaleDeleteRestore {
				restored += m.QuantityDelta
			}
		}
		assert.Equal(t, 2, restored)
	})
}

func TestListSalesFiltersAndPaginates(t *testing.T) {
	clockTimes := []time.Time{
		time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
	}
	next := 0
	f := newFixture(t, Options{Clock: func() time.Time {
		at := clockTimes[next]
		next++
		return at
	}})
	ctx := context.Background()
	p := f.product(t, "Item", 100, "10.00")

	for range clockTimes {
		_, err := f.svc.CreateSale(ctx, CreateSaleInput{Items: []LineInput{{ProductID: p.ID, Quantity: 1}}})
		require.NoError(t, err)
	}

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	january, err := f.svc.ListSales(ctx, ListSalesInput{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, january.Sales, 2)
	assert.Equal(t, 1, january.Sales[0].ItemCount)

	page, err := f.svc.ListSales(ctx, ListSalesInput{Pagination: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Sales, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := f.svc.ListSales(ctx, ListSalesInput{Pagination: pagination.Params{Limit: 2, Cursor: page.NextCursor}})
	require.NoError(t, err)
	require.Len(t, rest.Sales, 1)

	_, err = f.svc.ListSales(ctx, ListSalesInput{From: &to, To: &from})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
