package customers

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCustomerRequiresName(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()), client)
	require.NoError(t, err)

	_, err = svc.CreateCustomer(context.Background(), CustomerInput{Name: "  "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	created, err := svc.CreateCustomer(context.Background(), CustomerInput{Name: " Ana ", Email: " ANA@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "Ana", created.Name)
	assert.Equal(t, "ana@example.com", created.Email)
}

func TestDeleteCustomerDetachesSales(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()), client)
	require.NoError(t, err)
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, CustomerInput{Name: "Bruno"})
	require.NoError(t, err)
	soldAt := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	sale := &models.Sale{
		SoldAt:        soldAt,
		CustomerID:    &customer.ID,
		Total:         decimal.NewFromInt(20),
		PaymentMethod: enums.PaymentMethodCash,
	}
	require.NoError(t, client.DB().Create(sale).Error)

	got, err := svc.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SalesCount)
	assert.EqualValues(t, 1, *got.SalesCount)
	require.NotNil(t, got.LastSaleAt)
	assert.True(t, got.LastSaleAt.Equal(soldAt))

	require.NoError(t, svc.DeleteCustomer(ctx, customer.ID))

	var reloaded models.Sale
	require.NoError(t, client.DB().First(&reloaded, "id = ?", sale.ID).Error)
	assert.Nil(t, reloaded.CustomerID)

	assert.True(t, pkgerrors.IsCode(svc.DeleteCustomer(ctx, customer.ID), pkgerrors.CodeNotFound))
}

func TestListCustomersPaginates(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(repo, client)
	require.NoError(t, err)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		row := &models.Customer{Name: "Customer", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, client.DB().Create(row).Error)
	}

	page, err := svc.ListCustomers(ctx, ListCustomersInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Customers, 2)
	require.NotEmpty(t, page.NextCursor)
	assert.True(t, page.Customers[0].CreatedAt.After(page.Customers[1].CreatedAt))

	next, err := svc.ListCustomers(ctx, ListCustomersInput{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Customers, 1)
	assert.Empty(t, next.NextCursor)
	assert.True(t, next.Customers[0].CreatedAt.Equal(base))

	_, err = svc.ListCustomers(ctx, ListCustomersInput{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateCustomerNotFound(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()), client)
	require.NoError(t, err)

	_, err = svc.UpdateCustomer(context.Background(), uuid.New(), CustomerInput{Name: "X"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
