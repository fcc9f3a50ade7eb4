package backup

import (
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// seedStore writes a small but fully linked data set and returns the row
// count per entity.
func seedStore(t *testing.T, conn *gorm.DB) map[string]int {
	t.Helper()

	admin := &models.User{Username: "admin", Email: "admin@example.com", PasswordHash: "hash", Role: enums.RoleAdmin, IsActive: true}
	clerk := &models.User{Username: "clerk", PasswordHash: "hash", Role: enums.RoleEmployee, IsActive: true}
	require.NoError(t, conn.Create(admin).Error)
	require.NoError(t, conn.Create(clerk).Error)

	drinks := &models.Category{Name: "Drinks"}
	require.NoError(t, conn.Create(drinks).Error)

	ana := &models.Customer{Name: "Ana", TaxID: "A-1"}
	bo := &models.Customer{Name: "Bo"}
	require.NoError(t, conn.Create(ana).Error)
	require.NoError(t, conn.Create(bo).Error)

	cola := &models.Product{Name: "Cola", Code: "C1", CategoryID: &drinks.ID, SalePrice: decimal.RequireFromString("1.50"), StockQuantity: 20, IsActive: true}
	water := &models.Product{Name: "Water", Code: "W1", CategoryID: &drinks.ID, SalePrice: decimal.RequireFromString("1.00"), StockQuantity: 10, IsActive: true}
	require.NoError(t, conn.Create(cola).Error)
	require.NoError(t, conn.Create(water).Error)

	start := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	require.NoError(t, conn.Create(&models.Event{Title: "Stocktake", Start: &start}).Error)

	first := &models.Sale{SoldAt: start, CustomerID: &ana.ID, OperatorID: &admin.ID, Total: decimal.RequireFromString("4.00"), PaymentMethod: enums.PaymentMethodCash}
	second := &models.Sale{SoldAt: start.Add(time.Hour), CustomerID: &bo.ID, OperatorID: &clerk.ID, Total: decimal.RequireFromString("1.50"), PaymentMethod: enums.PaymentMethodCard}
	require.NoError(t, conn.Create(first).Error)
	require.NoError(t, conn.Create(second).Error)

	lines := []models.SaleLineItem{
		{SaleID: first.ID, ProductID: cola.ID, Position: 0, Quantity: 2, UnitPrice: cola.SalePrice},
		{SaleID: first.ID, ProductID: water.ID, Position: 1, Quantity: 1, UnitPrice: water.SalePrice},
		{SaleID: second.ID, ProductID: cola.ID, Position: 0, Quantity: 1, UnitPrice: cola.SalePrice},
	}
	require.NoError(t, conn.Omit("Sale", "Product").Create(&lines).Error)

	return map[string]int{
		EntityUsers:         2,
		EntityCategories:    1,
		EntityCustomers:     2,
		EntityProducts:      2,
		EntityEvents:        1,
		EntitySales:         2,
		EntitySaleLineItems: 3,
	}
}

func countRows(t *testing.T, conn *gorm.DB, model any) int {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(model).Count(&n).Error)
	return int(n)
}

func modelFor(entity string) any {
	switch entity {
	case EntityUsers:
		return &models.User{}
	case EntityCategories:
		return &models.Category{}
	case EntityCustomers:
		return &models.Customer{}
	case EntityProducts:
		return &models.Product{}
	case EntityEvents:
		return &models.Event{}
	case EntitySales:
		return &models.Sale{}
	case EntitySaleLineItems:
		return &models.SaleLineItem{}
	}
	panic("unknown entity " + entity)
}

func mustDecimal(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func appendErr(err error, i int) error {
	return multierr.Append(err, fmt.Errorf("record %d failed", i))
}
