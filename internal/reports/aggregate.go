package reports

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	dateLayout = "2006-01-02"
	// WalkInCustomerName labels sales without a customer.
	WalkInCustomerName = "Walk-in customer"
)

// DateRange is an inclusive range of calendar days in a business timezone.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange reads two YYYY-MM-DD values in loc. Both are required and
// start must not come after end.
func ParseDateRange(start, end string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return DateRange{}, errors.New("start_date and end_date are required")
	}
	from, err := time.ParseInLocation(dateLayout, start, loc)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start_date %q", start)
	}
	to, err := time.ParseInLocation(dateLayout, end, loc)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end_date %q", end)
	}
	if from.After(to) {
		return DateRange{}, errors.New("start_date must not be after end_date")
	}
	return DateRange{Start: from, End: to}, nil
}

// Bounds returns the half-open UTC instant range [start 00:00, end+1 00:00)
// so a sale is included when its local date falls inside the range.
func (r DateRange) Bounds() (time.Time, time.Time) {
	return r.Start.UTC(), r.End.AddDate(0, 0, 1).UTC()
}

// Label renders the range for document headers.
func (r DateRange) Label() string {
	return fmt.Sprintf("%s to %s", r.Start.Format(dateLayout), r.End.Format(dateLayout))
}

// SalesRow is one sale in a sales report.
type SalesRow struct {
	SaleID        uuid.UUID
	SoldAt        time.Time
	Customer      string
	PaymentMethod string
	Total         decimal.Decimal
}

// SalesSummary aggregates sales for a range.
type SalesSummary struct {
	Rows  []SalesRow
	Count int
	Total decimal.Decimal
}

// SummarizeSales expects sales ordered by sold_at then id.
func SummarizeSales(sales []models.Sale, loc *time.Location) SalesSummary {
	if loc == nil {
		loc = time.UTC
	}
	summary := SalesSummary{Rows: make([]SalesRow, 0, len(sales)), Total: decimal.Zero}
	for _, sale := range sales {
		customer := WalkInCustomerName
		if sale.Customer != nil && sale.Customer.Name != "" {
			customer = sale.Customer.Name
		}
		summary.Rows = append(summary.Rows, SalesRow{
			SaleID:        sale.ID,
			SoldAt:        sale.SoldAt.In(loc),
			Customer:      customer,
			PaymentMethod: sale.PaymentMethod.Label(),
			Total:         sale.Total,
		})
		summary.Total = summary.Total.Add(sale.Total)
	}
	summary.Count = len(summary.Rows)
	return summary
}

// SoldLine is a line item joined with its product for stock aggregation.
type SoldLine struct {
	ProductID    uuid.UUID
	ProductName  string
	ProductCode  string
	CategoryName *string
	Quantity     int
	UnitPrice    decimal.Decimal
}

// StockRow is one product group in a stock report.
type StockRow struct {
	ProductID uuid.UUID
	Product   string
	Code      string
	Category  string
	Quantity  int64
	Total     decimal.Decimal
}

// StockSummary aggregates sold quantities per product.
type StockSummary struct {
	Rows     []StockRow
	Products int
	Units    int64
	Total    decimal.Decimal
}

// SummarizeStock groups lines by product, ordered by quantity descending then
// product name.
func SummarizeStock(lines []SoldLine) StockSummary {
	groups := map[uuid.UUID]*StockRow{}
	for _, line := range lines {
		row, ok := groups[line.ProductID]
		if !ok {
			category := ""
			if line.CategoryName != nil {
				category = *line.CategoryName
			}
			row = &StockRow{
				ProductID: line.ProductID,
				Product:   line.ProductName,
				Code:      line.ProductCode,
				Category:  category,
				Total:     decimal.Zero,
			}
			groups[line.ProductID] = row
		}
		row.Quantity += int64(line.Quantity)
		row.Total = row.Total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	summary := StockSummary{Rows: make([]StockRow, 0, len(groups)), Total: decimal.Zero}
	for _, row := range groups {
		summary.Rows = append(summary.Rows, *row)
		summary.Units += row.Quantity
		summary.Total = summary.Total.Add(row.Total)
	}
	sort.Slice(summary.Rows, func(i, j int) bool {
		a, b := summary.Rows[i], summary.Rows[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		if a.Product != b.Product {
			return a.Product < b.Product
		}
		return a.ProductID.String() < b.ProductID.String()
	})
	summary.Products = len(summary.Rows)
	return summary
}
