package reports

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NoDataMessage fills the single row of an empty report.
const NoDataMessage = "No data for the selected period"

// Align positions text inside a cell.
type Align string

const (
	AlignLeft   Align = "L"
	AlignCenter Align = "C"
	AlignRight  Align = "R"
)

// Column describes one table column. Width is in millimetres for PDF and is
// scaled to character widths for spreadsheets.
type Column struct {
	Header string
	Width  float64
	Align  Align
	Money  bool
}

// Cell carries display text plus the typed value written to spreadsheets.
type Cell struct {
	Text  string
	Value any
}

// Card is one summary figure shown above the table.
type Card struct {
	Label string
	Value string
}

// Document is the renderer-neutral report layout.
type Document struct {
	Title       string
	Sheet       string
	Period      string
	GeneratedAt time.Time
	Cards       []Card
	Columns     []Column
	Rows        [][]Cell
	Totals      []Cell
	Empty       bool
}

func textCell(s string) Cell {
	return Cell{Text: s, Value: s}
}

func intCell(n int64) Cell {
	return Cell{Text: strconv.FormatInt(n, 10), Value: n}
}

func moneyCell(d decimal.Decimal) Cell {
	return Cell{Text: FormatMoney(d), Value: d.Round(2).InexactFloat64()}
}

// FormatMoney renders d as $1,234.50.
func FormatMoney(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	sign := ""
	if d.IsNegative() && !d.Round(2).IsZero() {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%s", sign, b.String(), frac)
}

// BuildSalesDocument lays out a sales report.
func BuildSalesDocument(summary SalesSummary, rng DateRange, generatedAt time.Time) Document {
	doc := Document{
		Title:       "Sales report",
		Sheet:       "Sales",
		Period:      rng.Label(),
		GeneratedAt: generatedAt,
		Cards: []Card{
			{Label: "Sales", Value: fmt.Sprintf("%d sales", summary.Count)},
			{Label: "Total amount", Value: FormatMoney(summary.Total)},
		},
		Columns: []Column{
			{Header: "#", Width: 12, Align: AlignCenter},
			{Header: "Date/Time", Width: 38, Align: AlignCenter},
			{Header: "Customer", Width: 62, Align: AlignLeft},
			{Header: "Payment", Width: 32, Align: AlignCenter},
			{Header: "Total", Width: 36, Align: AlignRight, Money: true},
		},
	}
	for i, row := range summary.Rows {
		doc.Rows = append(doc.Rows, []Cell{
			intCell(int64(i + 1)),
			textCell(row.SoldAt.Format("2006-01-02 15:04")),
			textCell(row.Customer),
			textCell(row.PaymentMethod),
			moneyCell(row.Total),
		})
	}
	doc.Totals = []Cell{textCell(""), textCell(""), textCell(""), textCell("TOTAL"), moneyCell(summary.Total)}
	doc.fillEmpty()
	return doc
}

// BuildStockDocument lays out a stock (units sold) report.
func BuildStockDocument(summary StockSummary, rng DateRange, generatedAt time.Time) Document {
	doc := Document{
		Title:       "Stock sold report",
		Sheet:       "Stock",
		Period:      rng.Label(),
		GeneratedAt: generatedAt,
		Cards: []Card{
			{Label: "Products", Value: fmt.Sprintf("%d products", summary.Products)},
			{Label: "Units sold", Value: fmt.Sprintf("%d units", summary.Units)},
			{Label: "Total amount", Value: FormatMoney(summary.Total)},
		},
		Columns: []Column{
			{Header: "#", Width: 10, Align: AlignCenter},
			{Header: "Product", Width: 56, Align: AlignLeft},
			{Header: "Code", Width: 28, Align: AlignCenter},
			{Header: "Category", Width: 36, Align: AlignLeft},
			{Header: "Qty", Width: 18, Align: AlignRight},
			{Header: "Total", Width: 32, Align: AlignRight, Money: true},
		},
	}
	for i, row := range summary.Rows {
		category := row.Category
		if category == "" {
			category = "-"
		}
		doc.Rows = append(doc.Rows, []Cell{
			intCell(int64(i + 1)),
			textCell(row.Product),
			textCell(row.Code),
			textCell(category),
			intCell(row.Quantity),
			moneyCell(row.Total),
		})
	}
	doc.Totals = []Cell{textCell(""), textCell(""), textCell(""), textCell("TOTAL"), intCell(summary.Units), moneyCell(summary.Total)}
	doc.fillEmpty()
	return doc
}

// fillEmpty swaps an empty table for the single no-data row.
func (d *Document) fillEmpty() {
	if len(d.Rows) > 0 {
		return
	}
	d.Empty = true
	row := make([]Cell, len(d.Columns))
	for i := range row {
		row[i] = textCell("")
	}
	row[0] = textCell(NoDataMessage)
	d.Rows = [][]Cell{row}
}

// TotalWidth sums the column widths.
func (d Document) TotalWidth() float64 {
	total := 0.0
	for _, c := range d.Columns {
		total += c.Width
	}
	return total
}
