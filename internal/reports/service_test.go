package reports

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db"
	"github.com/angelmondragon/storedesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/angelmondragon/storedesk-backend/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type serviceFixture struct {
	svc    Service
	client *db.Client
	store  *storage.FileStore
	now    time.Time
}

func newServiceFixture(t *testing.T, loc *time.Location) *serviceFixture {
	t.Helper()
	client := dbtest.Open(t)
	store, err := storage.NewFileStore(context.Background(), t.TempDir(), nil)
	require.NoError(t, err)

	f := &serviceFixture{client: client, store: store, now: time.Date(2024, 2, 15, 9, 30, 0, 0, time.UTC)}
	svc, err := NewService(ServiceParams{
		Repo:  NewRepository(client.DB()),
		Store: store,
		Options: Options{
			Location: loc,
			Clock:    func() time.Time { return f.now },
		},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

// seedJanuary writes sales on 2024-01-05 (100.00), 2024-01-10 (50.00) and
// 2024-02-01 (200.00).
func seedJanuary(t *testing.T, conn *gorm.DB) {
	t.Helper()

	drinks := &models.Category{Name: "Drinks"}
	require.NoError(t, conn.Create(drinks).Error)
	ana := &models.Customer{Name: "Ana"}
	require.NoError(t, conn.Create(ana).Error)

	cola := &models.Product{Name: "Cola", Code: "C1", CategoryID: &drinks.ID, SalePrice: decimal.RequireFromString("25.00"), StockQuantity: 50, IsActive: true}
	chips := &models.Product{Name: "Chips", Code: "K1", SalePrice: decimal.RequireFromString("10.00"), StockQuantity: 50, IsActive: true}
	require.NoError(t, conn.Create(cola).Error)
	require.NoError(t, conn.Create(chips).Error)

	sale := func(at time.Time, customer *models.Customer, method enums.PaymentMethod, p *models.Product, qty int) {
		s := &models.Sale{
			SoldAt:        at,
			Total:         p.SalePrice.Mul(decimal.NewFromInt(int64(qty))),
			PaymentMethod: method,
		}
		if customer != nil {
			s.CustomerID = &customer.ID
		}
		require.NoError(t, conn.Omit("Customer", "Operator").Create(s).Error)
		line := &models.SaleLineItem{SaleID: s.ID, ProductID: p.ID, Quantity: qty, UnitPrice: p.SalePrice}
		require.NoError(t, conn.Omit("Sale", "Product").Create(line).Error)
	}
	sale(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), ana, enums.PaymentMethodCash, cola, 4)
	sale(time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC), nil, enums.PaymentMethodCard, chips, 5)
	sale(time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC), ana, enums.PaymentMethodTransfer, cola, 8)
}

func readAll(t *testing.T, r io.ReadCloser) []byte {
	t.Helper()
	defer r.Close()
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	return body
}

func TestGenerateSalesReportForJanuary(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()
	seedJanuary(t, f.client.DB())

	report, err := f.svc.GenerateReport(ctx, GenerateReportInput{
		Type:      "sales",
		Format:    "pdf",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RecordStatusCompleted, report.Status)
	assert.Equal(t, 2, report.TotalRecords)
	assert.True(t, report.TotalAmount.Equal(decimal.RequireFromString("150.00")), report.TotalAmount.String())
	assert.Equal(t, "sales_pdf_20240215_093000.pdf", report.FileName)
	assert.Equal(t, "2024-01-01", report.StartDate)
	assert.Equal(t, "2024-01-31", report.EndDate)
	assert.Equal(t, "Sales report 2024-01-01 to 2024-01-31", report.Description)
	assert.Positive(t, report.FileSize)
	require.NotNil(t, report.CompletedAt)

	download, err := f.svc.OpenReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", download.ContentType)
	assert.False(t, download.Inline)
	assert.True(t, bytes.HasPrefix(readAll(t, download.Body), []byte("%PDF-")))

	preview, err := f.svc.PreviewReport(ctx, report.ID)
	require.NoError(t, err)
	assert.True(t, preview.Inline)
	_ = preview.Body.Close()
}

func TestGenerateStockReportGroupsByProduct(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()
	seedJanuary(t, f.client.DB())

	report, err := f.svc.GenerateReport(ctx, GenerateReportInput{
		Type:      "stock",
		Format:    "excel",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ReportFormatXLSX, report.Format)
	assert.Equal(t, 2, report.TotalRecords)
	assert.True(t, report.TotalAmount.Equal(decimal.RequireFromString("150")))
	assert.Equal(t, "stock_xlsx_20240215_093000.xlsx", report.FileName)

	_, err = f.svc.PreviewReport(ctx, report.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	lines, err := NewRepository(f.client.DB()).LinesInRange(ctx,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	summary := SummarizeStock(lines)
	require.Len(t, summary.Rows, 2)
	assert.Equal(t, "Chips", summary.Rows[0].Product)
	assert.Equal(t, "", summary.Rows[0].Category)
	assert.Equal(t, "Cola", summary.Rows[1].Product)
	assert.Equal(t, "Drinks", summary.Rows[1].Category)
	assert.Equal(t, int64(9), summary.Units)
}

func TestGenerateReportEmptyRange(t *testing.T) {
	f := newServiceFixture(t, nil)
	seedJanuary(t, f.client.DB())

	report, err := f.svc.GenerateReport(context.Background(), GenerateReportInput{
		Type:      "sales",
		Format:    "xlsx",
		StartDate: "2023-06-01",
		EndDate:   "2023-06-30",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RecordStatusCompleted, report.Status)
	assert.Zero(t, report.TotalRecords)
	assert.True(t, report.TotalAmount.IsZero())
}

func TestGenerateReportUsesBusinessTimezone(t *testing.T) {
	f := newServiceFixture(t, time.FixedZone("UTC-5", -5*3600))
	conn := f.client.DB()
	seedJanuary(t, conn)
	// 2024-02-01 02:00 UTC is still January 31 five hours west of UTC
	late := &models.Sale{SoldAt: time.Date(2024, 2, 1, 2, 0, 0, 0, time.UTC), Total: decimal.RequireFromString("30.00"), PaymentMethod: enums.PaymentMethodCash}
	require.NoError(t, conn.Omit("Customer", "Operator").Create(late).Error)

	report, err := f.svc.GenerateReport(context.Background(), GenerateReportInput{
		Type:      "sales",
		Format:    "pdf",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalRecords)
	assert.True(t, report.TotalAmount.Equal(decimal.RequireFromString("180")))
}

func TestGenerateReportValidation(t *testing.T) {
	f := newServiceFixture(t, nil)
	cases := []GenerateReportInput{
		{Type: "inventory", Format: "pdf", StartDate: "2024-01-01", EndDate: "2024-01-31"},
		{Type: "sales", Format: "docx", StartDate: "2024-01-01", EndDate: "2024-01-31"},
		{Type: "sales", Format: "pdf", StartDate: "2024-02-01", EndDate: "2024-01-31"},
		{Type: "sales", Format: "pdf", StartDate: "", EndDate: "2024-01-31"},
	}
	for _, input := range cases {
		_, err := f.svc.GenerateReport(context.Background(), input)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %+v: %v", input, err)
	}

	var n int64
	require.NoError(t, f.client.DB().Model(&models.ReportRecord{}).Count(&n).Error)
	assert.Zero(t, n, "rejected requests must not leave records")
}

func TestListReportsNewestFirstWithFilter(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	generate := func(kind string) *ReportDTO {
		report, err := f.svc.GenerateReport(ctx, GenerateReportInput{Type: kind, Format: "pdf", StartDate: "2024-01-01", EndDate: "2024-01-31"})
		require.NoError(t, err)
		f.now = f.now.Add(time.Minute)
		return report
	}
	first := generate("sales")
	second := generate("stock")
	third := generate("sales")

	all, err := f.svc.ListReports(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)
	assert.Equal(t, first.ID, all[2].ID)

	sales, err := f.svc.ListReports(ctx, "sales", 1)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, third.ID, sales[0].ID)

	_, err = f.svc.ListReports(ctx, "bogus", 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDeleteReportRemovesFile(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	report, err := f.svc.GenerateReport(ctx, GenerateReportInput{Type: "sales", Format: "pdf", StartDate: "2024-01-01", EndDate: "2024-01-01"})
	require.NoError(t, err)
	var record models.ReportRecord
	require.NoError(t, f.client.DB().First(&record, "id = ?", report.ID).Error)

	require.NoError(t, f.svc.DeleteReport(ctx, report.ID))

	_, err = f.store.Open(ctx, record.FilePath)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = f.svc.GetReport(ctx, report.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestPurgeBeforeRemovesExpiredReports(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.GenerateReport(ctx, GenerateReportInput{Type: "sales", Format: "pdf", StartDate: "2024-01-01", EndDate: "2024-01-31"})
	require.NoError(t, err)
	f.now = f.now.AddDate(0, 0, 100)
	fresh, err := f.svc.GenerateReport(ctx, GenerateReportInput{Type: "stock", Format: "xlsx", StartDate: "2024-01-01", EndDate: "2024-01-31"})
	require.NoError(t, err)

	removed, err := f.svc.PurgeBefore(ctx, f.now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	remaining, err := f.svc.ListReports(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, fresh.ID, remaining[0].ID)
}
