package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db"
	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/angelmondragon/storedesk-backend/pkg/logger"
	"github.com/angelmondragon/storedesk-backend/pkg/metrics"
	"github.com/angelmondragon/storedesk-backend/pkg/pagination"
	"github.com/angelmondragon/storedesk-backend/pkg/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	fileTimeLayout      = "20060102_150405"
	defaultHistoryLimit = 10
)

// Service generates, lists and serves report documents.
type Service interface {
	GenerateReport(ctx context.Context, input GenerateReportInput) (*ReportDTO, error)
	ListReports(ctx context.Context, reportType string, limit int) ([]ReportDTO, error)
	GetReport(ctx context.Context, id uuid.UUID) (*ReportDTO, error)
	OpenReport(ctx context.Context, id uuid.UUID) (*Download, error)
	PreviewReport(ctx context.Context, id uuid.UUID) (*Download, error)
	DeleteReport(ctx context.Context, id uuid.UUID) error
	PurgeBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Options tunes report generation.
type Options struct {
	// Location decides which calendar day a sale belongs to.
	Location     *time.Location
	Clock        func() time.Time
	HistoryLimit int
}

// ServiceParams bundles report service dependencies.
type ServiceParams struct {
	Repo    *Repository
	Store   storage.Store
	Metrics *metrics.OperationMetrics
	Logger  *logger.Logger
	Options Options
}

type service struct {
	repo         *Repository
	store        storage.Store
	metrics      *metrics.OperationMetrics
	logg         *logger.Logger
	loc          *time.Location
	now          func() time.Time
	historyLimit int
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("report repository required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("file store required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	loc := params.Options.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := params.Options.Clock
	if clock == nil {
		clock = time.Now
	}
	limit := params.Options.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &service{
		repo:         params.Repo,
		store:        params.Store,
		metrics:      params.Metrics,
		logg:         logg,
		loc:          loc,
		now:          clock,
		historyLimit: limit,
	}, nil
}

type built struct {
	doc     Document
	records int
	amount  decimal.Decimal
}

// GenerateReport validates the request, records a pending report, renders the
// document and stores it. The record ends completed or failed.
func (s *service) GenerateReport(ctx context.Context, input GenerateReportInput) (_ *ReportDTO, err error) {
	reportType, err := enums.ParseReportType(input.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid report type").
			WithDetails(map[string]any{"type": input.Type})
	}
	format, err := enums.ParseReportFormat(input.Format)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid report format").
			WithDetails(map[string]any{"format": input.Format})
	}
	rng, err := ParseDateRange(input.StartDate, input.EndDate, s.loc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	started := time.Now()
	defer func() { s.metrics.Observe("report_"+reportType.String(), started, err) }()

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = fmt.Sprintf("%s report %s", titleCase(reportType.String()), rng.Label())
	}

	now := s.now().UTC()
	record := &models.ReportRecord{
		Type:        reportType,
		Format:      format,
		Description: description,
		StartDate:   calendarDay(rng.Start),
		EndDate:     calendarDay(rng.End),
		Status:      enums.RecordStatusPending,
		TotalAmount: decimal.Zero,
		CreatedByID: input.CreatedByID,
		CreatedAt:   now,
	}
	if createErr := s.repo.Create(ctx, record); createErr != nil {
		if db.IsForeignKeyViolation(createErr) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "report creator not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "db: insert report record")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"report_id": record.ID.String(),
		"type":      reportType,
		"format":    format,
	})

	result, buildErr := s.build(ctx, reportType, rng, now.In(s.loc))
	if buildErr != nil {
		return nil, s.fail(ctx, record, buildErr)
	}

	renderer, rendErr := RendererFor(format)
	if rendErr != nil {
		return nil, s.fail(ctx, record, pkgerrors.Wrap(pkgerrors.CodeInternal, rendErr, "select renderer"))
	}
	var buf bytes.Buffer
	if rendErr := renderer.Render(&buf, result.doc); rendErr != nil {
		return nil, s.fail(ctx, record, pkgerrors.Wrap(pkgerrors.CodeInternal, rendErr, "render report"))
	}

	fileName := fmt.Sprintf("%s_%s_%s.%s", reportType, format, now.Format(fileTimeLayout), format.Extension())
	obj, putErr := s.store.Put(ctx, record.ID.String()+"/"+fileName, &buf)
	if putErr != nil {
		return nil, s.fail(ctx, record, pkgerrors.Wrap(pkgerrors.CodeDependency, putErr, "store report"))
	}

	completedAt := s.now().UTC()
	record.FileName = fileName
	record.FilePath = obj.Path
	record.FileSize = obj.Size
	record.TotalRecords = result.records
	record.TotalAmount = result.amount
	record.CompletedAt = &completedAt
	if transErr := transition(record, enums.RecordStatusCompleted); transErr != nil {
		return nil, transErr
	}
	if saveErr := s.repo.Save(ctx, record); saveErr != nil {
		_ = s.store.Remove(ctx, obj.Path)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, saveErr, "db: complete report record")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"records": record.TotalRecords,
		"amount":  record.TotalAmount.StringFixed(2),
	}), "report generated")

	return s.GetReport(ctx, record.ID)
}

func (s *service) build(ctx context.Context, reportType enums.ReportType, rng DateRange, generatedAt time.Time) (built, error) {
	from, to := rng.Bounds()
	switch reportType {
	case enums.ReportTypeSales:
		sales, err := s.repo.SalesInRange(ctx, from, to)
		if err != nil {
			return built{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load sales")
		}
		summary := SummarizeSales(sales, s.loc)
		return built{
			doc:     BuildSalesDocument(summary, rng, generatedAt),
			records: summary.Count,
			amount:  summary.Total,
		}, nil
	case enums.ReportTypeStock:
		lines, err := s.repo.LinesInRange(ctx, from, to)
		if err != nil {
			return built{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load sold lines")
		}
		summary := SummarizeStock(lines)
		return built{
			doc:     BuildStockDocument(summary, rng, generatedAt),
			records: summary.Products,
			amount:  summary.Total,
		}, nil
	default:
		return built{}, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported report type %q", reportType)
	}
}

// ListReports returns report history newest first. An empty type lists all.
func (s *service) ListReports(ctx context.Context, reportType string, limit int) ([]ReportDTO, error) {
	var filter *enums.ReportType
	if strings.TrimSpace(reportType) != "" {
		parsed, err := enums.ParseReportType(reportType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid report type")
		}
		filter = &parsed
	}
	if limit <= 0 {
		limit = s.historyLimit
	}
	rows, err := s.repo.List(ctx, filter, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list reports")
	}
	out := make([]ReportDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) GetReport(ctx context.Context, id uuid.UUID) (*ReportDTO, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(record)
	return &dto, nil
}

func (s *service) OpenReport(ctx context.Context, id uuid.UUID) (*Download, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, record, false)
}

// PreviewReport serves a report inline. Only PDF documents can be previewed.
func (s *service) PreviewReport(ctx context.Context, id uuid.UUID) (*Download, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !record.Format.Previewable() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s reports cannot be previewed", record.Format).
			WithDetails(map[string]any{"format": record.Format})
	}
	return s.open(ctx, record, true)
}

// DeleteReport removes the document file, then the record.
func (s *service) DeleteReport(ctx context.Context, id uuid.UUID) error {
	record, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, record)
}

// PurgeBefore deletes records (and files) created before cutoff.
func (s *service) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	rows, err := s.repo.ListCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list expired reports")
	}
	removed := 0
	for i := range rows {
		if err := s.remove(ctx, &rows[i]); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *service) open(ctx context.Context, record *models.ReportRecord, inline bool) (*Download, error) {
	if record.Status != enums.RecordStatusCompleted || record.FilePath == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "report has no document").
			WithDetails(map[string]any{"status": record.Status})
	}
	body, err := s.store.Open(ctx, record.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "report file not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open report")
	}
	return &Download{
		FileName:    record.FileName,
		ContentType: record.Format.ContentType(),
		Size:        record.FileSize,
		Inline:      inline,
		Body:        body,
	}, nil
}

func (s *service) remove(ctx context.Context, record *models.ReportRecord) error {
	if err := s.store.Remove(ctx, record.FilePath); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove report file")
	}
	if err := s.repo.Delete(ctx, record.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete report record")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.ReportRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load report")
	}
	return record, nil
}

// fail marks the record failed and returns cause.
func (s *service) fail(ctx context.Context, record *models.ReportRecord, cause error) error {
	reason := cause.Error()
	now := s.now().UTC()
	record.FailureReason = &reason
	record.CompletedAt = &now
	if err := transition(record, enums.RecordStatusFailed); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, record); err != nil {
		s.logg.Error(ctx, "failed to mark report as failed", err)
	}
	s.logg.Error(ctx, "report generation failed", cause)
	return cause
}

func transition(record *models.ReportRecord, next enums.RecordStatus) error {
	if !record.Status.CanTransitionTo(next) {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "report cannot move from %s to %s", record.Status, next)
	}
	record.Status = next
	return nil
}

// calendarDay pins a local date to midnight UTC for date columns.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
