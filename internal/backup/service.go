package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db"
	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storedesk-backend/pkg/db/types"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/angelmondragon/storedesk-backend/pkg/logger"
	"github.com/angelmondragon/storedesk-backend/pkg/metrics"
	"github.com/angelmondragon/storedesk-backend/pkg/pagination"
	"github.com/angelmondragon/storedesk-backend/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	archiveContentType = "application/json"
	fileTimeLayout     = "20060102_150405"
	systemOperatorName = "system"
)

// Service manages backup archives and restores.
type Service interface {
	CreateBackup(ctx context.Context, input CreateBackupInput) (*BackupDTO, error)
	ListBackups(ctx context.Context, limit int) ([]BackupDTO, error)
	GetBackup(ctx context.Context, id uuid.UUID) (*BackupDTO, error)
	OpenBackup(ctx context.Context, id uuid.UUID) (*Download, error)
	DeleteBackup(ctx context.Context, id uuid.UUID) error
	RestoreArchive(ctx context.Context, r io.Reader) (*RestoreResult, error)
	RestoreBackup(ctx context.Context, id uuid.UUID) (*RestoreResult, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Options tunes the backup service.
type Options struct {
	Clock func() time.Time
}

type service struct {
	repo     *Repository
	dbClient db.TxRunner
	store    storage.Store
	engine   *Engine
	metrics  *metrics.OperationMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams bundles backup service dependencies.
type ServiceParams struct {
	Repo    *Repository
	DB      db.TxRunner
	Store   storage.Store
	Engine  *Engine
	Metrics *metrics.OperationMetrics
	Logger  *logger.Logger
	Options Options
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("backup repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("file store required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	engine := params.Engine
	if engine == nil {
		engine = NewEngine(DefaultManifest(), logg)
	}
	clock := params.Options.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:     params.Repo,
		dbClient: params.DB,
		store:    params.Store,
		engine:   engine,
		metrics:  params.Metrics,
		logg:     logg,
		now:      clock,
	}, nil
}

// CreateBackup records a pending backup, exports every entity and stores the
// archive. The record ends completed or failed.
func (s *service) CreateBackup(ctx context.Context, input CreateBackupInput) (_ *BackupDTO, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("backup", started, err) }()

	now := s.now().UTC()
	operatorName := systemOperatorName
	if input.OperatorID != nil {
		operator, lookupErr := s.repo.FindOperator(ctx, *input.OperatorID)
		if lookupErr != nil {
			if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "operator not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lookupErr, "db: load operator")
		}
		operatorName = operator.DisplayName()
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = fmt.Sprintf("Backup %s", now.Format("2006-01-02 15:04"))
	}

	record := &models.BackupRecord{
		Description:  description,
		Status:       enums.RecordStatusPending,
		OperatorID:   input.OperatorID,
		OperatorName: operatorName,
		EntityCounts: dbtypes.EntityCounts{},
		CreatedAt:    now,
	}
	if createErr := s.repo.Create(ctx, record); createErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "db: insert backup record")
	}
	ctx = s.logg.WithField(ctx, "backup_id", record.ID.String())

	var (
		archive *Archive
		summary ExportSummary
	)
	if txErr := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		archive, summary = s.engine.Export(ctx, tx, ArchiveMeta{
			Timestamp:   now,
			CreatedBy:   operatorName,
			Description: description,
		})
		return nil
	}); txErr != nil {
		return nil, s.fail(ctx, record, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "db: export"))
	}

	var buf bytes.Buffer
	if encErr := Encode(&buf, archive); encErr != nil {
		return nil, s.fail(ctx, record, pkgerrors.Wrap(pkgerrors.CodeInternal, encErr, "encode archive"))
	}
	name := fmt.Sprintf("backup_%s_%s.json", now.Format(fileTimeLayout), record.ID.String()[:8])
	obj, putErr := s.store.Put(ctx, name, &buf)
	if putErr != nil {
		return nil, s.fail(ctx, record, pkgerrors.Wrap(pkgerrors.CodeDependency, putErr, "store archive"))
	}

	completedAt := s.now().UTC()
	record.FilePath = obj.Path
	record.FileSize = obj.Size
	record.EntityCounts = dbtypes.EntityCounts(summary.Counts)
	record.CompletedAt = &completedAt
	if transErr := transition(record, enums.RecordStatusCompleted); transErr != nil {
		return nil, transErr
	}
	if saveErr := s.repo.Save(ctx, record); saveErr != nil {
		_ = s.store.Remove(ctx, obj.Path)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, saveErr, "db: complete backup record")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"records": record.EntityCounts.Total(),
		"skipped": len(summary.Skipped),
	}), "backup completed")

	dto := toDTO(record)
	return &dto, nil
}

func (s *service) ListBackups(ctx context.Context, limit int) ([]BackupDTO, error) {
	rows, err := s.repo.List(ctx, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list backups")
	}
	out := make([]BackupDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) GetBackup(ctx context.Context, id uuid.UUID) (*BackupDTO, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(record)
	return &dto, nil
}

func (s *service) OpenBackup(ctx context.Context, id uuid.UUID) (*Download, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	body, err := s.openArchive(ctx, record)
	if err != nil {
		return nil, err
	}
	return &Download{
		FileName:    fmt.Sprintf("backup_%s.json", record.CreatedAt.UTC().Format(fileTimeLayout)),
		ContentType: archiveContentType,
		Size:        record.FileSize,
		Body:        body,
	}, nil
}

// DeleteBackup removes the archive file, then the record.
func (s *service) DeleteBackup(ctx context.Context, id uuid.UUID) error {
	record, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, record)
}

func (s *service) RestoreArchive(ctx context.Context, r io.Reader) (*RestoreResult, error) {
	archive, err := Decode(r)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return s.restore(ctx, archive)
}

func (s *service) RestoreBackup(ctx context.Context, id uuid.UUID) (*RestoreResult, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != enums.RecordStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only completed backups can be restored").
			WithDetails(map[string]any{"status": record.Status})
	}

	body, err := s.openArchive(ctx, record)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	archive, err := Decode(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return s.restore(s.logg.WithField(ctx, "backup_id", id.String()), archive)
}

// PurgeBefore deletes records (and files) created before cutoff.
func (s *service) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	rows, err := s.repo.ListCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list expired backups")
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

func (s *service) restore(ctx context.Context, archive *Archive) (_ *RestoreResult, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("restore", started, err) }()

	var result *RestoreResult
	if txErr := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var restoreErr error
		result, restoreErr = s.engine.Restore(ctx, tx, archive)
		return restoreErr
	}); txErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "restore aborted")
	}

	for _, entity := range result.Entities {
		s.metrics.AddRestoredRecords(entity.Entity, entity.Succeeded, entity.Failed)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}), "restore completed")
	return result, nil
}

func (s *service) remove(ctx context.Context, record *models.BackupRecord) error {
	if err := s.store.Remove(ctx, record.FilePath); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove archive file")
	}
	if err := s.repo.Delete(ctx, record.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete backup record")
	}
	return nil
}

func (s *service) openArchive(ctx context.Context, record *models.BackupRecord) (io.ReadCloser, error) {
	if record.FilePath == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "backup has no archive file")
	}
	body, err := s.store.Open(ctx, record.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "archive file not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open archive")
	}
	return body, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.BackupRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "backup not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load backup")
	}
	return record, nil
}

// fail marks the record failed and returns cause.
func (s *service) fail(ctx context.Context, record *models.BackupRecord, cause error) error {
	reason := cause.Error()
	now := s.now().UTC()
	record.FailureReason = &reason
	record.CompletedAt = &now
	if err := transition(record, enums.RecordStatusFailed); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, record); err != nil {
		s.logg.Error(ctx, "failed to mark backup as failed", err)
	}
	s.logg.Error(ctx, "backup failed", cause)
	return cause
}

func transition(record *models.BackupRecord, next enums.RecordStatus) error {
	if !record.Status.CanTransitionTo(next) {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "backup cannot move from %s to %s", record.Status, next)
	}
	record.Status = next
	return nil
}
