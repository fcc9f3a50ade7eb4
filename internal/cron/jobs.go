package cron

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/storedesk-backend/internal/backup"
	"github.com/angelmondragon/storedesk-backend/pkg/logger"
	"go.uber.org/multierr"
)

const (
	BackupJobName    = "scheduled-backup"
	RetentionJobName = "retention"
)

type backupCreator interface {
	CreateBackup(ctx context.Context, input backup.CreateBackupInput) (*backup.BackupDTO, error)
}

// BackupJob writes a full archive with no operator attached.
type BackupJob struct {
	backups  backupCreator
	schedule string
	logg     *logger.Logger
}

func NewBackupJob(backups backupCreator, schedule string, logg *logger.Logger) (*BackupJob, error) {
	if backups == nil {
		return nil, errors.New("backup service required")
	}
	if schedule == "" {
		return nil, errors.New("backup schedule required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &BackupJob{backups: backups, schedule: schedule, logg: logg}, nil
}

func (j *BackupJob) Name() string     { return BackupJobName }
func (j *BackupJob) Schedule() string { return j.schedule }

func (j *BackupJob) Run(ctx context.Context) error {
	created, err := j.backups.CreateBackup(ctx, backup.CreateBackupInput{})
	if err != nil {
		return err
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"backup_id": created.ID.String(),
		"records":   created.TotalRecords,
	}), "scheduled backup stored")
	return nil
}

type purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// RetentionParams configures RetentionJob. A non-positive day count keeps
// that artifact forever.
type RetentionParams struct {
	Backups    purger
	Reports    purger
	BackupDays int
	ReportDays int
	Schedule   string
	Logger     *logger.Logger
	Clock      func() time.Time
}

// RetentionJob deletes backup and report records (and files) past their
// retention window.
type RetentionJob struct {
	params RetentionParams
}

func NewRetentionJob(params RetentionParams) (*RetentionJob, error) {
	if params.Backups == nil || params.Reports == nil {
		return nil, errors.New("backup and report services required")
	}
	if params.Schedule == "" {
		return nil, errors.New("retention schedule required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	return &RetentionJob{params: params}, nil
}

func (j *RetentionJob) Name() string     { return RetentionJobName }
func (j *RetentionJob) Schedule() string { return j.params.Schedule }

func (j *RetentionJob) Run(ctx context.Context) error {
	now := j.params.Clock().UTC()
	var errs error
	purge := func(kind string, target purger, days int) {
		if days <= 0 {
			return
		}
		removed, err := target.PurgeBefore(ctx, now.AddDate(0, 0, -days))
		j.params.Logger.Info(j.params.Logger.WithFields(ctx, map[string]any{
			"artifact": kind,
			"removed":  removed,
			"days":     days,
		}), "retention sweep finished")
		errs = multierr.Append(errs, err)
	}
	purge("backups", j.params.Backups, j.params.BackupDays)
	purge("reports", j.params.Reports, j.params.ReportDays)
	return errs
}
