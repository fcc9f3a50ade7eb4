package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/logger"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	savepointName = "backup_entity"
	// maxErrorsPerEntity caps the messages kept per entity in a restore result.
	maxErrorsPerEntity = 20
)

// ArchiveMeta is the header written alongside exported data.
type ArchiveMeta struct {
	Timestamp   time.Time
	CreatedBy   string
	Description string
}

// SkippedEntity records an entity whose export failed.
type SkippedEntity struct {
	Entity string `json:"entity"`
	Error  string `json:"error"`
}

// ExportSummary lists per-entity counts and any skipped types.
type ExportSummary struct {
	Counts  map[string]int  `json:"counts"`
	Skipped []SkippedEntity `json:"skipped,omitempty"`
}

// EntityResult is the per-type outcome of a restore.
type EntityResult struct {
	Entity    string   `json:"entity"`
	Deleted   int64    `json:"deleted"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// RestoreResult aggregates every entity processed by a restore.
type RestoreResult struct {
	Entities  []EntityResult `json:"entities"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Deleted   int64          `json:"deleted"`
	Ignored   []string       `json:"ignored,omitempty"`
}

// Entity returns the result for name.
func (r *RestoreResult) Entity(name string) (EntityResult, bool) {
	for _, e := range r.Entities {
		if e.Entity == name {
			return e, true
		}
	}
	return EntityResult{}, false
}

// Engine runs exports and restores following a manifest.
type Engine struct {
	manifest Manifest
	logg     *logger.Logger
}

// NewEngine builds an engine; an empty manifest falls back to DefaultManifest.
func NewEngine(manifest Manifest, logg *logger.Logger) *Engine {
	if len(manifest) == 0 {
		manifest = DefaultManifest()
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Engine{manifest: manifest, logg: logg}
}

// Manifest exposes the configured entity order.
func (e *Engine) Manifest() Manifest {
	return e.manifest
}

// Export serializes every manifest entity read through tx. An entity that fails
// to export is logged and skipped; the rest of the archive is still produced.
func (e *Engine) Export(ctx context.Context, tx *gorm.DB, meta ArchiveMeta) (*Archive, ExportSummary) {
	archive := &Archive{
		Timestamp:   meta.Timestamp.UTC(),
		CreatedBy:   meta.CreatedBy,
		Description: meta.Description,
		Data:        make(Collections, 0, len(e.manifest)),
	}
	summary := ExportSummary{Counts: make(map[string]int, len(e.manifest))}

	for _, entity := range e.manifest {
		var records []json.RawMessage
		err := withSavepoint(tx, func() error {
			var exportErr error
			records, exportErr = entity.Export(ctx, tx)
			return exportErr
		})
		if err != nil {
			e.logg.Warn(e.logg.WithFields(ctx, map[string]any{
				"entity": entity.Name,
				"error":  err.Error(),
			}), "backup export skipped entity")
			summary.Skipped = append(summary.Skipped, SkippedEntity{Entity: entity.Name, Error: err.Error()})
			continue
		}
		archive.Data = append(archive.Data, Collection{Entity: entity.Name, Records: records})
		summary.Counts[entity.Name] = len(records)
	}
	return archive, summary
}

// Restore replays archive into tx in manifest order. For each entity present it
// deletes existing rows, then inserts each record under its own savepoint so a
// bad record is counted and skipped. A returned error means the caller must
// roll back the whole transaction.
func (e *Engine) Restore(ctx context.Context, tx *gorm.DB, archive *Archive) (*RestoreResult, error) {
	if archive == nil {
		return nil, fmt.Errorf("archive is required")
	}

	result := &RestoreResult{Entities: []EntityResult{}}
	for _, col := range archive.Data {
		if !e.manifest.Has(col.Entity) {
			result.Ignored = append(result.Ignored, col.Entity)
		}
	}

	for _, entity := range e.manifest {
		col, ok := archive.Data.Get(entity.Name)
		if !ok {
			continue
		}

		deleted, err := entity.Purge(ctx, tx)
		if err != nil {
			return nil, fmt.Errorf("purge %s: %w", entity.Name, err)
		}

		entityResult := EntityResult{Entity: entity.Name, Deleted: deleted}
		var recordErrs error
		for i, record := range col.Records {
			if err := withSavepoint(tx, func() error {
				return entity.Import(ctx, tx, record)
			}); err != nil {
				if isSavepointFailure(err) {
					return nil, err
				}
				entityResult.Failed++
				recordErrs = multierr.Append(recordErrs, fmt.Errorf("record %d: %w", i, err))
				continue
			}
			entityResult.Succeeded++
		}
		entityResult.Errors = capErrors(recordErrs)

		if entityResult.Failed > 0 {
			e.logg.Warn(e.logg.WithFields(ctx, map[string]any{
				"entity": entity.Name,
				"failed": entityResult.Failed,
			}), "restore skipped records")
		}

		result.Entities = append(result.Entities, entityResult)
		result.Succeeded += entityResult.Succeeded
		result.Failed += entityResult.Failed
		result.Deleted += deleted
	}
	return result, nil
}

type savepointError struct {
	op  string
	err error
}

func (e *savepointError) Error() string { return fmt.Sprintf("%s savepoint: %v", e.op, e.err) }
func (e *savepointError) Unwrap() error { return e.err }

func isSavepointFailure(err error) bool {
	var spErr *savepointError
	return errors.As(err, &spErr)
}

// withSavepoint runs fn between SAVEPOINT and RELEASE, rolling back to the
// savepoint when fn fails so the surrounding transaction stays usable.
func withSavepoint(tx *gorm.DB, fn func() error) error {
	if err := tx.SavePoint(savepointName).Error; err != nil {
		return &savepointError{op: "create", err: err}
	}
	if err := fn(); err != nil {
		if rbErr := tx.RollbackTo(savepointName).Error; rbErr != nil {
			return &savepointError{op: "rollback", err: rbErr}
		}
		return err
	}
	if err := tx.Exec("RELEASE SAVEPOINT " + savepointName).Error; err != nil {
		return &savepointError{op: "release", err: err}
	}
	return nil
}

func capErrors(err error) []string {
	errs := multierr.Errors(err)
	if len(errs) == 0 {
		return nil
	}
	limit := len(errs)
	if limit > maxErrorsPerEntity {
		limit = maxErrorsPerEntity
	}
	out := make([]string, 0, limit+1)
	for _, e := range errs[:limit] {
		out = append(out, e.Error())
	}
	if len(errs) > limit {
		out = append(out, fmt.Sprintf("%d more errors omitted", len(errs)-limit))
	}
	return out
}
