package controllers

import (
	"errors"
	"net/http"

	"github.com/angelmondragon/storedesk-backend/api/middleware"
	"github.com/angelmondragon/storedesk-backend/api/responses"
	"github.com/angelmondragon/storedesk-backend/api/validators"
	"github.com/angelmondragon/storedesk-backend/internal/backup"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/angelmondragon/storedesk-backend/pkg/logger"
	"github.com/angelmondragon/storedesk-backend/pkg/pagination"
)

const (
	archiveFormField = "archive"
	multipartMemory  = 8 << 20
)

func AdminListBackups(svc backup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "backup service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListBackups(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func AdminGetBackup(svc backup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "backup service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "backupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.GetBackup(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

// AdminCreateBackup exports every entity into a new archive. The body is optional.
func AdminCreateBackup(svc backup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "backup service unavailable"))
			return
		}

		var body backup.CreateBackupInput
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		body.OperatorID = middleware.ActorIDFromContext(r.Context())

		record, err := svc.CreateBackup(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

func AdminDeleteBackup(svc backup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "backup service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "backupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteBackup(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func AdminDownloadBackup(svc backup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "backup service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "backupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		download, err := svc.OpenBackup(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer download.Body.Close()

		if err := responses.WriteAttachment(w, download.FileName, download.ContentType, download.Size, false, download.Body); err != nil && logg != nil {
			logg.Error(r.Context(), "stream backup archive", err)
		}
	}
}

// AdminRestoreBackup replays a stored archive into the database.
func AdminRestoreBackup(svc backup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "backup service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "backupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RestoreBackup(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AdminRestoreUpload restores an archive uploaded as the multipart field "archive".
func AdminRestoreUpload(svc backup.Service, maxUploadMB int, logg *logger.Logger) http.HandlerFunc {
	maxBytes := int64(maxUploadMB) << 20
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "backup service unavailable"))
			return
		}

		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "archive exceeds upload limit").
					WithDetails(map[string]any{"max_mb": maxUploadMB}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, _, err := r.FormFile(archiveFormField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "archive file is required").
				WithDetails(map[string]any{"field": archiveFormField}))
			return
		}
		defer file.Close()

		result, err := svc.RestoreArchive(r.Context(), file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
