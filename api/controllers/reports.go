package controllers

import (
	"net/http"

	"github.com/angelmondragon/storedesk-backend/api/middleware"
	"github.com/angelmondragon/storedesk-backend/api/responses"
	"github.com/angelmondragon/storedesk-backend/api/validators"
	"github.com/angelmondragon/storedesk-backend/internal/reports"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/angelmondragon/storedesk-backend/pkg/logger"
	"github.com/angelmondragon/storedesk-backend/pkg/pagination"
)

// AdminListReports accepts an optional type filter; limit defaults to the configured history size.
func AdminListReports(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListReports(r.Context(), r.URL.Query().Get("type"), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func AdminGetReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.GetReport(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}

// AdminGenerateReport renders a sales or stock report synchronously.
func AdminGenerateReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable"))
			return
		}

		var body reports.GenerateReportInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.CreatedByID = middleware.ActorIDFromContext(r.Context())

		report, err := svc.GenerateReport(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, report)
	}
}

func AdminDeleteReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteReport(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func AdminDownloadReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return serveReport(svc, logg, false)
}

// AdminPreviewReport serves PDF reports inline. Spreadsheets are download only.
func AdminPreviewReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return serveReport(svc, logg, true)
}

func serveReport(svc reports.Service, logg *logger.Logger, preview bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var download *reports.Download
		if preview {
			download, err = svc.PreviewReport(r.Context(), id)
		} else {
			download, err = svc.OpenReport(r.Context(), id)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer download.Body.Close()

		if err := responses.WriteAttachment(w, download.FileName, download.ContentType, download.Size, download.Inline, download.Body); err != nil && logg != nil {
			logg.Error(r.Context(), "stream report", err)
		}
	}
}
