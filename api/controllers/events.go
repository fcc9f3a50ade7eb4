package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/storedesk-backend/api/responses"
	"github.com/angelmondragon/storedesk-backend/api/validators"
	"github.com/angelmondragon/storedesk-backend/internal/calendar"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/angelmondragon/storedesk-backend/pkg/logger"
)

// ListEvents serves the calendar feed (scheduled=true), the template palette
// (templates=true) or a from/to window.
func ListEvents(svc calendar.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "calendar service unavailable"))
			return
		}

		var input calendar.ListEventsInput
		scheduled, err := validators.ParseQueryBool(r, "scheduled")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Scheduled = scheduled != nil && *scheduled
		if input.Templates, err = validators.ParseQueryBool(r, "templates"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.From, err = validators.ParseQueryTime(r, "from", loc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.To, err = validators.ParseQueryTime(r, "to", loc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListEvents(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func GetEvent(svc calendar.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "calendar service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := svc.GetEvent(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, event)
	}
}

func CreateEvent(svc calendar.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "calendar service unavailable"))
			return
		}

		var body calendar.EventInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := svc.CreateEvent(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, event)
	}
}

func UpdateEvent(svc calendar.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "calendar service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body calendar.EventInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := svc.UpdateEvent(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, event)
	}
}

func DeleteEvent(svc calendar.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "calendar service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteEvent(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
