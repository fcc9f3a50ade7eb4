package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storedesk-backend/api/middleware"
	"github.com/angelmondragon/storedesk-backend/api/responses"
	"github.com/angelmondragon/storedesk-backend/api/validators"
	"github.com/angelmondragon/storedesk-backend/internal/sales"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/angelmondragon/storedesk-backend/pkg/logger"
	"github.com/angelmondragon/storedesk-backend/pkg/pagination"
)

// ListSales filters by customer_id, payment_method and a from/to window. A plain
// date in "to" includes that whole day in loc.
func ListSales(svc sales.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		input, err := parseListSalesInput(r, loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListSales(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func parseListSalesInput(r *http.Request, loc *time.Location) (sales.ListSalesInput, error) {
	var input sales.ListSalesInput

	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return input, err
	}
	input.Pagination = pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}

	if input.CustomerID, err = validators.ParseQueryUUID(r, "customer_id"); err != nil {
		return input, err
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("payment_method")); raw != "" {
		method, err := enums.ParsePaymentMethod(raw)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
		}
		input.PaymentMethod = &method
	}

	if input.From, err = validators.ParseQueryTime(r, "from", loc); err != nil {
		return input, err
	}
	if input.To, err = validators.ParseQueryTime(r, "to", loc); err != nil {
		return input, err
	}
	if input.To != nil && len(strings.TrimSpace(r.URL.Query().Get("to"))) == len("2006-01-02") {
		next := input.To.AddDate(0, 0, 1)
		input.To = &next
	}
	if input.From != nil && input.To != nil && !input.From.Before(*input.To) {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}
	return input, nil
}

func GetSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.GetSale(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sale)
	}
}

// CreateSale records a sale and decrements stock atomically.
func CreateSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		var body sales.CreateSaleInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.OperatorID = middleware.ActorIDFromContext(r.Context())

		sale, err := svc.CreateSale(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

func UpdateSaleDetails(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body sales.UpdateSaleDetailsInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.UpdateSaleDetails(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sale)
	}
}

// ReplaceSaleItems swaps the full line list, reconciling stock for the difference.
func ReplaceSaleItems(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body sales.ReplaceLineItemsInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.OperatorID = middleware.ActorIDFromContext(r.Context())

		sale, err := svc.ReplaceLineItems(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sale)
	}
}

func DeleteSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteSale(r.Context(), id, middleware.ActorIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
