package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/soundforms/atelier-backend/api/responses"
	"github.com/soundforms/atelier-backend/api/validators"
	"github.com/soundforms/atelier-backend/internal/registry"
	"github.com/soundforms/atelier-backend/pkg/enums"
	pkgerrors "github.com/soundforms/atelier-backend/pkg/errors"
	"github.com/soundforms/atelier-backend/pkg/logger"
	"github.com/soundforms/atelier-backend/pkg/pagination"
)

type freezeSerialRequest struct {
	Serial    string  `json:"serial" validate:"required"`
	Type      string  `json:"type" validate:"required"`
	Tuning    string  `json:"tuning" validate:"required"`
	Frequency *string `json:"frequency"`
	Color     *string `json:"color"`
	Note      *string `json:"note"`
}

// FreezeSerial pins instrument data against a serial number. The first write
// wins; repeats return the existing record with created=false.
func FreezeSerial(reg registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		var payload freezeSerialRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := registry.FreezeInput{
			Serial: payload.Serial,
			Type:   enums.ParseInstrumentType(payload.Type),
			Tuning: payload.Tuning,
			Color:  payload.Color,
			Note:   payload.Note,
		}
		if payload.Frequency != nil {
			frequency, err := enums.ParseTuningFrequency(*payload.Frequency)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid frequency"))
				return
			}
			input.Frequency = &frequency
		}

		record, created, err := reg.Freeze(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"record":  record,
			"created": created,
		})
	}
}

// ResolveSerial returns the frozen record for a serial number.
func ResolveSerial(reg registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		serialNumber := strings.TrimSpace(chi.URLParam(r, "serial"))
		record, err := reg.Resolve(r.Context(), serialNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if record == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "serial not frozen"))
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// ListSerials pages the frozen serial records.
func ListSerials(reg registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := reg.List(r.Context(), registry.ListParams{
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
			Type:   strings.TrimSpace(r.URL.Query().Get("type")),
			Search: validators.SanitizeString(r.URL.Query().Get("q"), 120),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// LineItemBinding returns the serial a platform line item is pinned to.
func LineItemBinding(reg registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		lineItemID := strings.TrimSpace(chi.URLParam(r, "lineItemId"))
		binding, err := reg.BindingFor(r.Context(), lineItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if binding == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "line item not bound"))
			return
		}
		responses.WriteSuccess(w, binding)
	}
}
