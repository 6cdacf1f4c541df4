package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/soundforms/atelier-backend/api/responses"
	"github.com/soundforms/atelier-backend/api/validators"
	internalorders "github.com/soundforms/atelier-backend/internal/orders"
	"github.com/soundforms/atelier-backend/pkg/enums"
	pkgerrors "github.com/soundforms/atelier-backend/pkg/errors"
	"github.com/soundforms/atelier-backend/pkg/logger"
	"github.com/soundforms/atelier-backend/pkg/types"
)

type updateItemStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type updateItemSettingsRequest struct {
	Type      *string        `json:"type"`
	Tuning    *string        `json:"tuning"`
	Frequency *string        `json:"frequency"`
	Color     *string        `json:"color"`
	Specs     map[string]any `json:"specs"`
}

type archiveItemRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// ListItems returns the flat unit list the production floor works from.
func ListItems(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		filters, err := buildItemFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListItems(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// ItemDetail returns one unit by id.
func ItemDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		itemID, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.GetItem(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// UpdateItemStatus moves a unit through the build lifecycle. Entering the
// building stage freezes the unit's identity in the serial registry.
func UpdateItemStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		itemID, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateItemStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseItemStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item status"))
			return
		}

		item, err := svc.UpdateItemStatus(r.Context(), itemID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// UpdateItemSettings changes the build settings of a unit.
func UpdateItemSettings(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		itemID, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateItemSettingsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.UpdateItemSettingsInput{
			Tuning: payload.Tuning,
			Color:  payload.Color,
		}
		if payload.Type != nil {
			instrumentType := enums.ParseInstrumentType(*payload.Type)
			input.Type = &instrumentType
		}
		if payload.Frequency != nil {
			frequency, err := enums.ParseTuningFrequency(*payload.Frequency)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid frequency"))
				return
			}
			input.Frequency = &frequency
		}
		if len(payload.Specs) > 0 {
			input.Specs = types.JSONMap(payload.Specs)
		}

		item, err := svc.UpdateItemSettings(r.Context(), itemID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// ArchiveItem removes a unit from the worksheet without deleting its history.
func ArchiveItem(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		itemID, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload archiveItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.ArchiveItem(r.Context(), itemID, validators.SanitizeString(payload.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func parseItemID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "itemId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	itemID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id")
	}
	return itemID, nil
}

func buildItemFilters(r *http.Request) (internalorders.ItemFilters, error) {
	filters := internalorders.ItemFilters{
		OrderNumber: strings.TrimSpace(r.URL.Query().Get("orderNumber")),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseItemStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		instrumentType := enums.ParseInstrumentType(raw)
		filters.Type = &instrumentType
	}
	includeArchived, err := validators.ParseQueryBool(r, "includeArchived")
	if err != nil {
		return filters, err
	}
	filters.IncludeArchived = includeArchived

	return filters, nil
}
