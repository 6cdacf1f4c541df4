package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/soundforms/atelier-backend/api/responses"
	"github.com/soundforms/atelier-backend/internal/orders"
	"github.com/soundforms/atelier-backend/internal/worksheet"
	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/enums"
	pkgerrors "github.com/soundforms/atelier-backend/pkg/errors"
	"github.com/soundforms/atelier-backend/pkg/logger"
)

// worksheetItemLister is the slice of the orders service the worksheet needs.
type worksheetItemLister interface {
	ListItems(ctx context.Context, filters orders.ItemFilters) ([]models.OrderItem, error)
}

// Worksheet returns the deduplicated production view: one row per serial,
// frozen registry data overriding item data.
func Worksheet(svc worksheetItemLister, normalizer *worksheet.Normalizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || normalizer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "worksheet unavailable"))
			return
		}

		filters := orders.ItemFilters{
			OrderNumber: strings.TrimSpace(r.URL.Query().Get("orderNumber")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseItemStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			instrumentType := enums.ParseInstrumentType(raw)
			filters.Type = &instrumentType
		}

		items, err := svc.ListItems(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := normalizer.NormalizeList(r.Context(), items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"rows": rows})
	}
}
