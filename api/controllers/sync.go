package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/soundforms/atelier-backend/api/responses"
	"github.com/soundforms/atelier-backend/api/validators"
	"github.com/soundforms/atelier-backend/internal/reconcile"
	pkgerrors "github.com/soundforms/atelier-backend/pkg/errors"
	"github.com/soundforms/atelier-backend/pkg/logger"
)

type reconcileBatchRequest struct {
	OrderNumbers []string `json:"orderNumbers" validate:"required,min=1,max=500,dive,required"`
}

// ReconcileOrder pulls one order's upstream state and settles the local copy
// against it.
func ReconcileOrder(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if orderNumber == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order number is required"))
			return
		}

		result, err := svc.ReconcileOrder(r.Context(), orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ReconcileBatch runs reconciliation over an explicit order list. Per-order
// failures come back alongside the successes instead of aborting the run.
func ReconcileBatch(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		var payload reconcileBatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.ReconcileBatch(r.Context(), payload.OrderNumbers)
		if batch == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "batch reconcile failed"))
			return
		}

		failures := make(map[string]string, len(batch.Errors))
		for number, orderErr := range batch.Errors {
			failures[number] = orderErr.Error()
		}
		responses.WriteSuccess(w, map[string]any{
			"results":  batch.Results,
			"failures": failures,
		})
	}
}
