package orders

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/soundforms/atelier-backend/api/responses"
	"github.com/soundforms/atelier-backend/api/validators"
	internalorders "github.com/soundforms/atelier-backend/internal/orders"
	"github.com/soundforms/atelier-backend/pkg/enums"
	pkgerrors "github.com/soundforms/atelier-backend/pkg/errors"
	"github.com/soundforms/atelier-backend/pkg/logger"
	"github.com/soundforms/atelier-backend/pkg/pagination"
	"github.com/soundforms/atelier-backend/pkg/types"
)

type createOrderRequest struct {
	OrderNumber     string              `json:"orderNumber" validate:"required"`
	CustomerName    string              `json:"customerName" validate:"required"`
	CustomerEmail   *string             `json:"customerEmail" validate:"omitempty,email"`
	ShippingAddress *string             `json:"shippingAddress"`
	Country         *string             `json:"country"`
	Notes           *string             `json:"notes"`
	Items           []createItemRequest `json:"items" validate:"required,min=1,dive"`
}

type createItemRequest struct {
	Type      string         `json:"type" validate:"required"`
	Tuning    string         `json:"tuning" validate:"required"`
	Frequency *string        `json:"frequency"`
	Color     *string        `json:"color"`
	Specs     map[string]any `json:"specs"`
}

type updateOrderRequest struct {
	CustomerName    *string `json:"customerName"`
	CustomerEmail   *string `json:"customerEmail" validate:"omitempty,email"`
	ShippingAddress *string `json:"shippingAddress"`
	Country         *string `json:"country"`
	Notes           *string `json:"notes"`
	TrackingNumber  *string `json:"trackingNumber"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// List returns a keyset-paginated page of orders, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters, err := buildListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOrders(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order with its items.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderNumber, err := parseOrderNumber(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetOrder(r.Context(), orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// Create records a manually entered order with at least one unit.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := buildCreateInput(payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, detail)
	}
}

// Update patches the mutable order header fields.
func Update(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderNumber, err := parseOrderNumber(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateOrder(r.Context(), orderNumber, internalorders.UpdateOrderInput{
			CustomerName:    payload.CustomerName,
			CustomerEmail:   payload.CustomerEmail,
			ShippingAddress: payload.ShippingAddress,
			Country:         payload.Country,
			Notes:           payload.Notes,
			TrackingNumber:  payload.TrackingNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Delete removes an order and its items.
func Delete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderNumber, err := parseOrderNumber(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteOrder(r.Context(), orderNumber); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"orderNumber": orderNumber, "status": "deleted"})
	}
}

// UpdateStatus moves the order through its lifecycle.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderNumber, err := parseOrderNumber(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		order, err := svc.UpdateOrderStatus(r.Context(), orderNumber, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func parseOrderNumber(r *http.Request) (string, error) {
	orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
	if orderNumber == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	return orderNumber, nil
}

func buildListFilters(r *http.Request) (internalorders.ListFilters, error) {
	filters := internalorders.ListFilters{
		Query: validators.SanitizeString(r.URL.Query().Get("q"), 120),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from timestamp")
		}
		filters.DateFrom = &from
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to timestamp")
		}
		filters.DateTo = &to
	}
	return filters, nil
}

func buildCreateInput(payload createOrderRequest) (internalorders.CreateOrderInput, error) {
	input := internalorders.CreateOrderInput{
		OrderNumber:     strings.TrimSpace(payload.OrderNumber),
		CustomerName:    strings.TrimSpace(payload.CustomerName),
		CustomerEmail:   payload.CustomerEmail,
		ShippingAddress: payload.ShippingAddress,
		Country:         payload.Country,
		Notes:           payload.Notes,
	}

	for i, item := range payload.Items {
		parsed := internalorders.CreateItemInput{
			Type:   enums.ParseInstrumentType(item.Type),
			Tuning: strings.TrimSpace(item.Tuning),
			Color:  item.Color,
		}
		if item.Frequency != nil {
			frequency, err := enums.ParseTuningFrequency(*item.Frequency)
			if err != nil {
				return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid frequency on item "+strings.TrimSpace(item.Tuning)).
					WithDetails(map[string]any{"index": i})
			}
			parsed.Frequency = &frequency
		}
		if len(item.Specs) > 0 {
			parsed.Specs = types.JSONMap(item.Specs)
		}
		input.Items = append(input.Items, parsed)
	}
	return input, nil
}
