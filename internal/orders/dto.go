package orders

import (
	"time"

	"github.com/soundforms/atelier-backend/pkg/db/models"
	"github.com/soundforms/atelier-backend/pkg/enums"
	"github.com/soundforms/atelier-backend/pkg/types"
)

// ListFilters describe the inputs supported by the order list.
type ListFilters struct {
	Status   *enums.OrderStatus
	Query    string
	DateFrom *time.Time
	DateTo   *time.Time
}

// ItemFilters describe the inputs supported by the flat item list feeding the
// production worksheet.
type ItemFilters struct {
	Status          *enums.ItemStatus
	Type            *enums.InstrumentType
	IncludeArchived bool
	OrderNumber     string
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderDetail is one order with its items loaded.
type OrderDetail struct {
	Order models.Order       `json:"order"`
	Items []models.OrderItem `json:"items"`
}

// CreateOrderInput captures a manually entered order: workshop commissions
// that never pass through the upstream shop.
type CreateOrderInput struct {
	OrderNumber     string
	CustomerName    string
	CustomerEmail   *string
	ShippingAddress *string
	Country         *string
	Notes           *string
	Items           []CreateItemInput
}

// CreateItemInput is one unit on a manually entered order.
type CreateItemInput struct {
	Type      enums.InstrumentType
	Tuning    string
	Frequency *enums.TuningFrequency
	Color     *string
	Specs     types.JSONMap
}

// UpdateOrderInput carries the mutable order header fields. Nil means leave
// the field as is.
type UpdateOrderInput struct {
	CustomerName    *string
	CustomerEmail   *string
	ShippingAddress *string
	Country         *string
	Notes           *string
	TrackingNumber  *string
}

// UpdateItemSettingsInput carries the build settings a builder can change on
// a unit before it is frozen.
type UpdateItemSettingsInput struct {
	Type      *enums.InstrumentType
	Tuning    *string
	Frequency *enums.TuningFrequency
	Color     *string
	Specs     types.JSONMap
}
