package upstream

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Normalized fulfillment statuses. Upstream platforms report many variants;
// the feed collapses them to fulfilled (every unit shipped), partial (some
// units shipped) or empty (nothing shipped yet).
const (
	FulfillmentFulfilled = "fulfilled"
	FulfillmentPartial   = "partial"
)

// LineItem is one upstream order line as the feed last saw it.
type LineItem struct {
	ID                  string
	Title               string
	VariantTitle        string
	Quantity            int
	FulfillableQuantity int
	FulfillmentStatus   string
	Properties          map[string]string
	UnitPrice           decimal.Decimal
	Currency            string
}

// OrderSnapshot is the feed's view of one upstream order. Reference is the
// order number as the platform reports it ("SW-1542" or bare "1542").
type OrderSnapshot struct {
	ExternalID      string
	Reference       string
	CustomerName    string
	CustomerEmail   string
	ShippingAddress string
	Country         string
	TrackingNumber  string
	Canceled        bool
	Total           decimal.Decimal
	Currency        string
	LineItems       []LineItem
	UpdatedAt       time.Time
}

// Feed pulls order state from the upstream commerce platform. Implementations
// return (nil, nil) when the order does not exist upstream; reconciliation
// treats that as a deletion signal, not an error.
type Feed interface {
	// FetchOrder loads a snapshot by the platform's own order ID.
	FetchOrder(ctx context.Context, externalID string) (*OrderSnapshot, error)
	// FindByReference locates a snapshot by order number.
	FindByReference(ctx context.Context, reference string) (*OrderSnapshot, error)
	// ListUpdatedSince returns snapshots for orders that changed upstream.
	ListUpdatedSince(ctx context.Context, since time.Time) ([]*OrderSnapshot, error)
}
