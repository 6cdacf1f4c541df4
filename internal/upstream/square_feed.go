package upstream

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"

	pkgerrors "github.com/soundforms/atelier-backend/pkg/errors"
	"github.com/soundforms/atelier-backend/pkg/logger"
	"github.com/soundforms/atelier-backend/pkg/serial"
	"github.com/soundforms/atelier-backend/pkg/square"
)

const searchPageSize = 100

type squareAPI interface {
	GetOrder(ctx context.Context, orderID string) (*sq.Order, error)
	SearchOrders(ctx context.Context, params square.OrderSearchParams) ([]*sq.Order, string, error)
}

// SquareFeed adapts the Square Orders API to the Feed interface.
type SquareFeed struct {
	api  squareAPI
	logg *logger.Logger
}

// NewSquareFeed wires the Square client as the upstream order feed.
func NewSquareFeed(client *square.Client, logg *logger.Logger) (*SquareFeed, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "square client is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	return &SquareFeed{api: client, logg: logg}, nil
}

// FetchOrder loads one snapshot by Square order ID. A missing order yields
// (nil, nil) so callers can treat it as an upstream deletion.
func (f *SquareFeed) FetchOrder(ctx context.Context, externalID string) (*OrderSnapshot, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external order id is required")
	}
	order, err := f.api.GetOrder(ctx, externalID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	if order == nil {
		return nil, nil
	}
	return mapOrder(order), nil
}

// FindByReference scans the order search for a matching reference number.
func (f *SquareFeed) FindByReference(ctx context.Context, reference string) (*OrderSnapshot, error) {
	want := serial.Normalize(reference)
	if want == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference is required")
	}

	cursor := ""
	for {
		orders, next, err := f.api.SearchOrders(ctx, square.OrderSearchParams{
			Limit:  searchPageSize,
			Cursor: cursor,
		})
		if err != nil {
			return nil, err
		}
		for _, order := range orders {
			if order == nil {
				continue
			}
			ref := stringValue(order.GetReferenceID())
			if ref != "" && serial.Normalize(ref) == want {
				return mapOrder(order), nil
			}
		}
		if next == "" {
			return nil, nil
		}
		cursor = next
	}
}

// ListUpdatedSince returns snapshots for every order Square reports as
// changed after the given time.
func (f *SquareFeed) ListUpdatedSince(ctx context.Context, since time.Time) ([]*OrderSnapshot, error) {
	var snapshots []*OrderSnapshot
	cursor := ""
	for {
		orders, next, err := f.api.SearchOrders(ctx, square.OrderSearchParams{
			UpdatedAfter: since,
			Limit:        searchPageSize,
			Cursor:       cursor,
		})
		if err != nil {
			return nil, err
		}
		for _, order := range orders {
			if order == nil || stringValue(order.GetReferenceID()) == "" {
				continue
			}
			snapshots = append(snapshots, mapOrder(order))
		}
		if next == "" {
			return snapshots, nil
		}
		cursor = next
	}
}

func mapOrder(order *sq.Order) *OrderSnapshot {
	snapshot := &OrderSnapshot{
		ExternalID: stringValue(order.GetID()),
		Reference:  stringValue(order.GetReferenceID()),
		Currency:   moneyCurrency(order.GetTotalMoney()),
		Total:      moneyAmount(order.GetTotalMoney()),
	}

	if state := order.GetState(); state != nil && *state == sq.OrderStateCanceled {
		snapshot.Canceled = true
	}
	if raw := stringValue(order.GetUpdatedAt()); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			snapshot.UpdatedAt = t
		}
	}

	// Completed quantity per line-item UID. Square scopes a fulfillment to
	// specific lines through its entries; a completed fulfillment without
	// entries applies to the whole order.
	completed := map[string]int{}
	allLinesCompleted := false
	for _, fulfillment := range order.GetFulfillments() {
		if fulfillment == nil {
			continue
		}
		if state := fulfillment.GetState(); state != nil && *state == sq.FulfillmentStateCompleted {
			entries := fulfillment.GetEntries()
			if len(entries) == 0 {
				allLinesCompleted = true
			}
			for _, entry := range entries {
				if entry == nil {
					continue
				}
				completed[entry.GetLineItemUID()] += parseQuantity(entry.GetQuantity())
			}
		}
		shipment := fulfillment.GetShipmentDetails()
		if shipment == nil {
			continue
		}
		if tracking := stringValue(shipment.GetTrackingNumber()); tracking != "" {
			snapshot.TrackingNumber = tracking
		}
		if recipient := shipment.GetRecipient(); recipient != nil {
			snapshot.CustomerName = stringValue(recipient.GetDisplayName())
			snapshot.CustomerEmail = stringValue(recipient.GetEmailAddress())
			if addr := recipient.GetAddress(); addr != nil {
				snapshot.ShippingAddress = formatAddress(addr)
				if country := addr.GetCountry(); country != nil {
					snapshot.Country = string(*country)
				}
			}
		}
	}

	for _, li := range order.GetLineItems() {
		if li == nil {
			continue
		}
		qty := parseQuantity(li.Quantity)
		item := LineItem{
			ID:           stringValue(li.GetUID()),
			Title:        stringValue(li.GetName()),
			VariantTitle: stringValue(li.GetVariationName()),
			Quantity:     qty,
			Properties:   metadataValues(li.GetMetadata()),
			UnitPrice:    moneyAmount(li.GetBasePriceMoney()),
			Currency:     moneyCurrency(li.GetBasePriceMoney()),
		}
		done := completed[item.ID]
		if allLinesCompleted {
			done = qty
		}
		switch {
		case snapshot.Canceled:
			item.FulfillableQuantity = 0
		case qty > 0 && done >= qty:
			item.FulfillableQuantity = 0
			item.FulfillmentStatus = FulfillmentFulfilled
		case done > 0:
			item.FulfillableQuantity = qty - done
			item.FulfillmentStatus = FulfillmentPartial
		default:
			item.FulfillableQuantity = qty
		}
		snapshot.LineItems = append(snapshot.LineItems, item)
	}

	return snapshot
}

func metadataValues(metadata map[string]*string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for key, value := range metadata {
		if value == nil {
			continue
		}
		out[key] = *value
	}
	return out
}

func parseQuantity(raw string) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	// Square reports quantity as a decimal string; whole units only here.
	if idx := strings.IndexByte(trimmed, '.'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	qty, err := strconv.Atoi(trimmed)
	if err != nil || qty < 0 {
		return 0
	}
	return qty
}

func moneyAmount(money *sq.Money) decimal.Decimal {
	if money == nil || money.Amount == nil {
		return decimal.Zero
	}
	return decimal.New(*money.Amount, -2)
}

func moneyCurrency(money *sq.Money) string {
	if money == nil || money.Currency == nil {
		return ""
	}
	return string(*money.Currency)
}

func formatAddress(addr *sq.Address) string {
	parts := []string{}
	for _, p := range []*string{addr.GetAddressLine1(), addr.GetAddressLine2(), addr.GetLocality(), addr.GetPostalCode()} {
		if v := stringValue(p); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
