package square

import (
	"strings"
	"time"

	sq "github.com/square/square-go-sdk"
)

// OrderSearchParams narrows a Square order search. The feed polls by
// updated-at so reconciliation only touches orders that moved upstream.
type OrderSearchParams struct {
	LocationIDs  []string
	UpdatedAfter time.Time
	States       []sq.OrderState
	Limit        int
	Cursor       string
}

func (p OrderSearchParams) toSquareRequest() *sq.SearchOrdersRequest {
	req := &sq.SearchOrdersRequest{
		LocationIDs: p.LocationIDs,
	}
	if p.Limit > 0 {
		req.Limit = intPtr(p.Limit)
	}
	if trimmed := strings.TrimSpace(p.Cursor); trimmed != "" {
		req.Cursor = ptrString(trimmed)
	}

	filter := &sq.SearchOrdersFilter{}
	hasFilter := false
	if !p.UpdatedAfter.IsZero() {
		startAt := p.UpdatedAfter.UTC().Format(time.RFC3339)
		filter.DateTimeFilter = &sq.SearchOrdersDateTimeFilter{
			UpdatedAt: &sq.TimeRange{StartAt: ptrString(startAt)},
		}
		hasFilter = true
	}
	if len(p.States) > 0 {
		filter.StateFilter = &sq.SearchOrdersStateFilter{States: p.States}
		hasFilter = true
	}

	query := &sq.SearchOrdersQuery{
		Sort: &sq.SearchOrdersSort{
			SortField: sq.SearchOrdersSortFieldUpdatedAt,
			SortOrder: sortOrderPtr(sq.SortOrderAsc),
		},
	}
	if hasFilter {
		query.Filter = filter
	}
	req.Query = query
	return req
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func intPtr(value int) *int {
	return &value
}

func sortOrderPtr(order sq.SortOrder) *sq.SortOrder {
	return &order
}
