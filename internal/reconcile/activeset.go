package reconcile

import "github.com/soundforms/atelier-backend/internal/upstream"

// ActiveSet partitions an upstream order's line items into the units that
// still need to be built and the ones that are already out the door.
type ActiveSet struct {
	Active   []upstream.LineItem
	Inactive []upstream.LineItem

	// Partial flags orders where some units shipped and some did not. It is
	// raised only when at least one line item anywhere on the order carries a
	// non-empty fulfillment status; a zero fulfillable quantity alone is not
	// enough, because the platform zeroes quantities on canceled lines too.
	Partial bool
}

// ResolveActiveSet splits line items by remaining fulfillable quantity. One
// active line item maps to exactly one production unit regardless of the
// ordered quantity; quantity is carried on the item, not expanded into rows.
func ResolveActiveSet(items []upstream.LineItem) ActiveSet {
	var set ActiveSet
	anyStatus := false
	for _, item := range items {
		if item.FulfillmentStatus != "" {
			anyStatus = true
		}
		if item.FulfillableQuantity > 0 {
			set.Active = append(set.Active, item)
		} else {
			set.Inactive = append(set.Inactive, item)
		}
	}
	set.Partial = len(set.Active) > 0 && len(set.Inactive) > 0 && anyStatus
	return set
}
