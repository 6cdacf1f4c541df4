package enums

import "fmt"

// ItemStatus mirrors the subset of order lifecycle states a single unit moves through.
type ItemStatus string

const (
	ItemStatusOrdered   ItemStatus = "ordered"
	ItemStatusBuilding  ItemStatus = "building"
	ItemStatusShipping  ItemStatus = "shipping"
	ItemStatusDelivered ItemStatus = "delivered"
	ItemStatusArchived  ItemStatus = "archived"
)

var validItemStatuses = []ItemStatus{
	ItemStatusOrdered,
	ItemStatusBuilding,
	ItemStatusShipping,
	ItemStatusDelivered,
	ItemStatusArchived,
}

// String implements fmt.Stringer.
func (s ItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ItemStatus.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseItemStatus converts raw input into an ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
