// Package serial implements the workshop serial-number conventions: positional
// derivation at item creation and prefix-stripped normalization for registry lookups.
package serial

import (
	"fmt"
	"strconv"
	"strings"
)

// OrderPrefix is the workshop order-number prefix ("SW-2001").
const OrderPrefix = "SW-"

// Derive returns the serial number for the item at the given 0-based position
// among the active items of an order: {orderNumber}-{position+1}.
func Derive(orderNumber string, position int) string {
	return fmt.Sprintf("%s-%d", strings.TrimSpace(orderNumber), position+1)
}

// Normalize strips the order prefix so registry keys are stable regardless of
// whether callers pass "SW-1542-2" or "1542-2".
func Normalize(serial string) string {
	s := strings.TrimSpace(serial)
	if rest, ok := strings.CutPrefix(strings.ToUpper(s), OrderPrefix); ok {
		return rest
	}
	return s
}

// Display re-adds the order prefix for presentation.
func Display(serial string) string {
	s := strings.TrimSpace(serial)
	if s == "" {
		return s
	}
	if strings.HasPrefix(strings.ToUpper(s), OrderPrefix) {
		return s
	}
	return OrderPrefix + s
}

// OrderRef extracts the numeric part of an order number ("SW-2001" -> 2001).
func OrderRef(orderNumber string) (int64, error) {
	s := Normalize(orderNumber)
	ref, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("order number %q has no numeric reference", orderNumber)
	}
	return ref, nil
}
