// Package tuning canonicalizes tuning designations. The workshop writes minor
// keys with an "m" suffix ("Dm4"); the registry stores the un-suffixed form
// ("D4") so lookups stay stable, and the presentation layer re-adds the suffix.
package tuning

import (
	"regexp"
	"strings"
)

var (
	minorKeyPattern = regexp.MustCompile(`^([A-G][#b]?)m(\d)$`)
	plainKeyPattern = regexp.MustCompile(`^([A-G][#b]?)(\d)$`)
)

// Canonical returns the storage form of a tuning plus whether the input carried
// the minor-key suffix. Unrecognized inputs pass through trimmed and unchanged.
func Canonical(raw string) (string, bool) {
	t := strings.TrimSpace(raw)
	if m := minorKeyPattern.FindStringSubmatch(t); m != nil {
		return m[1] + m[2], true
	}
	return t, false
}

// Display re-applies the minor suffix to a canonical tuning.
func Display(canonical string, minor bool) string {
	if !minor {
		return canonical
	}
	if m := plainKeyPattern.FindStringSubmatch(canonical); m != nil {
		return m[1] + "m" + m[2]
	}
	return canonical
}
