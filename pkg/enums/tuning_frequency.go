package enums

import (
	"fmt"
	"strings"
)

// TuningFrequency is the reference pitch a unit is tuned against, in hertz.
type TuningFrequency string

const (
	TuningFrequency432 TuningFrequency = "432"
	TuningFrequency440 TuningFrequency = "440"
)

var validTuningFrequencies = []TuningFrequency{
	TuningFrequency432,
	TuningFrequency440,
}

// String implements fmt.Stringer.
func (f TuningFrequency) String() string {
	return string(f)
}

// IsValid reports whether the value is a known TuningFrequency.
func (f TuningFrequency) IsValid() bool {
	for _, candidate := range validTuningFrequencies {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseTuningFrequency converts raw input into a TuningFrequency. Inputs like
// "432 Hz" or "440hz" are accepted; everything outside the closed set is rejected.
func ParseTuningFrequency(value string) (TuningFrequency, error) {
	normalized := strings.TrimSpace(strings.ToLower(value))
	normalized = strings.TrimSuffix(normalized, "hz")
	normalized = strings.TrimSpace(normalized)
	for _, candidate := range validTuningFrequencies {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tuning frequency %q", value)
}
