package enums

import "strings"

// InstrumentType is the canonical model designation stamped on a unit.
type InstrumentType string

const (
	InstrumentTypeInnato  InstrumentType = "INNATO"
	InstrumentTypeNatey   InstrumentType = "NATEY"
	InstrumentTypeDouble  InstrumentType = "DOUBLE"
	InstrumentTypeDrone   InstrumentType = "DRONE"
	InstrumentTypeCards   InstrumentType = "CARDS"
	InstrumentTypeUnknown InstrumentType = "UNKNOWN"
)

var validInstrumentTypes = []InstrumentType{
	InstrumentTypeInnato,
	InstrumentTypeNatey,
	InstrumentTypeDouble,
	InstrumentTypeDrone,
	InstrumentTypeCards,
	InstrumentTypeUnknown,
}

// String implements fmt.Stringer.
func (t InstrumentType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known InstrumentType.
func (t InstrumentType) IsValid() bool {
	for _, candidate := range validInstrumentTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseInstrumentType maps a free-text model name from the upstream catalog onto the
// closed set. Matching is case-insensitive substring matching because the upstream
// product titles carry marketing copy around the model name. Anything that does not
// match falls back to UNKNOWN; callers must treat UNKNOWN as a valid, storable value.
func ParseInstrumentType(raw string) InstrumentType {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return InstrumentTypeUnknown
	}
	switch {
	case strings.Contains(name, "innato"):
		return InstrumentTypeInnato
	case strings.Contains(name, "natey"):
		return InstrumentTypeNatey
	case strings.Contains(name, "double"):
		return InstrumentTypeDouble
	case strings.Contains(name, "drone"):
		return InstrumentTypeDrone
	case strings.Contains(name, "card"):
		return InstrumentTypeCards
	default:
		return InstrumentTypeUnknown
	}
}
