package types

// JSONMap is the free-form specification map carried on orders and items.
// Values are strings or numbers as delivered by the upstream platform.
type JSONMap map[string]any

// Clone returns a shallow copy so callers can overlay values without
// mutating the stored map.
func (m JSONMap) Clone() JSONMap {
	if m == nil {
		return nil
	}
	out := make(JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// GetString returns the value at key when it is a string.
func (m JSONMap) GetString(key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
