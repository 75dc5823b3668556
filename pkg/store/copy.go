package store

import "encoding/json"

// CloneItem copies a JSON-compatible map through a serialization round trip.
// Lossy for values JSON cannot represent (functions, non-finite numbers);
// falls back to a shallow copy when marshalling fails.
func CloneItem(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	b, err := json.Marshal(src)
	if err != nil {
		return shallowCopy(src)
	}
	var dst map[string]any
	if err := json.Unmarshal(b, &dst); err != nil {
		return shallowCopy(src)
	}
	return dst
}

// CloneItems copies an item list element by element.
func CloneItems(src []map[string]any) []map[string]any {
	if src == nil {
		return nil
	}
	dst := make([]map[string]any, len(src))
	for i, item := range src {
		dst[i] = CloneItem(item)
	}
	return dst
}

func shallowCopy(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
