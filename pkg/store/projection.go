package store

import (
	"strings"

	"github.com/ohler55/ojg/jp"
)

// projectItems derives the read-only view of a collection: every item deep
// copied, and, when a property template is configured, narrowed to those
// properties. Dotted or bracketed property paths are resolved as JSONPath
// against the item; the selected value is exposed under the template string.
func projectItems(items []map[string]any, properties []string) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if len(properties) == 0 {
			out = append(out, CloneItem(item))
			continue
		}
		projected := make(map[string]any, len(properties))
		for _, prop := range properties {
			if value, ok := selectProperty(item, prop); ok {
				projected[prop] = value
			}
		}
		out = append(out, CloneItem(projected))
	}
	return out
}

// selectProperty extracts one property from an item. Plain names are direct
// map lookups; anything with path syntax goes through JSONPath.
func selectProperty(item map[string]any, prop string) (any, bool) {
	if !strings.ContainsAny(prop, ".[*$@") {
		value, ok := item[prop]
		return value, ok
	}

	expr, err := jp.ParseString(prop)
	if err != nil {
		return nil, false
	}
	results := expr.Get(item)
	if len(results) == 0 {
		return nil, false
	}
	if len(results) == 1 {
		return results[0], true
	}
	return results, true
}
