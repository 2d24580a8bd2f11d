// Package doctype prepares field lists coming from outside the service:
// it strips bookkeeping keys from raw descriptors and validates submitted
// lists before they reach an editing session or the store.
package doctype

import (
	"github.com/matthewbaird/formlayout/internal/types"
)

// bookkeepingKeys are record metadata that play no part in a layout.
var bookkeepingKeys = map[string]bool{
	"name":        true,
	"owner":       true,
	"creation":    true,
	"modified":    true,
	"modified_by": true,
	"docstatus":   true,
	"parent":      true,
	"parentfield": true,
	"parenttype":  true,
	"idx":         true,
	"doctype":     true,
	"__islocal":   true,
	"__onload":    true,
	"__unsaved":   true,
}

// Normalize converts raw descriptor objects into a field list. Entries
// without a fieldname or fieldtype are skipped, bookkeeping keys and empty
// values are dropped, and every descriptor keeps a label key.
func Normalize(raw []map[string]any) types.FieldList {
	out := make(types.FieldList, 0, len(raw))
	for _, m := range raw {
		f := types.FromMap(m)
		if f.Name == "" || f.Type == "" {
			continue
		}
		for k, v := range f.Props {
			if bookkeepingKeys[k] || types.IsEmpty(v) {
				delete(f.Props, k)
			}
		}
		if _, ok := f.Props[types.PropLabel]; !ok {
			f.Props[types.PropLabel] = ""
		}
		out = append(out, f)
	}
	return out
}
