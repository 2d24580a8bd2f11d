package layout

import (
	"sort"

	"github.com/matthewbaird/formlayout/internal/types"
)

// Flatten projects the tree back onto a flat list: tab marker, then for each
// section its marker, then for each column its marker (columns >= 1) and its
// fields. Each resolved descriptor is emitted once; dangling ids are skipped.
func Flatten(t *Tree, s *Shadow) types.FieldList {
	out := make(types.FieldList, 0, s.Len())
	seen := make(map[string]bool, s.Len())
	emit := func(id string) {
		if id == "" || seen[id] {
			return
		}
		if f, ok := s.Get(id); ok {
			seen[id] = true
			out = append(out, f)
		}
	}
	for _, tab := range t.Tabs {
		emit(tab.MarkerID)
		for _, sec := range tab.Sections {
			emit(sec.MarkerID)
			for i, col := range sec.Columns {
				if i > 0 {
					emit(col.MarkerID)
				}
				for _, id := range col.FieldIDs {
					emit(id)
				}
			}
		}
	}
	return out
}

// Diff compares a flattened list with the pristine list. Every descriptor
// whose index moved gets a position entry; every property edit whose value
// differs from the pristine value is kept. Edits that restore the pristine
// value are dropped.
func Diff(flat, pristine types.FieldList, edits types.ChangeSet) types.ChangeSet {
	cs := make(types.ChangeSet)
	orig := pristine.Index()
	for i, f := range flat {
		if p, ok := orig[f.Name]; !ok || p != i {
			cs.Set(f.Name, types.PropPosition, i)
		}
	}
	for id, props := range edits {
		var base types.Field
		known := false
		if p, ok := orig[id]; ok {
			base, known = pristine[p], true
		}
		for prop, v := range props {
			if known {
				old, _ := base.Get(prop)
				if sameValue(old, v) {
					continue
				}
			}
			cs.Set(id, prop, types.CloneValue(v))
		}
	}
	return cs
}

// sameValue treats absent and empty values as equal, matching the
// normalization applied on import.
func sameValue(a, b any) bool {
	if types.IsEmpty(a) && types.IsEmpty(b) {
		return true
	}
	return types.ValuesEqual(a, b)
}

// Apply returns a copy of list with the change set applied: property values
// are written (nil removes), then descriptors carrying a position are placed
// at that index and the rest fill the remaining slots in their original
// relative order. Out-of-range positions are clamped.
func Apply(list types.FieldList, cs types.ChangeSet) types.FieldList {
	out := list.Clone()
	for i := range out {
		for prop, v := range cs[out[i].Name] {
			switch {
			case prop == types.PropPosition, prop == types.PropFieldname, prop == types.PropFieldtype:
			case v == nil:
				delete(out[i].Props, prop)
			default:
				out[i].Props[prop] = types.CloneValue(v)
			}
		}
	}

	positions := cs.Positions()
	if len(positions) == 0 || len(out) == 0 {
		return out
	}

	n := len(out)
	var moved []int
	for i, f := range out {
		if _, ok := positions[f.Name]; ok {
			moved = append(moved, i)
		}
	}
	sort.SliceStable(moved, func(a, b int) bool {
		return positions[out[moved[a]].Name] < positions[out[moved[b]].Name]
	})

	slots := make([]int, n)
	for i := range slots {
		slots[i] = -1
	}
	placed := make([]bool, n)
	for _, idx := range moved {
		p := min(max(positions[out[idx].Name], 0), n-1)
		p = nextFree(slots, p)
		slots[p] = idx
		placed[idx] = true
	}
	next := 0
	for idx := range out {
		if placed[idx] {
			continue
		}
		next = nextFree(slots, next)
		slots[next] = idx
	}

	result := make(types.FieldList, n)
	for p, idx := range slots {
		result[p] = out[idx]
	}
	return result
}

// nextFree returns the first empty slot at or after p, wrapping around.
func nextFree(slots []int, p int) int {
	for i := 0; i < len(slots); i++ {
		q := (p + i) % len(slots)
		if slots[q] == -1 {
			return q
		}
	}
	return -1
}
