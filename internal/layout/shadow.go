package layout

import (
	"fmt"

	"github.com/matthewbaird/formlayout/internal/types"
)

// Shadow is the working copy of full descriptors, keyed by identifier.
// It is mutated in place by property edits and never reordered: position
// lives only in the Tree. Every accepted Set is mirrored into a pending
// change set.
type Shadow struct {
	fields  map[string]types.Field
	changes types.ChangeSet
}

// NewShadow deep-copies the list into a new store.
func NewShadow(list types.FieldList) *Shadow {
	s := &Shadow{
		fields:  make(map[string]types.Field, len(list)),
		changes: make(types.ChangeSet),
	}
	for _, f := range list {
		s.fields[f.Name] = f.Clone()
	}
	return s
}

// Get returns a copy of the working descriptor.
func (s *Shadow) Get(id string) (types.Field, bool) {
	f, ok := s.fields[id]
	if !ok {
		return types.Field{}, false
	}
	return f.Clone(), true
}

// Has reports whether the id is known.
func (s *Shadow) Has(id string) bool {
	_, ok := s.fields[id]
	return ok
}

// Len returns the number of descriptors.
func (s *Shadow) Len() int { return len(s.fields) }

// Set mutates one property. A nil value removes the property.
func (s *Shadow) Set(id, prop string, value any) error {
	f, ok := s.fields[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, id)
	}
	switch prop {
	case types.PropFieldname, types.PropFieldtype, types.PropPosition, "":
		return fmt.Errorf("%w: %q", ErrProtectedProperty, prop)
	}
	if value == nil {
		delete(f.Props, prop)
	} else {
		f.Props[prop] = types.CloneValue(value)
	}
	s.fields[id] = f
	s.changes.Set(id, prop, types.CloneValue(value))
	return nil
}

// Changes returns a copy of the property edits recorded so far.
func (s *Shadow) Changes() types.ChangeSet {
	out := make(types.ChangeSet, len(s.changes))
	for id, props := range s.changes {
		for k, v := range props {
			out.Set(id, k, types.CloneValue(v))
		}
	}
	return out
}

// Dirty reports whether any property edit is pending.
func (s *Shadow) Dirty() bool { return len(s.changes) > 0 }

// ClearChanges forgets the recorded edits without touching the data.
func (s *Shadow) ClearChanges() {
	s.changes = make(types.ChangeSet)
}

// fieldState is one descriptor together with its pending edits.
type fieldState struct {
	field   types.Field
	changes map[string]any
	tracked bool
}

func (s *Shadow) save(id string) fieldState {
	st := fieldState{field: s.fields[id].Clone()}
	if props, ok := s.changes[id]; ok {
		st.tracked = true
		st.changes = make(map[string]any, len(props))
		for k, v := range props {
			st.changes[k] = types.CloneValue(v)
		}
	}
	return st
}

func (s *Shadow) restore(id string, st fieldState) {
	s.fields[id] = st.field
	if st.tracked {
		s.changes[id] = st.changes
	} else {
		delete(s.changes, id)
	}
}
