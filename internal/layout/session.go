package layout

import (
	"context"
	"fmt"
	"sort"

	"github.com/matthewbaird/formlayout/internal/types"
)

// State is the lifecycle state of an editing session.
type State int

const (
	StateEmpty      State = iota // nothing loaded
	StateLoaded                  // pristine, no pending changes
	StateDirty                   // property and/or order changes pending
	StateReconciled              // change set computed, ready to persist
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateDirty:
		return "dirty"
	case StateReconciled:
		return "reconciled"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateEmpty; st <= StateReconciled; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// Loader fetches a field list for a doctype.
type Loader interface {
	Load(ctx context.Context, doctype string) (types.FieldList, int, error)
}

// Persister durably applies a change set to a doctype.
type Persister interface {
	Persist(ctx context.Context, doctype string, cs types.ChangeSet) error
}

// Session owns one editing session: the pristine list, the shadow store
// and the order tree. It is not safe for concurrent use; callers serialize
// access.
type Session struct {
	doctype  string
	total    int
	pristine types.FieldList
	shadow   *Shadow
	tree     *Tree
	state    State
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{state: StateEmpty}
}

// Load replaces the session's document. A list that cannot be parsed into
// any structure aborts the load and leaves the session untouched.
func (s *Session) Load(doctype string, list types.FieldList) error {
	if err := CheckStructure(list); err != nil {
		return err
	}
	s.doctype = doctype
	s.total = len(list)
	s.pristine = list.Clone()
	s.reset()
	return nil
}

// LoadFrom fetches the doctype through the loader and loads it.
func (s *Session) LoadFrom(ctx context.Context, l Loader, doctype string) error {
	list, total, err := l.Load(ctx, doctype)
	if err != nil {
		return fmt.Errorf("loading %s: %w", doctype, err)
	}
	if err := s.Load(doctype, list); err != nil {
		return err
	}
	s.total = total
	return nil
}

// CheckStructure reports the defects that make a list unusable: an empty
// list, descriptors without an identifier, and duplicate identifiers.
func CheckStructure(list types.FieldList) error {
	var problems []string
	if len(list) == 0 {
		problems = append(problems, "field list is empty")
	}
	seen := make(map[string]int, len(list))
	for i, f := range list {
		if f.Name == "" {
			problems = append(problems, fmt.Sprintf("field %d has no fieldname", i))
			continue
		}
		if prev, dup := seen[f.Name]; dup {
			problems = append(problems, fmt.Sprintf("field %d (%s) duplicates field %d", i, f.Name, prev))
			continue
		}
		seen[f.Name] = i
	}
	if len(problems) > 0 {
		return &LoadError{Problems: problems}
	}
	return nil
}

func (s *Session) reset() {
	s.shadow = NewShadow(s.pristine)
	s.tree = Parse(s.pristine)
	s.state = StateLoaded
}

func (s *Session) loaded() error {
	if s.state == StateEmpty {
		return ErrNotLoaded
	}
	return nil
}

func (s *Session) touch() { s.state = StateDirty }

// Doctype returns the loaded doctype name.
func (s *Session) Doctype() string { return s.doctype }

// Total returns the field count reported at load.
func (s *Session) Total() int { return s.total }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Tree returns a copy of the order tree.
func (s *Session) Tree() *Tree {
	if s.tree == nil {
		return &Tree{}
	}
	return s.tree.Clone()
}

// CurrentTab returns the index of the selected tab.
func (s *Session) CurrentTab() int {
	if s.tree == nil {
		return 0
	}
	return s.tree.CurrentTab
}

// Pristine returns a copy of the diff baseline.
func (s *Session) Pristine() types.FieldList { return s.pristine.Clone() }

// Field returns the working copy of a descriptor.
func (s *Session) Field(id string) (types.Field, bool) {
	if s.shadow == nil {
		return types.Field{}, false
	}
	return s.shadow.Get(id)
}

// SelectTab sets the current tab. It does not dirty the session.
func (s *Session) SelectTab(i int) error {
	if err := s.loaded(); err != nil {
		return err
	}
	if _, err := s.tree.tab(i); err != nil {
		return err
	}
	s.tree.CurrentTab = i
	return nil
}

// MoveSection moves a section within a tab.
func (s *Session) MoveSection(tab, from, to int) error {
	if err := s.loaded(); err != nil {
		return err
	}
	if err := s.tree.moveSection(tab, from, to); err != nil {
		return err
	}
	s.touch()
	return nil
}

// MoveColumn moves a column within a section and reassigns Column Breaks
// so that only columns 1..N carry one.
func (s *Session) MoveColumn(ref SectionRef, from, to int) error {
	if err := s.loaded(); err != nil {
		return err
	}
	if err := s.tree.moveColumn(ref, from, to); err != nil {
		return err
	}
	s.touch()
	return nil
}

// MoveFieldWithinColumn reorders a field inside its column.
func (s *Session) MoveFieldWithinColumn(ref ColumnRef, from, to int) error {
	if err := s.loaded(); err != nil {
		return err
	}
	if err := s.tree.moveFieldWithinColumn(ref, from, to); err != nil {
		return err
	}
	s.touch()
	return nil
}

// MoveFieldAcrossColumns moves a field to another column.
func (s *Session) MoveFieldAcrossColumns(src ColumnRef, fromIndex int, dst ColumnRef, toIndex int) error {
	if err := s.loaded(); err != nil {
		return err
	}
	if err := s.tree.moveFieldAcrossColumns(src, fromIndex, dst, toIndex); err != nil {
		return err
	}
	s.touch()
	return nil
}

// MoveField moves a data field, identified by name, to index within dst.
func (s *Session) MoveField(id string, dst ColumnRef, index int) error {
	if err := s.loaded(); err != nil {
		return err
	}
	src, from, ok := s.tree.Locate(id)
	if !ok {
		return fmt.Errorf("%w: %q is not a positioned data field", ErrUnknownField, id)
	}
	if src == dst {
		return s.MoveFieldWithinColumn(src, from, index)
	}
	return s.MoveFieldAcrossColumns(src, from, dst, index)
}

// UpdateFieldProperty edits one property of a descriptor. Width edits on
// a Column Break are validated against the grid budget first.
func (s *Session) UpdateFieldProperty(id, prop string, value any) error {
	if err := s.loaded(); err != nil {
		return err
	}
	f, ok := s.shadow.Get(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, id)
	}
	if f.Type == types.ColumnBreak && prop == types.PropWidth {
		w, err := ParseWidth(value)
		if err != nil {
			return err
		}
		if err := s.checkMarkerWidth(id, w); err != nil {
			return err
		}
		if value != nil {
			value = w
		}
	}
	if err := s.shadow.Set(id, prop, value); err != nil {
		return err
	}
	s.touch()
	return nil
}

// UpdateFieldProperties applies several edits to one descriptor in
// property-name order. Either every edit is accepted or the descriptor and
// its pending edits are left as they were.
func (s *Session) UpdateFieldProperties(id string, props map[string]any) error {
	if err := s.loaded(); err != nil {
		return err
	}
	if !s.shadow.Has(id) {
		return fmt.Errorf("%w: %q", ErrUnknownField, id)
	}
	names := make([]string, 0, len(props))
	for p := range props {
		names = append(names, p)
	}
	sort.Strings(names)

	saved, state := s.shadow.save(id), s.state
	for _, p := range names {
		if err := s.UpdateFieldProperty(id, p, props[p]); err != nil {
			s.shadow.restore(id, saved)
			s.state = state
			return fmt.Errorf("%s.%s: %w", id, p, err)
		}
	}
	return nil
}

func (s *Session) checkMarkerWidth(markerID string, w int) error {
	ref, ok := s.tree.SectionOfMarker(markerID)
	if !ok {
		return nil
	}
	sec, err := s.tree.section(ref)
	if err != nil {
		return err
	}
	for i, col := range sec.Columns {
		if col.MarkerID == markerID {
			return checkWidthEdit(sec, s.shadow, i, w)
		}
	}
	return nil
}

// SetColumnWidth sets the explicit width of column 1..N of a section.
func (s *Session) SetColumnWidth(ref SectionRef, column, width int) error {
	if err := s.loaded(); err != nil {
		return err
	}
	sec, err := s.tree.section(ref)
	if err != nil {
		return err
	}
	if column == 0 {
		return indexErrorf("column 0 always auto-sizes")
	}
	if column < 0 || column >= len(sec.Columns) {
		return indexErrorf("column %d out of range [0, %d)", column, len(sec.Columns))
	}
	return s.UpdateFieldProperty(sec.Columns[column].MarkerID, types.PropWidth, width)
}

// Structure builds the render tree for the current state.
func (s *Session) Structure() *RenderTree {
	if s.state == StateEmpty {
		return &RenderTree{Tabs: []RenderTab{}}
	}
	return Build(s.tree, s.shadow)
}

// Flatten reconciles the order tree into a flat list.
func (s *Session) Flatten() types.FieldList {
	if s.state == StateEmpty {
		return nil
	}
	return Flatten(s.tree, s.shadow)
}

// ChangeSet computes the differences against the pristine list. A dirty
// session becomes reconciled.
func (s *Session) ChangeSet() (types.ChangeSet, error) {
	if err := s.loaded(); err != nil {
		return nil, err
	}
	cs := Diff(Flatten(s.tree, s.shadow), s.pristine, s.shadow.Changes())
	if s.state == StateDirty {
		s.state = StateReconciled
	}
	return cs, nil
}

// Commit persists the change set. On success the committed list becomes
// the new pristine baseline and the session returns to loaded. On failure
// the session keeps its pending changes.
func (s *Session) Commit(ctx context.Context, p Persister) (types.ChangeSet, error) {
	if err := s.loaded(); err != nil {
		return nil, err
	}
	flat := Flatten(s.tree, s.shadow)
	cs := Diff(flat, s.pristine, s.shadow.Changes())
	if len(cs) > 0 {
		s.state = StateReconciled
		if err := p.Persist(ctx, s.doctype, cs); err != nil {
			return nil, fmt.Errorf("persisting %s: %w", s.doctype, err)
		}
	}
	s.pristine = flat
	s.total = len(flat)
	s.shadow = NewShadow(flat)
	s.state = StateLoaded
	return cs, nil
}

// Revert discards every pending change and rebuilds the shadow store and
// the order tree from the pristine list.
func (s *Session) Revert() error {
	if err := s.loaded(); err != nil {
		return err
	}
	s.reset()
	return nil
}
