package layout

import "fmt"

// checkMove validates a splice within a slice of length n.
func checkMove(what string, from, to, n int) error {
	if from < 0 || from >= n || to < 0 || to >= n {
		return indexErrorf("%s move %d -> %d out of range [0, %d)", what, from, to, n)
	}
	if from == to {
		return indexErrorf("%s move %d -> %d is a no-op", what, from, to)
	}
	return nil
}

// splice removes the element at from and reinserts it at to.
func splice[T any](s []T, from, to int) []T {
	v := s[from]
	s = append(s[:from], s[from+1:]...)
	s = append(s[:to], append([]T{v}, s[to:]...)...)
	return s
}

// moveSection reorders sections within one tab. Section Breaks are implied
// by array membership, so this is a pure splice. A leading section without
// its own Section Break cannot be displaced: flattened, its fields would
// merge into whichever section precedes them.
func (t *Tree) moveSection(tabIndex, from, to int) error {
	tab, err := t.tab(tabIndex)
	if err != nil {
		return err
	}
	if err := checkMove("section", from, to, len(tab.Sections)); err != nil {
		return err
	}
	if head := tab.Sections[0]; head.MarkerID == "" && (from == 0 || to == 0) {
		return fmt.Errorf("%w (tab %d)", ErrImplicitSection, tabIndex)
	}
	tab.Sections = splice(tab.Sections, from, to)
	return nil
}

// moveFieldWithinColumn reorders the field ids of one column.
func (t *Tree) moveFieldWithinColumn(ref ColumnRef, from, to int) error {
	col, err := t.column(ref)
	if err != nil {
		return err
	}
	if err := checkMove("field", from, to, len(col.FieldIDs)); err != nil {
		return err
	}
	col.FieldIDs = splice(col.FieldIDs, from, to)
	return nil
}

// moveFieldAcrossColumns removes a field id from one column and inserts it
// into another, possibly in a different section or tab. toIndex may equal
// the length of the target column to append.
func (t *Tree) moveFieldAcrossColumns(src ColumnRef, fromIndex int, dst ColumnRef, toIndex int) error {
	if src == dst {
		return t.moveFieldWithinColumn(src, fromIndex, toIndex)
	}
	from, err := t.column(src)
	if err != nil {
		return err
	}
	to, err := t.column(dst)
	if err != nil {
		return err
	}
	if fromIndex < 0 || fromIndex >= len(from.FieldIDs) {
		return indexErrorf("field %d out of range [0, %d)", fromIndex, len(from.FieldIDs))
	}
	if toIndex < 0 || toIndex > len(to.FieldIDs) {
		return indexErrorf("target index %d out of range [0, %d]", toIndex, len(to.FieldIDs))
	}
	id := from.FieldIDs[fromIndex]
	from.FieldIDs = append(from.FieldIDs[:fromIndex], from.FieldIDs[fromIndex+1:]...)
	to.FieldIDs = append(to.FieldIDs[:toIndex], append([]string{id}, to.FieldIDs[toIndex:]...)...)
	return nil
}
