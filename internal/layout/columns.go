package layout

// moveColumn splices a column to a new position and then restores marker
// occupancy: the first column never references a Column Break and every
// later column references exactly one.
//
// Markers are treated as a pool in their pre-move slot order and dealt out
// to columns 1..N after the splice. Marker identity, and with it the width
// stored on the marker, therefore stays with the slot rather than with the
// moved fields.
func (t *Tree) moveColumn(ref SectionRef, from, to int) error {
	sec, err := t.section(ref)
	if err != nil {
		return err
	}
	if err := checkMove("column", from, to, len(sec.Columns)); err != nil {
		return err
	}

	pool := make([]string, 0, len(sec.Columns))
	for _, col := range sec.Columns {
		if col.MarkerID != "" {
			pool = append(pool, col.MarkerID)
		}
	}

	sec.Columns = splice(sec.Columns, from, to)
	reassignMarkers(sec, pool)
	return nil
}

// reassignMarkers strips column 0 and deals pool ids to columns 1..N in
// order. The pool always holds len(Columns)-1 ids for a well-formed section.
func reassignMarkers(sec *Section, pool []string) {
	for i, col := range sec.Columns {
		switch {
		case i == 0:
			col.MarkerID = ""
		case i-1 < len(pool):
			col.MarkerID = pool[i-1]
		default:
			col.MarkerID = ""
		}
	}
}
