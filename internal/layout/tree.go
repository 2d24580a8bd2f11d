// Package layout implements the layout reordering and reconciliation engine
// for form schemas.
//
// A flat, ordered field list encodes tabs, sections and columns positionally
// through marker descriptors. Parse projects that list onto a Virtual Order
// Tree holding identifiers only; the Shadow store holds the descriptor data.
// Mutations reorder the tree or edit the shadow, Build merges both into a
// render tree, and Flatten/Diff reconcile the result into a change set for
// persistence.
package layout

import (
	"github.com/matthewbaird/formlayout/internal/types"
)

// DefaultTabLabel names the tab that holds descriptors preceding the first Tab Break.
const DefaultTabLabel = "Details"

// Tree is the Virtual Order Tree: tab -> section -> column -> field ids.
// It never holds descriptor data.
type Tree struct {
	Tabs       []*Tab `json:"tabs"`
	CurrentTab int    `json:"current_tab"`
}

// Tab is one tab. MarkerID is empty for the implicit leading tab.
type Tab struct {
	Label    string     `json:"label"`
	MarkerID string     `json:"marker_id,omitempty"`
	Sections []*Section `json:"sections"`
}

// Section is one section. MarkerID is empty when the section has no
// Section Break of its own (descriptors directly after a tab start).
type Section struct {
	MarkerID string    `json:"marker_id,omitempty"`
	Columns  []*Column `json:"columns"`
}

// Column is one column. Columns[0].MarkerID is always empty; every
// later column references the Column Break that opens it.
type Column struct {
	MarkerID string   `json:"marker_id,omitempty"`
	FieldIDs []string `json:"field_ids"`
}

// SectionRef addresses a section.
type SectionRef struct {
	Tab     int `json:"tab"`
	Section int `json:"section"`
}

// ColumnRef addresses a column.
type ColumnRef struct {
	Tab     int `json:"tab"`
	Section int `json:"section"`
	Column  int `json:"column"`
}

// SectionRef returns the section part of the reference.
func (r ColumnRef) SectionRef() SectionRef {
	return SectionRef{Tab: r.Tab, Section: r.Section}
}

// Parse scans the list left to right and builds the tree. It never fails:
// data descriptors before the first marker land in default containers and
// consecutive markers produce empty containers.
func Parse(list types.FieldList) *Tree {
	p := &parser{tree: &Tree{}}
	for _, f := range list {
		switch f.Type {
		case types.TabBreak:
			p.openTab(f.Label(), f.Name)
		case types.SectionBreak:
			p.openSection(f.Name)
		case types.ColumnBreak:
			p.ensureSection()
			p.col = &Column{MarkerID: f.Name}
			p.sec.Columns = append(p.sec.Columns, p.col)
		default:
			p.ensureSection()
			p.col.FieldIDs = append(p.col.FieldIDs, f.Name)
		}
	}
	return p.tree
}

type parser struct {
	tree *Tree
	tab  *Tab
	sec  *Section
	col  *Column
}

func (p *parser) openTab(label, markerID string) {
	p.tab = &Tab{Label: label, MarkerID: markerID}
	p.tree.Tabs = append(p.tree.Tabs, p.tab)
	p.sec = nil
	p.col = nil
}

func (p *parser) openSection(markerID string) {
	if p.tab == nil {
		p.openTab(DefaultTabLabel, "")
	}
	p.col = &Column{}
	p.sec = &Section{MarkerID: markerID, Columns: []*Column{p.col}}
	p.tab.Sections = append(p.tab.Sections, p.sec)
}

func (p *parser) ensureSection() {
	if p.sec == nil {
		p.openSection("")
	}
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	out := &Tree{CurrentTab: t.CurrentTab, Tabs: make([]*Tab, len(t.Tabs))}
	for i, tab := range t.Tabs {
		nt := &Tab{Label: tab.Label, MarkerID: tab.MarkerID, Sections: make([]*Section, len(tab.Sections))}
		for j, sec := range tab.Sections {
			ns := &Section{MarkerID: sec.MarkerID, Columns: make([]*Column, len(sec.Columns))}
			for k, col := range sec.Columns {
				ns.Columns[k] = &Column{MarkerID: col.MarkerID, FieldIDs: append([]string(nil), col.FieldIDs...)}
			}
			nt.Sections[j] = ns
		}
		out.Tabs[i] = nt
	}
	return out
}

func (t *Tree) tab(i int) (*Tab, error) {
	if i < 0 || i >= len(t.Tabs) {
		return nil, indexErrorf("tab %d out of range [0, %d)", i, len(t.Tabs))
	}
	return t.Tabs[i], nil
}

func (t *Tree) section(ref SectionRef) (*Section, error) {
	tab, err := t.tab(ref.Tab)
	if err != nil {
		return nil, err
	}
	if ref.Section < 0 || ref.Section >= len(tab.Sections) {
		return nil, indexErrorf("section %d out of range [0, %d) in tab %d", ref.Section, len(tab.Sections), ref.Tab)
	}
	return tab.Sections[ref.Section], nil
}

func (t *Tree) column(ref ColumnRef) (*Column, error) {
	sec, err := t.section(ref.SectionRef())
	if err != nil {
		return nil, err
	}
	if ref.Column < 0 || ref.Column >= len(sec.Columns) {
		return nil, indexErrorf("column %d out of range [0, %d)", ref.Column, len(sec.Columns))
	}
	return sec.Columns[ref.Column], nil
}

// Locate finds the column and index holding a data field id.
func (t *Tree) Locate(id string) (ColumnRef, int, bool) {
	for ti, tab := range t.Tabs {
		for si, sec := range tab.Sections {
			for ci, col := range sec.Columns {
				for fi, fid := range col.FieldIDs {
					if fid == id {
						return ColumnRef{Tab: ti, Section: si, Column: ci}, fi, true
					}
				}
			}
		}
	}
	return ColumnRef{}, 0, false
}

// SectionOfMarker finds the section whose columns reference a Column Break id.
func (t *Tree) SectionOfMarker(markerID string) (SectionRef, bool) {
	for ti, tab := range t.Tabs {
		for si, sec := range tab.Sections {
			for _, col := range sec.Columns {
				if col.MarkerID == markerID {
					return SectionRef{Tab: ti, Section: si}, true
				}
			}
		}
	}
	return SectionRef{}, false
}
