package layout

import "github.com/matthewbaird/formlayout/internal/types"

// RenderTree is the render-ready merge of a Tree and a Shadow.
type RenderTree struct {
	Tabs       []RenderTab `json:"tabs"`
	CurrentTab int         `json:"current_tab"`
}

// RenderTab is a tab with its resolved marker, if any.
type RenderTab struct {
	Label    string          `json:"label"`
	Marker   *types.Field    `json:"marker,omitempty"`
	Sections []RenderSection `json:"sections"`
}

// RenderSection is a section with its resolved marker, if any.
type RenderSection struct {
	Label       string         `json:"label,omitempty"`
	Collapsible bool           `json:"collapsible,omitempty"`
	Marker      *types.Field   `json:"marker,omitempty"`
	Columns     []RenderColumn `json:"columns"`
}

// RenderColumn is a column with its width and resolved fields.
type RenderColumn struct {
	Marker *types.Field  `json:"marker,omitempty"`
	Span   ColumnSpan    `json:"span"`
	Fields []types.Field `json:"fields"`
}

// Build resolves every identifier of the tree against the shadow store.
// It has no side effects and skips identifiers the store does not know.
func Build(t *Tree, s *Shadow) *RenderTree {
	out := &RenderTree{CurrentTab: t.CurrentTab, Tabs: make([]RenderTab, 0, len(t.Tabs))}
	for _, tab := range t.Tabs {
		rt := RenderTab{Label: tab.Label, Sections: make([]RenderSection, 0, len(tab.Sections))}
		if m, ok := resolve(s, tab.MarkerID); ok {
			rt.Marker = m
			rt.Label = m.Label()
		}
		for _, sec := range tab.Sections {
			rt.Sections = append(rt.Sections, buildSection(sec, s))
		}
		out.Tabs = append(out.Tabs, rt)
	}
	return out
}

func buildSection(sec *Section, s *Shadow) RenderSection {
	rs := RenderSection{Columns: make([]RenderColumn, len(sec.Columns))}
	if m, ok := resolve(s, sec.MarkerID); ok {
		rs.Marker = m
		if label, ok := m.Props[types.PropLabel].(string); ok {
			rs.Label = label
		}
		rs.Collapsible = m.Flag(types.PropCollapsible)
	}
	spans := ColumnLayout(sectionWidths(sec, s))
	for i, col := range sec.Columns {
		rc := RenderColumn{Span: spans[i], Fields: make([]types.Field, 0, len(col.FieldIDs))}
		if i > 0 {
			if m, ok := resolve(s, col.MarkerID); ok {
				rc.Marker = m
			}
		}
		for _, id := range col.FieldIDs {
			if f, ok := s.Get(id); ok {
				rc.Fields = append(rc.Fields, f)
			}
		}
		rs.Columns[i] = rc
	}
	return rs
}

func resolve(s *Shadow, id string) (*types.Field, bool) {
	if id == "" {
		return nil, false
	}
	f, ok := s.Get(id)
	if !ok {
		return nil, false
	}
	return &f, true
}
