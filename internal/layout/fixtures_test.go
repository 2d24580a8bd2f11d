package layout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formlayout/internal/types"
)

// field builds a data descriptor from name/value pairs.
func field(name string, kv ...any) types.Field {
	props := map[string]any{types.PropLabel: name}
	for i := 0; i+1 < len(kv); i += 2 {
		props[kv[i].(string)] = kv[i+1]
	}
	return types.NewField(name, "Data", props)
}

func tabBreak(name string) types.Field {
	return types.NewField(name, types.TabBreak, map[string]any{types.PropLabel: name})
}

func sectionBreak(name string) types.Field {
	return types.NewField(name, types.SectionBreak, map[string]any{types.PropLabel: name})
}

func columnBreak(name string, width int) types.Field {
	props := map[string]any{}
	if width > 0 {
		props[types.PropWidth] = width
	}
	return types.NewField(name, types.ColumnBreak, props)
}

// threeColumnList is one section with columns
// [col0(f1, f2), col1(m1 width 4, f3), col2(m2 width 6, f4)].
func threeColumnList() types.FieldList {
	return types.FieldList{
		sectionBreak("s"),
		field("f1"),
		field("f2"),
		columnBreak("m1", 4),
		field("f3"),
		columnBreak("m2", 6),
		field("f4"),
	}
}

// threeSectionList is one tab with sections A, B, C.
func threeSectionList() types.FieldList {
	return types.FieldList{
		sectionBreak("sec_a"),
		field("a1"),
		field("a2"),
		sectionBreak("sec_b"),
		field("b1"),
		sectionBreak("sec_c"),
		field("c1"),
		field("c2"),
	}
}

func loadedSession(t *testing.T, list types.FieldList) *Session {
	t.Helper()
	s := NewSession()
	require.NoError(t, s.Load("Test Doc", list))
	return s
}

// requireMarkerInvariant checks that column 0 of every section has no
// Column Break and every later column has exactly one.
func requireMarkerInvariant(t *testing.T, tree *Tree) {
	t.Helper()
	for ti, tab := range tree.Tabs {
		for si, sec := range tab.Sections {
			for ci, col := range sec.Columns {
				if ci == 0 {
					require.Empty(t, col.MarkerID, "tab %d section %d column 0 has a marker", ti, si)
				} else {
					require.NotEmpty(t, col.MarkerID, "tab %d section %d column %d has no marker", ti, si, ci)
				}
			}
		}
	}
}
