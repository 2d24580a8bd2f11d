package preview

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formlayout/internal/layout"
	"github.com/matthewbaird/formlayout/internal/types"
)

func sampleList() types.FieldList {
	return types.FieldList{
		types.NewField("main", types.TabBreak, map[string]any{types.PropLabel: "Main"}),
		types.NewField("contact", types.SectionBreak, map[string]any{
			types.PropLabel:       "Contact",
			types.PropCollapsible: 1,
		}),
		types.NewField("email", "Data", map[string]any{types.PropLabel: "Email", types.PropRequired: 1}),
		types.NewField("cb", types.ColumnBreak, map[string]any{types.PropWidth: 4}),
		types.NewField("fax", "Data", map[string]any{types.PropLabel: "Fax", types.PropHidden: 1}),
		types.NewField("more", types.TabBreak, map[string]any{types.PropLabel: "More"}),
	}
}

func TestRender_Outline(t *testing.T) {
	s := layout.NewSession()
	require.NoError(t, s.Load("Lead", sampleList()))

	out := Render(s.Structure())

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Contains(t, lines[0], "▸")
	assert.Contains(t, lines[0], "TAB: Main")
	assert.Contains(t, lines[1], "SECTION: Contact")
	assert.Contains(t, lines[1], "(collapsible)")
	assert.Contains(t, lines[2], "Column 1 (auto, 67%)")
	assert.Contains(t, lines[3], "• Email [Data] email *")
	assert.Contains(t, lines[4], "Column 2: cb (width 4, 33%)")
	assert.Contains(t, lines[5], "• Fax [Data] fax")
	assert.Contains(t, lines[5], "[HIDDEN]")
	assert.Contains(t, lines[6], "TAB: More")
	assert.NotContains(t, lines[6], "▸")
}

func TestMarkdown_HandOff(t *testing.T) {
	list := sampleList()

	md, err := Markdown("Lead", list)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(md, "## Update Layout for DocType: Lead\n"))
	assert.Contains(t, md, "### New field_order:")
	assert.Contains(t, md, "4. Commit and push")

	start := strings.Index(md, "```json\n") + len("```json\n")
	end := strings.Index(md[start:], "\n```")
	var order []string
	require.NoError(t, json.Unmarshal([]byte(md[start:start+end]), &order))
	assert.Equal(t, list.Names(), order)
}
