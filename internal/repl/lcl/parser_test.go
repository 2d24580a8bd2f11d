package lcl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, input string) []Statement {
	t.Helper()
	stmts, errs := Parse(input)
	require.Empty(t, errs, "parse errors")
	return stmts
}

func intp(n int) *int { return &n }

func TestParser_Load(t *testing.T) {
	stmts := parse(t, `load "Sales Invoice"`)
	require.Len(t, stmts, 1)
	load, ok := stmts[0].(*LoadStmt)
	require.True(t, ok)
	assert.Equal(t, "Sales Invoice", load.Doctype)
}

func TestParser_MoveSection(t *testing.T) {
	stmts := parse(t, "move section 2 to 0\nmove section 1 to 0 tab 3")
	require.Len(t, stmts, 2)

	first := stmts[0].(*MoveSectionStmt)
	assert.Equal(t, 2, first.From)
	assert.Equal(t, 0, first.To)
	assert.Nil(t, first.Tab)

	second := stmts[1].(*MoveSectionStmt)
	assert.Equal(t, intp(3), second.Tab)
}

func TestParser_MoveColumn(t *testing.T) {
	stmts := parse(t, "move column 2 to 0 section 1 tab 0")
	mc := stmts[0].(*MoveColumnStmt)
	assert.Equal(t, &MoveColumnStmt{From: 2, To: 0, Section: 1, Tab: intp(0)}, mc)
}

func TestParser_MoveField(t *testing.T) {
	stmts := parse(t, `move field "email" to column 1 section 0 tab 2 at 0`)
	mf := stmts[0].(*MoveFieldStmt)
	assert.Equal(t, "email", mf.Field)
	assert.Equal(t, 1, mf.Column)
	assert.Equal(t, 0, mf.Section)
	assert.Equal(t, intp(2), mf.Tab)
	assert.Equal(t, intp(0), mf.At)

	stmts = parse(t, `move field phone to column 0 section 0`)
	mf = stmts[0].(*MoveFieldStmt)
	assert.Equal(t, "phone", mf.Field)
	assert.Nil(t, mf.Tab)
	assert.Nil(t, mf.At)
}

func TestParser_OptionalClausesStayOnTheirLine(t *testing.T) {
	stmts := parse(t, "move section 1 to 0\ntab 2")
	require.Len(t, stmts, 2)
	assert.Nil(t, stmts[0].(*MoveSectionStmt).Tab)
	assert.Equal(t, 2, stmts[1].(*TabStmt).Index)
}

func TestParser_Set(t *testing.T) {
	stmts := parse(t, `set "email" label = "E-mail", hidden = 1, bold = true, description = null, ratio = 0.5`)
	set := stmts[0].(*SetStmt)
	assert.Equal(t, "email", set.Field)
	require.Len(t, set.Assignments, 5)

	values := map[string]any{}
	for _, a := range set.Assignments {
		values[a.Prop] = a.Value.Value()
	}
	assert.Equal(t, map[string]any{
		"label":       "E-mail",
		"hidden":      1,
		"bold":        true,
		"description": nil,
		"ratio":       0.5,
	}, values)
}

func TestParser_SetAcceptsKeywordPropertyNames(t *testing.T) {
	stmts := parse(t, `set "col_break" width = 4`)
	set := stmts[0].(*SetStmt)
	assert.Equal(t, "width", set.Assignments[0].Prop)
}

func TestParser_Width(t *testing.T) {
	stmts := parse(t, "width column 1 section 0 = 6; width column 2 section 1 tab 1 = 3")
	require.Len(t, stmts, 2)
	assert.Equal(t, &WidthStmt{Column: 1, Section: 0, Width: 6}, stmts[0])
	w := stmts[1].(*WidthStmt)
	assert.Equal(t, intp(1), w.Tab)
	assert.Equal(t, 3, w.Width)
}

func TestParser_ActionsAndMeta(t *testing.T) {
	stmts := parse(t, "show\nchanges; commit\nrevert\n:help move\n:clear")
	require.Len(t, stmts, 6)
	assert.Equal(t, ActionShow, stmts[0].(*ActionStmt).Action)
	assert.Equal(t, ActionChanges, stmts[1].(*ActionStmt).Action)
	assert.Equal(t, ActionCommit, stmts[2].(*ActionStmt).Action)
	assert.Equal(t, ActionRevert, stmts[3].(*ActionStmt).Action)

	help := stmts[4].(*MetaCmdStmt)
	assert.Equal(t, "help", help.Command)
	assert.Equal(t, []string{"move"}, help.Args)
	assert.Empty(t, stmts[5].(*MetaCmdStmt).Args)
}

func TestParser_UnknownCommandSuggestsVerb(t *testing.T) {
	stmts, errs := Parse("mvoe section 1 to 0\nshow")
	require.Len(t, errs, 1)
	assert.Equal(t, 1, errs[0].Line)
	assert.Contains(t, errs[0].Message, `unknown command "mvoe"`)
	assert.Equal(t, "did you mean 'move'?", errs[0].Suggestion)

	require.Len(t, stmts, 1, "parsing resumes on the next line")
	assert.IsType(t, &ActionStmt{}, stmts[0])
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"move row 1 to 2", "expected section, column or field after move"},
		{"move section 1 0", "expected to"},
		{"tab x", "expected integer"},
		{`set "f" = 1`, "expected property name"},
		{`set "f" label "x"`, "expected ="},
		{`set "f" label = section`, "expected value"},
		{"show now", "unexpected"},
		{`load ""`, "doctype cannot be empty"},
		{"= 3", "at start of statement"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, errs := Parse(tt.input)
			require.NotEmpty(t, errs)
			assert.Contains(t, errs[0].Error(), tt.want)
		})
	}
}

func TestParser_MissingArgumentDoesNotSwallowNextLine(t *testing.T) {
	stmts, errs := Parse("tab\nshow")
	require.Len(t, errs, 1)
	require.Len(t, stmts, 1)
	assert.IsType(t, &ActionStmt{}, stmts[0])
}
