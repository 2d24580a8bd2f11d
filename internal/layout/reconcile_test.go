package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formlayout/internal/types"
)

func TestMoveSection_Reorder(t *testing.T) {
	s := loadedSession(t, threeSectionList())

	require.NoError(t, s.MoveSection(0, 0, 2))

	var order []string
	for _, sec := range s.Structure().Tabs[0].Sections {
		order = append(order, sec.Label)
	}
	assert.Equal(t, []string{"sec_b", "sec_c", "sec_a"}, order)

	cs, err := s.ChangeSet()
	require.NoError(t, err)
	assert.Equal(t, StateReconciled, s.State())
	want := map[string]int{
		"sec_b": 0, "b1": 1, "sec_c": 2, "c1": 3, "c2": 4, "sec_a": 5, "a1": 6, "a2": 7,
	}
	assert.Equal(t, want, cs.Positions())
}

func TestMoveSection_PartialReorderOnlyReportsMovedFields(t *testing.T) {
	s := loadedSession(t, threeSectionList())

	require.NoError(t, s.MoveSection(0, 2, 1))

	cs, err := s.ChangeSet()
	require.NoError(t, err)
	assert.NotContains(t, cs, "sec_a")
	assert.NotContains(t, cs, "a1")
	assert.NotContains(t, cs, "a2")
	assert.Equal(t, map[string]int{"sec_c": 3, "c1": 4, "c2": 5, "sec_b": 6, "b1": 7}, cs.Positions())
}

func TestMoveSection_Rejections(t *testing.T) {
	s := loadedSession(t, threeSectionList())

	assert.ErrorIs(t, s.MoveSection(0, 1, 1), ErrInvalidIndex)
	assert.ErrorIs(t, s.MoveSection(0, 0, 3), ErrInvalidIndex)
	assert.ErrorIs(t, s.MoveSection(1, 0, 1), ErrInvalidIndex)
	assert.Equal(t, StateLoaded, s.State())
}

func TestMoveSection_ImplicitLeadingSectionStaysFirst(t *testing.T) {
	s := loadedSession(t, types.FieldList{field("x"), sectionBreak("s1"), field("y"), sectionBreak("s2")})

	assert.ErrorIs(t, s.MoveSection(0, 0, 1), ErrImplicitSection)
	assert.ErrorIs(t, s.MoveSection(0, 2, 0), ErrImplicitSection)
	require.NoError(t, s.MoveSection(0, 2, 1))
	assert.Equal(t, []string{"x", "s2", "s1", "y"}, s.Flatten().Names())
}

func TestMoveField_WithinAndAcrossColumns(t *testing.T) {
	s := loadedSession(t, threeColumnList())

	require.NoError(t, s.MoveFieldWithinColumn(ColumnRef{}, 0, 1))
	assert.Equal(t, []string{"s", "f2", "f1", "m1", "f3", "m2", "f4"}, s.Flatten().Names())

	require.NoError(t, s.MoveFieldAcrossColumns(ColumnRef{}, 0, ColumnRef{Column: 2}, 1))
	assert.Equal(t, []string{"s", "f1", "m1", "f3", "m2", "f4", "f2"}, s.Flatten().Names())

	require.NoError(t, s.MoveField("f4", ColumnRef{Column: 1}, 0))
	assert.Equal(t, []string{"s", "f1", "m1", "f4", "f3", "m2", "f2"}, s.Flatten().Names())
}

func TestMoveField_Rejections(t *testing.T) {
	s := loadedSession(t, threeColumnList())

	assert.ErrorIs(t, s.MoveFieldWithinColumn(ColumnRef{}, 0, 0), ErrInvalidIndex)
	assert.ErrorIs(t, s.MoveFieldWithinColumn(ColumnRef{}, 0, 2), ErrInvalidIndex)
	assert.ErrorIs(t, s.MoveFieldAcrossColumns(ColumnRef{}, 0, ColumnRef{Column: 1}, 5), ErrInvalidIndex)
	assert.ErrorIs(t, s.MoveFieldAcrossColumns(ColumnRef{}, 0, ColumnRef{Column: 9}, 0), ErrInvalidIndex)
	assert.ErrorIs(t, s.MoveField("m1", ColumnRef{}, 0), ErrUnknownField)
	assert.Equal(t, StateLoaded, s.State())
}

func TestDiff_Minimality(t *testing.T) {
	s := loadedSession(t, threeColumnList())

	require.NoError(t, s.UpdateFieldProperty("f1", types.PropHidden, 1))
	require.NoError(t, s.UpdateFieldProperty("f2", types.PropLabel, "Renamed"))
	require.NoError(t, s.UpdateFieldProperty("f2", types.PropLabel, "f2"))
	require.NoError(t, s.UpdateFieldProperty("f3", types.PropRequired, 0))

	cs, err := s.ChangeSet()
	require.NoError(t, err)
	assert.Equal(t, types.ChangeSet{"f1": {types.PropHidden: 1}}, cs)
}

func TestDiff_NumericEquivalence(t *testing.T) {
	pristine := types.FieldList{columnBreak("m", 4)}
	cs := Diff(pristine, pristine, types.ChangeSet{"m": {types.PropWidth: float64(4)}})
	assert.Empty(t, cs)
}

func TestDiff_CheckValuesMatchBooleans(t *testing.T) {
	pristine := types.FieldList{field("f", types.PropRequired, 1, types.PropHidden, 0)}
	edits := types.ChangeSet{"f": {types.PropRequired: true, types.PropHidden: false}}
	assert.Empty(t, Diff(pristine, pristine, edits))

	edits = types.ChangeSet{"f": {types.PropRequired: false, types.PropHidden: true}}
	assert.Equal(t, edits, Diff(pristine, pristine, edits))
}

func TestApply_ReproducesFlattenedOrder(t *testing.T) {
	s := loadedSession(t, threeSectionList())
	require.NoError(t, s.MoveSection(0, 1, 2))
	require.NoError(t, s.MoveField("a2", ColumnRef{Section: 2}, 0))
	require.NoError(t, s.UpdateFieldProperty("c1", types.PropLabel, "C One"))

	cs, err := s.ChangeSet()
	require.NoError(t, err)

	applied := Apply(s.Pristine(), cs)
	assert.Equal(t, s.Flatten().Names(), applied.Names())
	c1, ok := applied.Find("c1")
	require.True(t, ok)
	assert.Equal(t, "C One", c1.Props[types.PropLabel])
}

func TestApply_ClampsAndFills(t *testing.T) {
	list := types.FieldList{field("a"), field("b"), field("c")}
	out := Apply(list, types.ChangeSet{"a": {types.PropPosition: 99}, "x": {types.PropPosition: 0}})
	assert.Equal(t, []string{"b", "c", "a"}, out.Names())
}

func TestFlatten_SkipsDanglingIdentifiers(t *testing.T) {
	list := threeColumnList()
	tree := Parse(list)
	tree.Tabs[0].Sections[0].Columns[0].FieldIDs = append(tree.Tabs[0].Sections[0].Columns[0].FieldIDs, "ghost")

	flat := Flatten(tree, NewShadow(list))
	assert.Equal(t, list.Names(), flat.Names())
}
