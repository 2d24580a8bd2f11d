package layout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formlayout/internal/types"
)

type recordingPersister struct {
	calls []types.ChangeSet
	err   error
}

func (p *recordingPersister) Persist(_ context.Context, _ string, cs types.ChangeSet) error {
	if p.err != nil {
		return p.err
	}
	p.calls = append(p.calls, cs)
	return nil
}

type staticLoader struct {
	list  types.FieldList
	total int
	err   error
}

func (l staticLoader) Load(context.Context, string) (types.FieldList, int, error) {
	return l.list, l.total, l.err
}

func TestSession_EmptyRejectsOperations(t *testing.T) {
	s := NewSession()

	assert.Equal(t, StateEmpty, s.State())
	assert.ErrorIs(t, s.MoveSection(0, 0, 1), ErrNotLoaded)
	assert.ErrorIs(t, s.UpdateFieldProperty("x", "label", "y"), ErrNotLoaded)
	_, err := s.ChangeSet()
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.Empty(t, s.Structure().Tabs)
}

func TestSession_LoadRejectsUnusableListAndKeepsPriorDocument(t *testing.T) {
	s := loadedSession(t, threeColumnList())
	require.NoError(t, s.UpdateFieldProperty("f1", types.PropLabel, "Edited"))

	err := s.Load("Broken", types.FieldList{field("a"), field("a"), types.NewField("", "Data", nil)})

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Len(t, loadErr.Problems, 2)
	assert.Equal(t, "Test Doc", s.Doctype())
	assert.Equal(t, StateDirty, s.State())
	f1, _ := s.Field("f1")
	assert.Equal(t, "Edited", f1.Props[types.PropLabel])

	assert.Error(t, NewSession().Load("Empty", nil))
}

func TestSession_LoadFrom(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.LoadFrom(context.Background(), staticLoader{list: threeColumnList(), total: 7}, "Doc"))
	assert.Equal(t, "Doc", s.Doctype())
	assert.Equal(t, 7, s.Total())

	boom := errors.New("boom")
	err := s.LoadFrom(context.Background(), staticLoader{err: boom}, "Other")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "Doc", s.Doctype())
}

func TestSession_UpdateFieldProperty(t *testing.T) {
	s := loadedSession(t, threeColumnList())

	assert.ErrorIs(t, s.UpdateFieldProperty("nope", types.PropLabel, "x"), ErrUnknownField)
	assert.ErrorIs(t, s.UpdateFieldProperty("f1", types.PropFieldname, "x"), ErrProtectedProperty)
	assert.ErrorIs(t, s.UpdateFieldProperty("f1", types.PropPosition, 3), ErrProtectedProperty)
	assert.Equal(t, StateLoaded, s.State())

	require.NoError(t, s.UpdateFieldProperty("f1", types.PropRequired, 1))
	assert.Equal(t, StateDirty, s.State())
	f1, ok := s.Field("f1")
	require.True(t, ok)
	assert.True(t, f1.Flag(types.PropRequired))

	pristine, _ := s.Pristine().Find("f1")
	assert.False(t, pristine.Flag(types.PropRequired), "pristine list is never mutated")
}

func TestSession_UpdateFieldPropertiesIsAllOrNothing(t *testing.T) {
	s := loadedSession(t, threeColumnList())
	require.NoError(t, s.UpdateFieldProperty("f1", types.PropLabel, "First"))

	err := s.UpdateFieldProperties("f1", map[string]any{
		types.PropHidden:   1,
		types.PropLabel:    "Second",
		types.PropPosition: 3,
	})
	require.ErrorIs(t, err, ErrProtectedProperty)

	f1, _ := s.Field("f1")
	assert.Equal(t, "First", f1.Label())
	assert.False(t, f1.Flag(types.PropHidden))
	cs, err := s.ChangeSet()
	require.NoError(t, err)
	assert.Equal(t, types.ChangeSet{"f1": {types.PropLabel: "First"}}, cs)
}

func TestSession_UpdateFieldPropertiesRollsBackOverflow(t *testing.T) {
	s := loadedSession(t, threeColumnList())

	err := s.UpdateFieldProperties("m2", map[string]any{types.PropCollapsible: 1, types.PropWidth: 9})
	var overflow *GridOverflowError
	require.ErrorAs(t, err, &overflow)
	assert.Equal(t, 13, overflow.Total)
	assert.Equal(t, StateLoaded, s.State(), "a rejected batch does not dirty the session")

	m2, _ := s.Field("m2")
	assert.False(t, m2.Flag(types.PropCollapsible))
	w, _ := m2.Int(types.PropWidth)
	assert.Equal(t, 6, w)

	require.NoError(t, s.UpdateFieldProperties("m2", map[string]any{types.PropCollapsible: 1, types.PropWidth: 8}))
	cs, err := s.ChangeSet()
	require.NoError(t, err)
	assert.Equal(t, types.ChangeSet{"m2": {types.PropCollapsible: 1, types.PropWidth: 8}}, cs)

	assert.ErrorIs(t, s.UpdateFieldProperties("ghost", map[string]any{types.PropLabel: "x"}), ErrUnknownField)
}

func TestSession_StateMachine(t *testing.T) {
	s := loadedSession(t, threeColumnList())
	p := &recordingPersister{}

	require.NoError(t, s.MoveColumn(SectionRef{}, 1, 2))
	assert.Equal(t, StateDirty, s.State())

	_, err := s.ChangeSet()
	require.NoError(t, err)
	assert.Equal(t, StateReconciled, s.State())

	require.NoError(t, s.UpdateFieldProperty("f4", types.PropHidden, 1))
	assert.Equal(t, StateDirty, s.State())

	cs, err := s.Commit(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, s.State())
	require.Len(t, p.calls, 1)
	assert.Equal(t, cs, p.calls[0])
	assert.Equal(t, 1, cs["f4"][types.PropHidden])

	// The committed state is the new baseline.
	after, err := s.ChangeSet()
	require.NoError(t, err)
	assert.Empty(t, after)
	assert.Equal(t, s.Flatten().Names(), s.Pristine().Names())
}

func TestSession_CommitFailureKeepsPendingChanges(t *testing.T) {
	s := loadedSession(t, threeSectionList())
	require.NoError(t, s.MoveSection(0, 0, 1))

	_, err := s.Commit(context.Background(), &recordingPersister{err: errors.New("db down")})
	require.Error(t, err)
	assert.Equal(t, StateReconciled, s.State())

	cs, err := s.ChangeSet()
	require.NoError(t, err)
	assert.NotEmpty(t, cs)
}

func TestSession_CommitWithoutChangesSkipsPersist(t *testing.T) {
	s := loadedSession(t, threeSectionList())
	p := &recordingPersister{}

	cs, err := s.Commit(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, cs)
	assert.Empty(t, p.calls)
}

func TestSession_Revert(t *testing.T) {
	list := threeColumnList()
	s := loadedSession(t, list)
	before := s.Structure()

	require.NoError(t, s.MoveColumn(SectionRef{}, 2, 0))
	require.NoError(t, s.MoveField("f1", ColumnRef{Column: 2}, 0))
	require.NoError(t, s.UpdateFieldProperty("f3", types.PropLabel, "Changed"))
	require.NoError(t, s.UpdateFieldProperty("m1", types.PropWidth, 2))
	require.NoError(t, s.SelectTab(0))

	require.NoError(t, s.Revert())

	assert.Equal(t, StateLoaded, s.State())
	assert.Equal(t, list.Names(), s.Flatten().Names())
	assert.Equal(t, before, s.Structure())
	for _, want := range list {
		got, ok := s.Field(want.Name)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	cs, err := s.ChangeSet()
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestSession_SelectTab(t *testing.T) {
	s := loadedSession(t, types.FieldList{tabBreak("t1"), field("a"), tabBreak("t2"), field("b")})

	require.NoError(t, s.SelectTab(1))
	assert.Equal(t, 1, s.Structure().CurrentTab)
	assert.Equal(t, StateLoaded, s.State())
	assert.ErrorIs(t, s.SelectTab(2), ErrInvalidIndex)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "reconciled", StateReconciled.String())
	text, err := StateDirty.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "dirty", string(text))

	var st State
	require.NoError(t, st.UnmarshalText([]byte("loaded")))
	assert.Equal(t, StateLoaded, st)
	assert.Error(t, st.UnmarshalText([]byte("bogus")))
}
