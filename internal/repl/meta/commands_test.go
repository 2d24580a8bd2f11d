package meta

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formlayout/internal/editor"
	"github.com/matthewbaird/formlayout/internal/layout"
	"github.com/matthewbaird/formlayout/internal/store"
	"github.com/matthewbaird/formlayout/internal/types"
)

type failingLister struct{}

func (failingLister) Doctypes(context.Context) ([]string, error) { return nil, errors.New("db down") }

func setup(t *testing.T) (*Handler, *editor.Manager, string) {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, st.ImportBase(context.Background(), "Customer", types.FieldList{
		types.NewField("email", "Data", map[string]any{types.PropLabel: "Email"}),
		types.NewField("col", types.ColumnBreak, nil),
	}))
	mgr := editor.NewManager(st, time.Hour, time.Hour)
	return New(st), mgr, mgr.Create().ID
}

func exec(t *testing.T, h *Handler, mgr *editor.Manager, id, cmd string, args ...string) (*Result, error) {
	t.Helper()
	var res *Result
	err := mgr.With(id, func(e *editor.Entry, s *layout.Session) error {
		var err error
		res, err = h.Execute(context.Background(), e, s, cmd, args)
		return err
	})
	return res, err
}

func TestMeta_Help(t *testing.T) {
	h, mgr, id := setup(t)

	res, err := exec(t, h, mgr, id, "help")
	require.NoError(t, err)
	assert.Contains(t, res.Output, "move section <from> to <to>")

	res, err = exec(t, h, mgr, id, "help", "width")
	require.NoError(t, err)
	assert.Contains(t, res.Output, "at most 12")

	res, err = exec(t, h, mgr, id, "help", "mvoe")
	require.NoError(t, err)
	assert.Contains(t, res.Output, "did you mean 'move'?")
}

func TestMeta_ClearAndUnknown(t *testing.T) {
	h, mgr, id := setup(t)

	res, err := exec(t, h, mgr, id, "clear")
	require.NoError(t, err)
	assert.True(t, res.Clear)

	_, err = exec(t, h, mgr, id, "hisotry")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean 'history'?")
}

func TestMeta_EnvAndHistory(t *testing.T) {
	h, mgr, id := setup(t)

	res, err := exec(t, h, mgr, id, "history")
	require.NoError(t, err)
	assert.Equal(t, "(no history)", res.Output)

	require.NoError(t, mgr.With(id, func(e *editor.Entry, s *layout.Session) error {
		e.AddHistory(`load "Customer"`)
		return s.LoadFrom(context.Background(), mgr.Loader(), "Customer")
	}))

	res, err = exec(t, h, mgr, id, "history")
	require.NoError(t, err)
	assert.Equal(t, "  1  load \"Customer\"\n", res.Output)

	res, err = exec(t, h, mgr, id, "env")
	require.NoError(t, err)
	assert.Contains(t, res.Output, "Doctype: Customer")
	assert.Contains(t, res.Output, "State: loaded")
	assert.Contains(t, res.Output, "History entries: 1")
}

func TestMeta_DoctypesAndFields(t *testing.T) {
	h, mgr, id := setup(t)

	res, err := exec(t, h, mgr, id, "doctypes")
	require.NoError(t, err)
	assert.Equal(t, "Doctypes (1):\n  Customer", res.Output)

	_, err = exec(t, h, mgr, id, "fields")
	assert.ErrorIs(t, err, layout.ErrNotLoaded)

	require.NoError(t, mgr.With(id, func(_ *editor.Entry, s *layout.Session) error {
		return s.LoadFrom(context.Background(), mgr.Loader(), "Customer")
	}))
	res, err = exec(t, h, mgr, id, "fields")
	require.NoError(t, err)
	assert.Contains(t, res.Output, "email")
	assert.Contains(t, res.Output, "Column Break")

	_, err = New(failingLister{}).Execute(context.Background(), nil, nil, "doctypes", nil)
	assert.ErrorContains(t, err, "db down")
}
