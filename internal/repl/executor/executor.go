// Package executor runs parsed layout commands against an editing session.
package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/matthewbaird/formlayout/internal/event"
	"github.com/matthewbaird/formlayout/internal/layout"
	"github.com/matthewbaird/formlayout/internal/repl/lcl"
	"github.com/matthewbaird/formlayout/internal/types"
)

// Kind tells the client how to present a result.
type Kind string

const (
	KindStructure Kind = "structure"
	KindChanges   Kind = "changes"
	KindMessage   Kind = "message"
)

// Result holds the output of one statement.
type Result struct {
	Kind      Kind               `json:"kind"`
	Message   string             `json:"message,omitempty"`
	Structure *layout.RenderTree `json:"structure,omitempty"`
	Changes   types.ChangeSet    `json:"changes,omitempty"`
	State     layout.State       `json:"state"`
}

// Store is the collaborator sessions load from and commit to.
type Store interface {
	layout.Loader
	layout.Persister
}

// Executor runs statements against a session.
type Executor struct {
	store  Store
	events event.Publisher
}

// New creates an executor. events may be nil.
func New(store Store, events event.Publisher) *Executor {
	return &Executor{store: store, events: events}
}

// Execute runs one statement. sessionID identifies the session in
// published events. Meta-commands are not handled here.
func (e *Executor) Execute(ctx context.Context, sessionID string, s *layout.Session, stmt lcl.Statement) (*Result, error) {
	var (
		res *Result
		err error
	)
	switch st := stmt.(type) {
	case *lcl.LoadStmt:
		res, err = e.execLoad(ctx, sessionID, s, st)
	case *lcl.TabStmt:
		if err = s.SelectTab(st.Index); err == nil {
			res = structure(s, fmt.Sprintf("Switched to tab %d", st.Index))
		}
	case *lcl.MoveSectionStmt:
		if err = s.MoveSection(tabOf(s, st.Tab), st.From, st.To); err == nil {
			res = structure(s, fmt.Sprintf("Moved section %d to %d", st.From, st.To))
		}
	case *lcl.MoveColumnStmt:
		ref := layout.SectionRef{Tab: tabOf(s, st.Tab), Section: st.Section}
		if err = s.MoveColumn(ref, st.From, st.To); err == nil {
			res = structure(s, fmt.Sprintf("Moved column %d to %d", st.From, st.To))
		}
	case *lcl.MoveFieldStmt:
		res, err = e.execMoveField(s, st)
	case *lcl.SetStmt:
		res, err = e.execSet(s, st)
	case *lcl.WidthStmt:
		ref := layout.SectionRef{Tab: tabOf(s, st.Tab), Section: st.Section}
		if err = s.SetColumnWidth(ref, st.Column, st.Width); err == nil {
			res = structure(s, fmt.Sprintf("Column %d width set to %d", st.Column, st.Width))
		}
	case *lcl.ActionStmt:
		res, err = e.execAction(ctx, sessionID, s, st.Action)
	case *lcl.MetaCmdStmt:
		return nil, fmt.Errorf("meta-commands should be handled by the meta-command handler")
	default:
		return nil, fmt.Errorf("unsupported statement %T", stmt)
	}
	if err != nil {
		return nil, err
	}
	res.State = s.State()
	return res, nil
}

func (e *Executor) execLoad(ctx context.Context, sessionID string, s *layout.Session, st *lcl.LoadStmt) (*Result, error) {
	if err := s.LoadFrom(ctx, e.store, st.Doctype); err != nil {
		return nil, err
	}
	e.publish(ctx, event.NewLayoutLoaded(event.LayoutLoadedPayload{
		Doctype:     st.Doctype,
		SessionID:   sessionID,
		TotalFields: s.Total(),
	}))
	return structure(s, fmt.Sprintf("Loaded %s (%d fields)", st.Doctype, s.Total())), nil
}

// execMoveField appends to the target column when no index is given.
func (e *Executor) execMoveField(s *layout.Session, st *lcl.MoveFieldStmt) (*Result, error) {
	dst := layout.ColumnRef{Tab: tabOf(s, st.Tab), Section: st.Section, Column: st.Column}
	var index int
	if st.At != nil {
		index = *st.At
	} else {
		index = appendIndex(s, st.Field, dst)
	}
	if err := s.MoveField(st.Field, dst, index); err != nil {
		return nil, err
	}
	return structure(s, fmt.Sprintf("Moved %s to column %d section %d", st.Field, st.Column, st.Section)), nil
}

// execSet applies every assignment or none. A property assigned twice
// keeps the last value.
func (e *Executor) execSet(s *layout.Session, st *lcl.SetStmt) (*Result, error) {
	values := make(map[string]any, len(st.Assignments))
	props := make([]string, 0, len(st.Assignments))
	for _, a := range st.Assignments {
		if _, dup := values[a.Prop]; !dup {
			props = append(props, a.Prop)
		}
		values[a.Prop] = a.Value.Value()
	}
	if err := s.UpdateFieldProperties(st.Field, values); err != nil {
		return nil, err
	}
	return structure(s, fmt.Sprintf("Updated %s: %s", st.Field, strings.Join(props, ", "))), nil
}

func (e *Executor) execAction(ctx context.Context, sessionID string, s *layout.Session, action lcl.Action) (*Result, error) {
	switch action {
	case lcl.ActionShow:
		if s.State() == layout.StateEmpty {
			return nil, layout.ErrNotLoaded
		}
		return structure(s, ""), nil

	case lcl.ActionChanges:
		cs, err := s.ChangeSet()
		if err != nil {
			return nil, err
		}
		return &Result{
			Kind:    KindChanges,
			Changes: cs,
			Message: fmt.Sprintf("%d pending changes across %d fields", cs.Len(), len(cs)),
		}, nil

	case lcl.ActionCommit:
		cs, err := s.Commit(ctx, e.store)
		if err != nil {
			return nil, err
		}
		if len(cs) == 0 {
			return &Result{Kind: KindMessage, Message: "Nothing to commit"}, nil
		}
		e.publish(ctx, event.NewLayoutCommitted(event.LayoutCommittedPayload{
			Doctype:     s.Doctype(),
			SessionID:   sessionID,
			ChangeCount: cs.Len(),
			ChangedIDs:  cs.IDs(),
		}))
		return &Result{
			Kind:    KindChanges,
			Changes: cs,
			Message: fmt.Sprintf("Committed %d changes to %s", cs.Len(), s.Doctype()),
		}, nil

	case lcl.ActionRevert:
		if err := s.Revert(); err != nil {
			return nil, err
		}
		e.publish(ctx, event.NewLayoutReverted(event.LayoutRevertedPayload{
			Doctype:   s.Doctype(),
			SessionID: sessionID,
		}))
		return structure(s, "Reverted pending changes"), nil
	}
	return nil, fmt.Errorf("unsupported action %q", action)
}

func (e *Executor) publish(ctx context.Context, evt event.DomainEvent) {
	if e.events != nil {
		e.events.Publish(ctx, evt)
	}
}

func structure(s *layout.Session, msg string) *Result {
	return &Result{Kind: KindStructure, Structure: s.Structure(), Message: msg}
}

func tabOf(s *layout.Session, tab *int) int {
	if tab != nil {
		return *tab
	}
	return s.CurrentTab()
}

// appendIndex is the index that places id last in dst. Out-of-range
// references yield 0 and are rejected by the move itself.
func appendIndex(s *layout.Session, id string, dst layout.ColumnRef) int {
	t := s.Tree()
	if dst.Tab < 0 || dst.Tab >= len(t.Tabs) {
		return 0
	}
	tab := t.Tabs[dst.Tab]
	if dst.Section < 0 || dst.Section >= len(tab.Sections) {
		return 0
	}
	sec := tab.Sections[dst.Section]
	if dst.Column < 0 || dst.Column >= len(sec.Columns) {
		return 0
	}
	n := len(sec.Columns[dst.Column].FieldIDs)
	if src, _, ok := t.Locate(id); ok && src == dst {
		return n - 1
	}
	return n
}
