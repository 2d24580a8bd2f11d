package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matthewbaird/formlayout/internal/editor"
	"github.com/matthewbaird/formlayout/internal/event"
	"github.com/matthewbaird/formlayout/internal/layout"
	"github.com/matthewbaird/formlayout/internal/preview"
	"github.com/matthewbaird/formlayout/internal/types"
)

// SessionHandler exposes editing sessions over HTTP.
type SessionHandler struct {
	responder
	sessions  *editor.Manager
	persister layout.Persister
	events    event.Publisher
}

// NewSessionHandler creates a SessionHandler. events may be nil.
func NewSessionHandler(sessions *editor.Manager, p layout.Persister, events event.Publisher, log *zap.Logger) *SessionHandler {
	return &SessionHandler{responder: responder{log: log}, sessions: sessions, persister: p, events: events}
}

// Routes mounts the session endpoints under r, relative to /v1/sessions.
func (h *SessionHandler) Routes(r chi.Router) {
	r.Post("/", h.CreateSession)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Post("/tab", h.SelectTab)
		r.Post("/sections/move", h.MoveSection)
		r.Post("/columns/move", h.MoveColumn)
		r.Post("/fields/move", h.MoveField)
		r.Patch("/fields/{fieldname}", h.UpdateField)
		r.Put("/width", h.SetWidth)
		r.Get("/changes", h.Changes)
		r.Post("/commit", h.Commit)
		r.Post("/revert", h.Revert)
		r.Get("/preview", h.Preview)
		r.Get("/export", h.Export)
	})
}

type sessionView struct {
	Session   editor.Info        `json:"session"`
	Structure *layout.RenderTree `json:"structure"`
}

type changesView struct {
	Changes     types.ChangeSet `json:"changes"`
	ChangeCount int             `json:"change_count"`
	State       layout.State    `json:"state"`
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

type createSessionRequest struct {
	Doctype string `json:"doctype"`
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if req.Doctype == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_DOCTYPE", "doctype is required")
		return
	}
	e, err := h.sessions.Open(r.Context(), req.Doctype)
	if err != nil {
		h.errorToHTTP(w, err)
		return
	}
	var view sessionView
	err = h.sessions.With(e.ID, func(e *editor.Entry, s *layout.Session) error {
		view = sessionView{Session: e.Snapshot(s.State()), Structure: s.Structure()}
		h.publish(r.Context(), event.NewLayoutLoaded(event.LayoutLoadedPayload{
			Doctype:     req.Doctype,
			SessionID:   e.ID,
			TotalFields: s.Total(),
		}))
		return nil
	})
	if err != nil {
		h.errorToHTTP(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(*editor.Entry, *layout.Session) error { return nil })
}

func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.sessions.Remove(id) {
		h.writeError(w, http.StatusNotFound, "NOT_FOUND", "editing session not found: "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Structure edits
// ---------------------------------------------------------------------------

type selectTabRequest struct {
	Tab int `json:"tab"`
}

func (h *SessionHandler) SelectTab(w http.ResponseWriter, r *http.Request) {
	var req selectTabRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutate(w, r, func(_ *editor.Entry, s *layout.Session) error {
		return s.SelectTab(req.Tab)
	})
}

type moveSectionRequest struct {
	Tab  *int `json:"tab"`
	From int  `json:"from"`
	To   int  `json:"to"`
}

func (h *SessionHandler) MoveSection(w http.ResponseWriter, r *http.Request) {
	var req moveSectionRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutate(w, r, func(_ *editor.Entry, s *layout.Session) error {
		return s.MoveSection(tabOf(s, req.Tab), req.From, req.To)
	})
}

type moveColumnRequest struct {
	Tab     *int `json:"tab"`
	Section int  `json:"section"`
	From    int  `json:"from"`
	To      int  `json:"to"`
}

func (h *SessionHandler) MoveColumn(w http.ResponseWriter, r *http.Request) {
	var req moveColumnRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutate(w, r, func(_ *editor.Entry, s *layout.Session) error {
		return s.MoveColumn(layout.SectionRef{Tab: tabOf(s, req.Tab), Section: req.Section}, req.From, req.To)
	})
}

type moveFieldRequest struct {
	Field   string `json:"field"`
	Tab     *int   `json:"tab"`
	Section int    `json:"section"`
	Column  int    `json:"column"`
	Index   int    `json:"index"`
}

func (h *SessionHandler) MoveField(w http.ResponseWriter, r *http.Request) {
	var req moveFieldRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Field == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_FIELD", "field is required")
		return
	}
	h.mutate(w, r, func(_ *editor.Entry, s *layout.Session) error {
		dst := layout.ColumnRef{Tab: tabOf(s, req.Tab), Section: req.Section, Column: req.Column}
		return s.MoveField(req.Field, dst, req.Index)
	})
}

// UpdateField applies property edits to one descriptor. A rejected edit
// leaves the descriptor untouched. A null value clears the property.
func (h *SessionHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	fieldname := chi.URLParam(r, "fieldname")
	var props map[string]any
	if !h.decode(w, r, &props) {
		return
	}
	if len(props) == 0 {
		h.writeError(w, http.StatusBadRequest, "EMPTY_UPDATE", "no properties to update")
		return
	}
	for p, v := range props {
		props[p] = wholeNumbers(v)
	}

	h.mutate(w, r, func(_ *editor.Entry, s *layout.Session) error {
		return s.UpdateFieldProperties(fieldname, props)
	})
}

type setWidthRequest struct {
	Tab     *int `json:"tab"`
	Section int  `json:"section"`
	Column  int  `json:"column"`
	Width   int  `json:"width"`
}

func (h *SessionHandler) SetWidth(w http.ResponseWriter, r *http.Request) {
	var req setWidthRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutate(w, r, func(_ *editor.Entry, s *layout.Session) error {
		return s.SetColumnWidth(layout.SectionRef{Tab: tabOf(s, req.Tab), Section: req.Section}, req.Column, req.Width)
	})
}

// ---------------------------------------------------------------------------
// Reconciliation
// ---------------------------------------------------------------------------

func (h *SessionHandler) Changes(w http.ResponseWriter, r *http.Request) {
	var view changesView
	err := h.sessions.With(chi.URLParam(r, "id"), func(_ *editor.Entry, s *layout.Session) error {
		cs, err := s.ChangeSet()
		if err != nil {
			return err
		}
		view = changesView{Changes: cs, ChangeCount: cs.Len(), State: s.State()}
		return nil
	})
	if err != nil {
		h.errorToHTTP(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *SessionHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var view changesView
	err := h.sessions.With(chi.URLParam(r, "id"), func(e *editor.Entry, s *layout.Session) error {
		cs, err := s.Commit(r.Context(), h.persister)
		if err != nil {
			return err
		}
		view = changesView{Changes: cs, ChangeCount: cs.Len(), State: s.State()}
		if len(cs) > 0 {
			h.publish(r.Context(), event.NewLayoutCommitted(event.LayoutCommittedPayload{
				Doctype:     s.Doctype(),
				SessionID:   e.ID,
				ChangeCount: cs.Len(),
				ChangedIDs:  cs.IDs(),
			}))
		}
		return nil
	})
	if err != nil {
		h.errorToHTTP(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *SessionHandler) Revert(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(e *editor.Entry, s *layout.Session) error {
		if err := s.Revert(); err != nil {
			return err
		}
		h.publish(r.Context(), event.NewLayoutReverted(event.LayoutRevertedPayload{
			Doctype:   s.Doctype(),
			SessionID: e.ID,
		}))
		return nil
	})
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

func (h *SessionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var out string
	err := h.sessions.With(chi.URLParam(r, "id"), func(_ *editor.Entry, s *layout.Session) error {
		if s.State() == layout.StateEmpty {
			return layout.ErrNotLoaded
		}
		out = preview.Render(s.Structure())
		return nil
	})
	if err != nil {
		h.errorToHTTP(w, err)
		return
	}
	h.writeText(w, "text/plain; charset=utf-8", out)
}

func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	var out string
	err := h.sessions.With(chi.URLParam(r, "id"), func(_ *editor.Entry, s *layout.Session) error {
		if s.State() == layout.StateEmpty {
			return layout.ErrNotLoaded
		}
		var err error
		out, err = preview.Markdown(s.Doctype(), s.Flatten())
		return err
	})
	if err != nil {
		h.errorToHTTP(w, err)
		return
	}
	h.writeText(w, "text/markdown; charset=utf-8", out)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// mutate runs fn on the session named by the id path parameter and
// responds with the session and its structure.
func (h *SessionHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(*editor.Entry, *layout.Session) error) {
	var view sessionView
	err := h.sessions.With(chi.URLParam(r, "id"), func(e *editor.Entry, s *layout.Session) error {
		if err := fn(e, s); err != nil {
			return err
		}
		view = sessionView{Session: e.Snapshot(s.State()), Structure: s.Structure()}
		return nil
	})
	if err != nil {
		h.errorToHTTP(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *SessionHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(r, v); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return false
	}
	return true
}

func (h *SessionHandler) publish(ctx context.Context, evt event.DomainEvent) {
	if h.events != nil {
		h.events.Publish(ctx, evt)
	}
}

func tabOf(s *layout.Session, tab *int) int {
	if tab != nil {
		return *tab
	}
	return s.CurrentTab()
}
