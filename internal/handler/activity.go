package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matthewbaird/formlayout/internal/activity"
)

// ActivityHandler serves the editing-activity feed.
type ActivityHandler struct {
	responder
	store activity.Store
}

// Routes mounts the activity endpoints under r, relative to /v1/activity.
func (h *ActivityHandler) Routes(r chi.Router) {
	r.Get("/doctypes/{name}", h.DoctypeActivity)
	r.Get("/search", h.Search)
}

// NewActivityHandler creates an ActivityHandler.
func NewActivityHandler(store activity.Store, log *zap.Logger) *ActivityHandler {
	return &ActivityHandler{responder: responder{log: log}, store: store}
}

// DoctypeActivity returns the activity feed of one doctype, newest first.
// GET /v1/activity/doctypes/{name}?since=&until=&types=&limit=&cursor=
func (h *ActivityHandler) DoctypeActivity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	q := r.URL.Query()

	opts := activity.DefaultQueryOptions()
	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "INVALID_PARAM", "since must be an RFC 3339 time")
			return
		}
		opts.Since = &t
	}
	if u := q.Get("until"); u != "" {
		t, err := time.Parse(time.RFC3339, u)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "INVALID_PARAM", "until must be an RFC 3339 time")
			return
		}
		opts.Until = &t
	}
	if types := q.Get("types"); types != "" {
		opts.EventTypes = strings.Split(types, ",")
	}
	opts.Limit = parseLimit(r, 100, 500)
	opts.Cursor = q.Get("cursor")

	entries, next, total, err := h.store.QueryByDoctype(r.Context(), name, opts)
	if err != nil {
		h.errorToHTTP(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"doctype_name": name,
		"activities":   nonNil(entries),
		"next_cursor":  next,
		"total_count":  total,
	})
}

// Search matches activity summaries.
// GET /v1/activity/search?q=&doctype=&limit=
func (h *ActivityHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "q is required")
		return
	}
	opts := activity.SearchOptions{
		Doctype: r.URL.Query().Get("doctype"),
		Limit:   parseLimit(r, 20, 100),
	}
	entries, total, err := h.store.Search(r.Context(), query, opts)
	if err != nil {
		h.errorToHTTP(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"activities":  nonNil(entries),
		"total_count": total,
	})
}

func nonNil(entries []activity.Entry) []activity.Entry {
	if entries == nil {
		return []activity.Entry{}
	}
	return entries
}
