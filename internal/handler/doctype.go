package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matthewbaird/formlayout/internal/doctype"
	"github.com/matthewbaird/formlayout/internal/layout"
	"github.com/matthewbaird/formlayout/internal/store"
	"github.com/matthewbaird/formlayout/internal/types"
)

const maxBodyBytes = 8 << 20

// DoctypeHandler serves doctype field lists, imports and history.
type DoctypeHandler struct {
	responder
	store     store.Store
	validator *doctype.Validator
}

// NewDoctypeHandler creates a DoctypeHandler.
func NewDoctypeHandler(st store.Store, v *doctype.Validator, log *zap.Logger) *DoctypeHandler {
	return &DoctypeHandler{responder: responder{log: log}, store: st, validator: v}
}

// Routes mounts the doctype endpoints under r, relative to /v1/doctypes.
func (h *DoctypeHandler) Routes(r chi.Router) {
	r.Get("/", h.ListDoctypes)
	r.Route("/{name}", func(r chi.Router) {
		r.Get("/", h.GetDoctype)
		r.Put("/", h.ImportDoctype)
		r.Post("/validate", h.ValidateDoctype)
		r.Get("/history", h.History)
	})
}

type doctypeResponse struct {
	Fields      types.FieldList `json:"fields"`
	TotalFields int             `json:"total_fields"`
	DoctypeName string          `json:"doctype_name"`
}

// ListDoctypes returns the names of all imported doctypes.
func (h *DoctypeHandler) ListDoctypes(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.Doctypes(r.Context())
	if err != nil {
		h.errorToHTTP(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"doctypes": names})
}

// GetDoctype returns the current field list, committed changes applied.
func (h *DoctypeHandler) GetDoctype(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	list, total, err := h.store.Load(r.Context(), name)
	if err != nil {
		h.errorToHTTP(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doctypeResponse{Fields: list, TotalFields: total, DoctypeName: name})
}

// ImportDoctype replaces the base fields of a doctype. The body is a JSON
// array of field objects; bookkeeping keys and empty values are dropped.
// Re-imports may not drop fields the doctype already has.
func (h *DoctypeHandler) ImportDoctype(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	base, ok := h.currentFields(w, r, name)
	if !ok {
		return
	}

	report := h.validator.ValidateJSON(body, base)
	if !report.Valid {
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  report.Summary(),
			"code":   "INVALID_DOCTYPE",
			"report": report,
		})
		return
	}

	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	list := doctype.Normalize(raw)
	if err := layout.CheckStructure(list); err != nil {
		h.errorToHTTP(w, err)
		return
	}
	if err := h.store.ImportBase(r.Context(), name, list); err != nil {
		h.errorToHTTP(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"doctype_name": name,
		"total_fields": len(list),
		"warnings":     report.Warnings,
	})
}

// ValidateDoctype checks a proposed field list without storing it. When
// the doctype exists, dropping any of its fields is an error.
func (h *DoctypeHandler) ValidateDoctype(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	base, ok := h.currentFields(w, r, name)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.validator.ValidateJSON(body, base))
}

// History lists the commits of a doctype, newest first.
func (h *DoctypeHandler) History(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	commits, err := h.store.History(r.Context(), name, parseLimit(r, 20, 100))
	if err != nil {
		h.errorToHTTP(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"doctype_name": name, "commits": commits})
}

func (h *DoctypeHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return nil, false
	}
	return body, true
}

// currentFields returns the stored list of a doctype, or nil when the
// doctype does not exist yet.
func (h *DoctypeHandler) currentFields(w http.ResponseWriter, r *http.Request, name string) (types.FieldList, bool) {
	list, _, err := h.store.Load(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, true
	}
	if err != nil {
		h.errorToHTTP(w, err)
		return nil, false
	}
	return list, true
}
