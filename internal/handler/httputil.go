// Package handler implements the HTTP API of the layout editor.
package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/matthewbaird/formlayout/internal/editor"
	"github.com/matthewbaird/formlayout/internal/layout"
	"github.com/matthewbaird/formlayout/internal/store"
)

// responder writes JSON responses and logs what cannot be written.
type responder struct {
	log *zap.Logger
}

// writeJSON marshals v as JSON and writes it with the given status code.
func (h responder) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("handler: encode response", zap.Error(err))
	}
}

// writeError writes a structured JSON error response.
func (h responder) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// writeText writes a plain body with the given content type.
func (h responder) writeText(w http.ResponseWriter, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		h.log.Warn("handler: write response", zap.Error(err))
	}
}

// errorToHTTP maps engine, store and session errors to HTTP responses.
func (h responder) errorToHTTP(w http.ResponseWriter, err error) {
	var overflow *layout.GridOverflowError
	if errors.As(err, &overflow) {
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  err.Error(),
			"code":   "GRID_OVERFLOW",
			"total":  overflow.Total,
			"budget": overflow.Budget,
		})
		return
	}
	var loadErr *layout.LoadError
	if errors.As(err, &loadErr) {
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  err.Error(),
			"code":   "INVALID_DOCTYPE",
			"errors": loadErr.Problems,
		})
		return
	}
	if errors.Is(err, editor.ErrNotFound) || errors.Is(err, store.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}

	switch code := layout.ErrorCode(err); code {
	case "INVALID_INDEX", "INVALID_WIDTH", "IMPLICIT_SECTION", "PROTECTED_PROPERTY":
		h.writeError(w, http.StatusBadRequest, code, err.Error())
		return
	case "UNKNOWN_FIELD":
		h.writeError(w, http.StatusNotFound, code, err.Error())
		return
	case "NOT_LOADED":
		h.writeError(w, http.StatusConflict, code, err.Error())
		return
	}

	h.log.Error("handler: internal error", zap.Error(err))
	h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseLimit extracts a positive limit query parameter, capped at ceiling.
func parseLimit(r *http.Request, def, ceiling int) int {
	n := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}
	return min(n, ceiling)
}

// wholeNumbers turns JSON numbers without a fraction into ints, the form
// descriptor lists carry them in.
func wholeNumbers(v any) any {
	if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int(f)
	}
	return v
}
