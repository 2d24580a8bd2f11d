// Package repl provides the WebSocket-based REPL for the Layout Command
// Language.
package repl

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matthewbaird/formlayout/internal/editor"
	"github.com/matthewbaird/formlayout/internal/event"
	"github.com/matthewbaird/formlayout/internal/repl/autocomplete"
	"github.com/matthewbaird/formlayout/internal/repl/executor"
	"github.com/matthewbaird/formlayout/internal/repl/lcl"
	"github.com/matthewbaird/formlayout/internal/repl/meta"
	"github.com/matthewbaird/formlayout/internal/repl/wire"
)

// Store is what the REPL needs from persistence.
type Store interface {
	executor.Store
	meta.Lister
}

// RegisterRoutes registers REPL HTTP and WebSocket routes on the given
// router. REPL connections share editing sessions with the HTTP API.
func RegisterRoutes(r chi.Router, sessions *editor.Manager, st Store, events event.Publisher, log *zap.Logger) {
	exec := executor.New(st, events)
	ac := autocomplete.New()
	metaHandler := meta.New(st)

	wsHandler := wire.NewHandler(sessions, exec, ac, metaHandler, st, log)

	r.Route("/api/repl", func(r chi.Router) {
		r.Get("/ws", wsHandler.ServeHTTP)

		// Keywords and meta-commands, for editor syntax highlighting.
		r.Get("/keywords", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string][]string{
				"verbs":         lcl.Verbs,
				"meta_commands": meta.Commands(),
			})
		})
	})
}
