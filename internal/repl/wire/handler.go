package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/matthewbaird/formlayout/internal/editor"
	"github.com/matthewbaird/formlayout/internal/layout"
	"github.com/matthewbaird/formlayout/internal/repl/autocomplete"
	"github.com/matthewbaird/formlayout/internal/repl/executor"
	"github.com/matthewbaird/formlayout/internal/repl/lcl"
	"github.com/matthewbaird/formlayout/internal/repl/meta"
	"github.com/matthewbaird/formlayout/internal/store"
)

// Handler manages WebSocket connections for the REPL.
type Handler struct {
	sessions     *editor.Manager
	executor     *executor.Executor
	autocomplete *autocomplete.Engine
	meta         *meta.Handler
	doctypes     meta.Lister
	log          *zap.Logger
}

// NewHandler creates a WebSocket handler with all dependencies.
func NewHandler(
	sessions *editor.Manager,
	exec *executor.Executor,
	ac *autocomplete.Engine,
	metaHandler *meta.Handler,
	doctypes meta.Lister,
	log *zap.Logger,
) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		sessions:     sessions,
		executor:     exec,
		autocomplete: ac,
		meta:         metaHandler,
		doctypes:     doctypes,
		log:          log,
	}
}

// ServeHTTP upgrades to WebSocket and runs the message loop. A "session"
// query parameter attaches to an existing editing session; otherwise a new
// one is created and removed when the connection closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn("repl: websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	id, resumed, err := h.attach(r.URL.Query().Get("session"))
	if err != nil {
		h.sendError(ctx, conn, "", err)
		conn.Close(websocket.StatusPolicyViolation, "unknown session")
		return
	}
	if !resumed {
		defer h.sessions.Remove(id)
	}
	log := h.log.With(zap.String("session", id))
	log.Debug("repl: connected", zap.Bool("resumed", resumed))

	info, _ := h.sessions.Info(id)
	h.send(ctx, conn, ServerMessage{
		Type: TypeSession,
		Data: SessionData{SessionID: id, Doctype: info.Doctype, Resumed: resumed},
	})

	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Debug("repl: connection closed", zap.Int("status", int(websocket.CloseStatus(err))))
			}
			return
		}

		switch msg.Type {
		case TypeExecute:
			h.handleExecute(ctx, conn, id, msg)
		case TypeAutocomplete:
			h.handleAutocomplete(ctx, conn, id, msg)
		case TypePing:
			h.send(ctx, conn, ServerMessage{Type: TypePong, RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, &codedError{"unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type)})
		}
	}
}

func (h *Handler) attach(id string) (string, bool, error) {
	if id == "" {
		return h.sessions.Create().ID, false, nil
	}
	if _, err := h.sessions.Get(id); err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (h *Handler) handleExecute(ctx context.Context, conn *websocket.Conn, id string, msg ClientMessage) {
	start := time.Now()

	var data ExecuteData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, &codedError{"invalid_data", "invalid execute data"})
		return
	}
	if data.LCL == "" {
		h.sendError(ctx, conn, msg.ID, &codedError{"empty_input", "empty statement"})
		return
	}

	stmts, parseErrs := lcl.Parse(data.LCL)
	if len(parseErrs) > 0 {
		h.sendError(ctx, conn, msg.ID, parseErrs[0])
		return
	}
	if len(stmts) == 0 {
		h.sendError(ctx, conn, msg.ID, &codedError{"empty_input", "no statements found"})
		return
	}

	var (
		out  []ServerMessage
		done DoneData
	)
	err := h.sessions.With(id, func(e *editor.Entry, s *layout.Session) error {
		e.AddHistory(data.LCL)
		for _, stmt := range stmts {
			m, err := h.run(ctx, e, s, stmt)
			if err != nil {
				return err
			}
			out = append(out, m)
			done.Statements++
		}
		return nil
	})

	for _, m := range out {
		m.RequestID = msg.ID
		h.send(ctx, conn, m)
	}
	if err != nil {
		h.sendError(ctx, conn, msg.ID, err)
		return
	}

	info, _ := h.sessions.Info(id)
	done.State = info.State
	done.Stale = info.Stale
	done.Elapsed = time.Since(start).String()
	h.send(ctx, conn, ServerMessage{Type: TypeDone, RequestID: msg.ID, Data: done})
}

// run executes one statement and converts its result to a message.
func (h *Handler) run(ctx context.Context, e *editor.Entry, s *layout.Session, stmt lcl.Statement) (ServerMessage, error) {
	if mc, ok := stmt.(*lcl.MetaCmdStmt); ok {
		res, err := h.meta.Execute(ctx, e, s, mc.Command, mc.Args)
		if err != nil {
			return ServerMessage{}, &codedError{"meta_error", err.Error()}
		}
		return ServerMessage{Type: TypeMeta, Data: res}, nil
	}

	res, err := h.executor.Execute(ctx, e.ID, s, stmt)
	if err != nil {
		return ServerMessage{}, err
	}
	if _, ok := stmt.(*lcl.LoadStmt); ok {
		e.ClearStale()
	}
	switch res.Kind {
	case executor.KindStructure:
		return ServerMessage{Type: TypeStructure, Data: StructureData{Message: res.Message, Structure: res.Structure}}, nil
	case executor.KindChanges:
		return ServerMessage{Type: TypeChanges, Data: ChangesData{Message: res.Message, Changes: res.Changes}}, nil
	}
	return ServerMessage{Type: TypeMessage, Data: MessageData{Message: res.Message}}, nil
}

func (h *Handler) handleAutocomplete(ctx context.Context, conn *websocket.Conn, id string, msg ClientMessage) {
	var data AutocompleteData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, &codedError{"invalid_data", "invalid autocomplete data"})
		return
	}

	var c autocomplete.Context
	if names, err := h.doctypes.Doctypes(ctx); err == nil {
		c.Doctypes = names
	} else {
		h.log.Warn("repl: listing doctypes", zap.Error(err))
	}
	err := h.sessions.With(id, func(_ *editor.Entry, s *layout.Session) error {
		c.Fields = s.Flatten()
		return nil
	})
	if err != nil {
		h.sendError(ctx, conn, msg.ID, err)
		return
	}

	items := h.autocomplete.Complete(data.LCL, data.Cursor, c)
	if items == nil {
		items = []autocomplete.CompletionItem{}
	}
	h.send(ctx, conn, ServerMessage{
		Type:      TypeCompletions,
		RequestID: msg.ID,
		Data:      CompletionsData{Items: items},
	})
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.log.Debug("repl: write error", zap.Error(err))
	}
}

// codedError is a protocol error with an explicit code.
type codedError struct {
	code    string
	message string
}

func (e *codedError) Error() string { return e.message }

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID string, err error) {
	data := ErrorData{Code: "exec_error", Message: err.Error()}

	var coded *codedError
	var parseErr *lcl.ParseError
	switch {
	case errors.As(err, &coded):
		data.Code = coded.code
	case errors.As(err, &parseErr):
		data.Code = "parse_error"
		data.Message = parseErr.Message
		data.Line = parseErr.Line
		data.Col = parseErr.Col
		data.Suggestion = parseErr.Suggestion
	case errors.Is(err, editor.ErrNotFound), errors.Is(err, store.ErrNotFound):
		data.Code = "not_found"
	default:
		if code := layout.ErrorCode(err); code != "" {
			data.Code = code
		}
	}
	h.send(ctx, conn, ServerMessage{Type: TypeError, RequestID: requestID, Data: data})
}
