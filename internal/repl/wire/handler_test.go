package wire

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/matthewbaird/formlayout/internal/editor"
	"github.com/matthewbaird/formlayout/internal/repl/autocomplete"
	"github.com/matthewbaird/formlayout/internal/repl/executor"
	"github.com/matthewbaird/formlayout/internal/repl/meta"
	"github.com/matthewbaird/formlayout/internal/store"
	"github.com/matthewbaird/formlayout/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type received struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

type harness struct {
	url      string
	sessions *editor.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, st.ImportBase(context.Background(), "Customer", types.FieldList{
		types.NewField("main", types.SectionBreak, map[string]any{types.PropLabel: "Main"}),
		types.NewField("email", "Data", map[string]any{types.PropLabel: "Email"}),
		types.NewField("col", types.ColumnBreak, nil),
		types.NewField("phone", "Data", map[string]any{types.PropLabel: "Phone"}),
	}))
	sessions := editor.NewManager(st, time.Hour, time.Hour)
	h := NewHandler(sessions, executor.New(st, nil), autocomplete.New(), meta.New(st), st, zaptest.NewLogger(t))

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &harness{url: "ws" + strings.TrimPrefix(srv.URL, "http"), sessions: sessions}
}

func (h *harness) dial(t *testing.T, query string) (*websocket.Conn, received) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, h.url+query, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn, read(t, conn)
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var msg received
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

func write(t *testing.T, conn *websocket.Conn, typ, id string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: typ, ID: id, Data: raw}))
}

func decode[T any](t *testing.T, msg received) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(msg.Data, &v))
	return v
}

func TestHandler_ExecuteStreamsResults(t *testing.T) {
	h := newHarness(t)
	conn, hello := h.dial(t, "")
	assert.Equal(t, TypeSession, hello.Type)
	assert.False(t, decode[SessionData](t, hello).Resumed)

	write(t, conn, TypeExecute, "r1", ExecuteData{LCL: "load Customer\nmove field email to column 1 section 0\nchanges"})

	loaded := read(t, conn)
	assert.Equal(t, TypeStructure, loaded.Type)
	assert.Equal(t, "r1", loaded.RequestID)
	assert.Contains(t, decode[StructureData](t, loaded).Message, "Loaded Customer")

	assert.Equal(t, TypeStructure, read(t, conn).Type)

	changes := read(t, conn)
	require.Equal(t, TypeChanges, changes.Type)
	assert.Contains(t, decode[ChangesData](t, changes).Changes, "email")

	done := read(t, conn)
	require.Equal(t, TypeDone, done.Type)
	d := decode[DoneData](t, done)
	assert.Equal(t, 3, d.Statements)
	assert.Equal(t, "reconciled", d.State.String())
}

func TestHandler_Errors(t *testing.T) {
	h := newHarness(t)
	conn, _ := h.dial(t, "")

	write(t, conn, TypeExecute, "r1", ExecuteData{LCL: "mvoe section 1 to 0"})
	msg := read(t, conn)
	require.Equal(t, TypeError, msg.Type)
	e := decode[ErrorData](t, msg)
	assert.Equal(t, "parse_error", e.Code)
	assert.Equal(t, 1, e.Line)
	assert.Equal(t, "did you mean 'move'?", e.Suggestion)

	write(t, conn, TypeExecute, "r2", ExecuteData{LCL: "show"})
	assert.Equal(t, "NOT_LOADED", decode[ErrorData](t, read(t, conn)).Code)

	write(t, conn, TypeExecute, "r3", ExecuteData{LCL: "load Customer; move section 0 to 4"})
	assert.Equal(t, TypeStructure, read(t, conn).Type, "statements before the failure still report")
	assert.Equal(t, "INVALID_INDEX", decode[ErrorData](t, read(t, conn)).Code)

	write(t, conn, TypeExecute, "r4", ExecuteData{LCL: `load "Nope"`})
	assert.Equal(t, "not_found", decode[ErrorData](t, read(t, conn)).Code)

	write(t, conn, "bogus", "r5", nil)
	assert.Equal(t, "unknown_type", decode[ErrorData](t, read(t, conn)).Code)
}

func TestHandler_MetaAutocompleteAndPing(t *testing.T) {
	h := newHarness(t)
	conn, _ := h.dial(t, "")

	write(t, conn, TypeExecute, "r1", ExecuteData{LCL: ":doctypes"})
	msg := read(t, conn)
	require.Equal(t, TypeMeta, msg.Type)
	assert.Contains(t, decode[meta.Result](t, msg).Output, "Customer")
	assert.Equal(t, TypeDone, read(t, conn).Type)

	write(t, conn, TypeExecute, "r2", ExecuteData{LCL: "load Customer"})
	read(t, conn)
	read(t, conn)

	write(t, conn, TypeAutocomplete, "r3", AutocompleteData{LCL: "move field em", Cursor: 13})
	msg = read(t, conn)
	require.Equal(t, TypeCompletions, msg.Type)
	items := decode[CompletionsData](t, msg).Items
	require.Len(t, items, 1)
	assert.Equal(t, "email", items[0].Label)

	write(t, conn, TypePing, "r4", nil)
	pong := read(t, conn)
	assert.Equal(t, TypePong, pong.Type)
	assert.Equal(t, "r4", pong.RequestID)
}

func TestHandler_ResumeSharesSession(t *testing.T) {
	h := newHarness(t)
	entry, err := h.sessions.Open(context.Background(), "Customer")
	require.NoError(t, err)

	conn, hello := h.dial(t, "?session="+entry.ID)
	info := decode[SessionData](t, hello)
	assert.True(t, info.Resumed)
	assert.Equal(t, "Customer", info.Doctype)

	write(t, conn, TypeExecute, "r1", ExecuteData{LCL: "show"})
	assert.Equal(t, TypeStructure, read(t, conn).Type)
	read(t, conn)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	time.Sleep(50 * time.Millisecond)
	_, err = h.sessions.Get(entry.ID)
	assert.NoError(t, err, "resumed sessions outlive the connection")
}

func TestHandler_UnknownSessionIsRejected(t *testing.T) {
	h := newHarness(t)
	_, msg := h.dial(t, "?session=missing")
	require.Equal(t, TypeError, msg.Type)
	assert.Equal(t, "not_found", decode[ErrorData](t, msg).Code)
}

func TestHandler_OwnSessionRemovedOnClose(t *testing.T) {
	h := newHarness(t)
	conn, _ := h.dial(t, "")
	require.Equal(t, 1, h.sessions.Len())

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool { return h.sessions.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
