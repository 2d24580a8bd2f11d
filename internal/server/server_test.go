package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/matthewbaird/formlayout/internal/store"
	"github.com/matthewbaird/formlayout/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newServer(t *testing.T) *Server {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, st.ImportBase(context.Background(), "Customer", types.FieldList{
		types.NewField("main", types.SectionBreak, map[string]any{types.PropLabel: "Main"}),
		types.NewField("email", "Data", map[string]any{types.PropLabel: "Email"}),
		types.NewField("extra", types.SectionBreak, map[string]any{types.PropLabel: "Extra"}),
		types.NewField("notes", "Text", map[string]any{types.PropLabel: "Notes"}),
	}))
	s, err := New(Config{
		Store:           st,
		Log:             zaptest.NewLogger(t),
		MaxAge:          time.Hour,
		IdleTimeout:     time.Hour,
		CleanupInterval: time.Minute,
	})
	require.NoError(t, err)
	return s
}

func request(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestServer_Routes(t *testing.T) {
	h := newServer(t).Handler()

	rec := request(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = request(t, h, http.MethodGet, "/v1/doctypes", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"doctypes":["Customer"]}`, rec.Body.String())

	rec = request(t, h, http.MethodGet, "/api/repl/keywords", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var kw map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kw))
	assert.Contains(t, kw["verbs"], "move")
	assert.Contains(t, kw["meta_commands"], "help")

	rec = request(t, h, http.MethodGet, "/v1/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CommitMarksOtherSessionsStaleAndIsIndexed(t *testing.T) {
	s := newServer(t)
	h := s.Handler()
	ctx, cancel := context.WithCancel(context.Background())
	s.bus.Start(ctx)
	t.Cleanup(func() {
		cancel()
		s.bus.Stop()
	})

	open := func() string {
		rec := request(t, h, http.MethodPost, "/v1/sessions", `{"doctype":"Customer"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var got struct {
			Session struct {
				ID string `json:"id"`
			} `json:"session"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		return got.Session.ID
	}
	a, b := open(), open()

	rec := request(t, h, http.MethodPost, "/v1/sessions/"+a+"/sections/move", `{"from":1,"to":0}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = request(t, h, http.MethodPost, "/v1/sessions/"+a+"/commit", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Eventually(t, func() bool {
		info, err := s.Sessions().Info(b)
		return err == nil && info.Stale
	}, 2*time.Second, 10*time.Millisecond)

	info, err := s.Sessions().Info(a)
	require.NoError(t, err)
	assert.False(t, info.Stale)

	assert.Eventually(t, func() bool {
		rec := request(t, h, http.MethodGet, "/v1/activity/doctypes/Customer?types=layout_committed", "")
		var feed struct {
			TotalCount int `json:"total_count"`
		}
		return rec.Code == http.StatusOK && json.Unmarshal(rec.Body.Bytes(), &feed) == nil && feed.TotalCount == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	s := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
