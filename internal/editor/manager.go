// Package editor manages the lifecycle of editing sessions shared by the
// HTTP API and the REPL.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/formlayout/internal/layout"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("editing session not found")

// Entry is one editing session. The layout session is reached only
// through Manager.With, which serializes callers.
type Entry struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex // guards session and history
	session *layout.Session
	history []string

	meta         sync.Mutex // guards the fields below
	doctype      string
	lastActiveAt time.Time
	stale        bool
}

// Info is a point-in-time view of an entry.
type Info struct {
	ID           string       `json:"id"`
	Doctype      string       `json:"doctype"`
	State        layout.State `json:"state"`
	Stale        bool         `json:"stale"`
	CreatedAt    time.Time    `json:"created_at"`
	LastActiveAt time.Time    `json:"last_active_at"`
}

// AddHistory appends a statement to the entry's command history. Call it
// from inside With.
func (e *Entry) AddHistory(stmt string) {
	e.history = append(e.history, stmt)
}

// History returns the command history. Call it from inside With.
func (e *Entry) History() []string {
	return append([]string(nil), e.history...)
}

// Stale reports whether another session committed the same doctype since
// this one loaded it.
func (e *Entry) Stale() bool {
	e.meta.Lock()
	defer e.meta.Unlock()
	return e.stale
}

// ClearStale resets the stale flag after the document was reloaded.
func (e *Entry) ClearStale() {
	e.meta.Lock()
	e.stale = false
	e.meta.Unlock()
}

// Snapshot returns the entry's metadata with the given session state.
func (e *Entry) Snapshot(state layout.State) Info {
	e.meta.Lock()
	defer e.meta.Unlock()
	return Info{
		ID:           e.ID,
		Doctype:      e.doctype,
		State:        state,
		Stale:        e.stale,
		CreatedAt:    e.CreatedAt,
		LastActiveAt: e.lastActiveAt,
	}
}

func (e *Entry) expired(now time.Time, maxAge, idle time.Duration) bool {
	e.meta.Lock()
	defer e.meta.Unlock()
	return now.Sub(e.CreatedAt) > maxAge || now.Sub(e.lastActiveAt) > idle
}

// Manager handles session creation, lookup and cleanup.
type Manager struct {
	mu          sync.RWMutex
	entries     map[string]*Entry
	loader      layout.Loader
	maxAge      time.Duration
	idleTimeout time.Duration
	now         func() time.Time
}

// NewManager creates a session manager with the given timeouts.
func NewManager(loader layout.Loader, maxAge, idleTimeout time.Duration) *Manager {
	return &Manager{
		entries:     make(map[string]*Entry),
		loader:      loader,
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Create registers an entry with an empty session.
func (m *Manager) Create() *Entry {
	now := m.now()
	e := &Entry{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		session:      layout.NewSession(),
		lastActiveAt: now,
	}
	m.mu.Lock()
	m.entries[e.ID] = e
	m.mu.Unlock()
	return e
}

// Open creates an entry and loads the doctype into it. Nothing is
// registered when the load fails.
func (m *Manager) Open(ctx context.Context, doctype string) (*Entry, error) {
	s := layout.NewSession()
	if err := s.LoadFrom(ctx, m.loader, doctype); err != nil {
		return nil, err
	}
	now := m.now()
	e := &Entry{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		session:      s,
		doctype:      doctype,
		lastActiveAt: now,
	}
	m.mu.Lock()
	m.entries[e.ID] = e
	m.mu.Unlock()
	return e, nil
}

// Get retrieves a live entry. Expired entries are removed.
func (m *Manager) Get(id string) (*Entry, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.expired(m.now(), m.maxAge, m.idleTimeout) {
		m.Remove(id)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// With runs fn with exclusive access to the entry's layout session and
// marks the entry active.
func (m *Manager) With(id string, fn func(e *Entry, s *layout.Session) error) error {
	e, err := m.Get(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	err = fn(e, e.session)

	e.meta.Lock()
	e.lastActiveAt = m.now()
	e.doctype = e.session.Doctype()
	e.meta.Unlock()
	return err
}

// Info returns a snapshot of the entry.
func (m *Manager) Info(id string) (Info, error) {
	var info Info
	err := m.With(id, func(e *Entry, s *layout.Session) error {
		info = e.Snapshot(s.State())
		return nil
	})
	return info, err
}

// Loader returns the collaborator sessions load through.
func (m *Manager) Loader() layout.Loader { return m.loader }

// Remove deletes an entry and reports whether it existed.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[id]
	delete(m.entries, id)
	return ok
}

// MarkStale flags every entry on doctype except exceptID and returns how
// many were flagged.
func (m *Manager) MarkStale(doctype, exceptID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for id, e := range m.entries {
		if id == exceptID {
			continue
		}
		e.meta.Lock()
		if e.doctype == doctype {
			e.stale = true
			n++
		}
		e.meta.Unlock()
	}
	return n
}

// Cleanup removes all expired and idle entries and returns how many were
// removed. Called periodically.
func (m *Manager) Cleanup() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.entries {
		if e.expired(now, m.maxAge, m.idleTimeout) {
			delete(m.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of registered entries.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
