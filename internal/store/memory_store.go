package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/formlayout/internal/types"
)

type overrideKey struct {
	field, property string
}

// MemoryStore implements Store in memory.
// Intended for the CLI and tests; nothing survives the process.
type MemoryStore struct {
	mu        sync.RWMutex
	base      map[string]types.FieldList
	overrides map[string]map[overrideKey]Override
	commits   map[string][]types.Commit
	now       func() time.Time
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		base:      make(map[string]types.FieldList),
		overrides: make(map[string]map[overrideKey]Override),
		commits:   make(map[string][]types.Commit),
		now:       time.Now,
	}
}

func (s *MemoryStore) ImportBase(_ context.Context, doctype string, list types.FieldList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base[doctype] = list.Clone()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, doctype string) (types.FieldList, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	base, ok := s.base[doctype]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, doctype)
	}
	rows := make([]Override, 0, len(s.overrides[doctype]))
	for _, o := range s.overrides[doctype] {
		rows = append(rows, o)
	}
	list := Overlay(base, rows)
	return list, len(list), nil
}

func (s *MemoryStore) Persist(_ context.Context, doctype string, cs types.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.base[doctype]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, doctype)
	}
	m, ok := s.overrides[doctype]
	if !ok {
		m = make(map[overrideKey]Override)
		s.overrides[doctype] = m
	}
	stored := make(types.ChangeSet, len(cs))
	for _, o := range overrides(cs) {
		o.Value = types.CloneValue(o.Value)
		m[overrideKey{o.Field, o.Property}] = o
		stored.Set(o.Field, o.Property, o.Value)
	}
	s.commits[doctype] = append(s.commits[doctype], types.Commit{
		ID:          uuid.New().String(),
		Doctype:     doctype,
		ChangeCount: cs.Len(),
		Changes:     stored,
		CommittedAt: s.now().UTC(),
	})
	return nil
}

func (s *MemoryStore) History(_ context.Context, doctype string, limit int) ([]types.Commit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	commits := s.commits[doctype]
	out := make([]types.Commit, 0, len(commits))
	for i := len(commits) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, commits[i])
	}
	return out, nil
}

func (s *MemoryStore) Doctypes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.base))
	for name := range s.base {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
