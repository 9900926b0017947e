// Package database provides audit record persistence. The in-memory store
// backs tests and local development; the Postgres store backs production.
package database

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pageaudit/pageaudit/internal/audit"
)

// MemoryStore keeps audit records in process memory. It is safe for
// concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]audit.Result
	ids     IDSource
}

// IDSource produces record IDs for Save.
type IDSource interface {
	NewID() (string, error)
}

// NewMemoryStore builds an empty MemoryStore using ids for record IDs.
func NewMemoryStore(ids IDSource) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]audit.Result),
		ids:     ids,
	}
}

// Save stores the result under a fresh ID unless the result already carries
// one, and returns the ID.
func (s *MemoryStore) Save(_ context.Context, result audit.Result) (string, error) {
	if result.ID == "" {
		id, err := s.ids.NewID()
		if err != nil {
			return "", err
		}
		result.ID = id
	}
	s.mu.Lock()
	s.records[result.ID] = result
	s.mu.Unlock()
	return result.ID, nil
}

// Get returns the record or audit.ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (audit.Result, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return audit.Result{}, audit.ErrNotFound
	}
	return rec, nil
}

// List returns summaries matching the filters, newest first.
func (s *MemoryStore) List(_ context.Context, filters audit.ListFilters) ([]audit.Summary, error) {
	s.mu.RLock()
	out := make([]audit.Summary, 0, len(s.records))
	for _, rec := range s.records {
		if !matches(rec, filters) {
			continue
		}
		out = append(out, audit.Summary{
			ID:        rec.ID,
			URL:       rec.URL,
			Overall:   rec.Overall,
			UserID:    rec.UserID,
			CreatedAt: rec.CreatedAt,
		})
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes the record and reports whether it existed.
func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	_, ok := s.records[id]
	delete(s.records, id)
	s.mu.Unlock()
	return ok, nil
}

func matches(rec audit.Result, f audit.ListFilters) bool {
	if f.URLSubstring != "" && !strings.Contains(rec.URL, f.URLSubstring) {
		return false
	}
	if f.MinScore > 0 && rec.Overall < f.MinScore {
		return false
	}
	if f.UserID != "" && rec.UserID != f.UserID {
		return false
	}
	if !f.DateFrom.IsZero() && rec.CreatedAt.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && rec.CreatedAt.After(f.DateTo) {
		return false
	}
	return true
}
