// Package memory implements repository.HistoryRepository with a plain slice.
package memory

import (
	"context"
	"sync"

	"github.com/sakif/devhelper-ai/internal/model"
	"github.com/sakif/devhelper-ai/internal/repository"
)

var _ repository.HistoryRepository = (*Store)(nil)

// Store is a session's history held in process memory.
type Store struct {
	mu      sync.RWMutex
	entries []model.HistoryEntry
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Prepend inserts entry at the front and trims to limit if limit > 0.
func (s *Store) Prepend(_ context.Context, entry model.HistoryEntry, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Build a new slice instead of shifting in place: List hands out copies,
	// but this keeps the backing array private even if that ever changes.
	next := make([]model.HistoryEntry, 0, len(s.entries)+1)
	next = append(next, entry)
	next = append(next, s.entries...)
	if limit > 0 && len(next) > limit {
		next = next[:limit]
	}
	s.entries = next
	return nil
}

// List returns a copy of the entries, newest first.
func (s *Store) List(_ context.Context) ([]model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}
