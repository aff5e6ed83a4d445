// Package repository declares the storage interfaces the service layer depends on.
// Implementations live in sub-packages (memory, sqlite).
package repository

import (
	"context"

	"github.com/sakif/devhelper-ai/internal/model"
)

// Unbounded passed as a Prepend limit keeps every entry.
const Unbounded = 0

// HistoryRepository is one session's history, most-recent-first.
//
// The only mutation is Prepend — entries are never updated or removed
// except by falling off the tail when a limit is applied.
type HistoryRepository interface {
	// Prepend inserts entry at the front. If limit > 0, the history is then
	// trimmed to at most limit entries, dropping the oldest.
	Prepend(ctx context.Context, entry model.HistoryEntry, limit int) error
	// List returns every entry, newest first.
	List(ctx context.Context) ([]model.HistoryEntry, error)
}
