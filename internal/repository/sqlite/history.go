package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/devhelper-ai/internal/model"
	"github.com/sakif/devhelper-ai/internal/repository"
)

var _ repository.HistoryRepository = (*SessionHistory)(nil)

// SessionHistory is one session's slice of the shared history table.
type SessionHistory struct {
	db        *DB
	sessionID string
}

// ForSession returns the history view for sessionID.
// Views are cheap; nothing is created until the first Prepend.
func (db *DB) ForSession(sessionID string) *SessionHistory {
	return &SessionHistory{db: db, sessionID: sessionID}
}

// Prepend inserts entry and, if limit > 0, deletes everything older than
// the newest limit rows of this session. Both run in one transaction so a
// reader never sees the history over its bound.
func (h *SessionHistory) Prepend(ctx context.Context, entry model.HistoryEntry, limit int) error {
	tx, err := h.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning prepend: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO history_entries (id, session_id, language, preview, code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID,
		h.sessionID,
		string(entry.Language),
		entry.Preview,
		entry.Code,
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting history entry: %w", err)
	}

	if limit > 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM history_entries
			 WHERE session_id = ?
			   AND seq NOT IN (
			     SELECT seq FROM history_entries
			     WHERE session_id = ?
			     ORDER BY seq DESC
			     LIMIT ?
			   )`,
			h.sessionID, h.sessionID, limit,
		)
		if err != nil {
			return fmt.Errorf("sqlite: trimming history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing prepend: %w", err)
	}
	return nil
}

// List returns the session's entries, newest first.
func (h *SessionHistory) List(ctx context.Context) ([]model.HistoryEntry, error) {
	rows, err := h.db.conn.QueryContext(ctx,
		`SELECT id, language, preview, code, created_at
		 FROM history_entries
		 WHERE session_id = ?
		 ORDER BY seq DESC`,
		h.sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing history: %w", err)
	}
	defer rows.Close()

	entries := []model.HistoryEntry{}
	for rows.Next() {
		var (
			e    model.HistoryEntry
			lang string
		)
		if err := rows.Scan(&e.ID, &lang, &e.Preview, &e.Code, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning history row: %w", err)
		}
		e.Language = model.Language(lang)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating history: %w", err)
	}

	return entries, nil
}
