package model

import (
	"time"
	"unicode/utf8"
)

// PreviewLength is how many characters of code a history entry displays.
const PreviewLength = 50

// previewMarker is appended to a preview that was cut short.
const previewMarker = "..."

// HistoryEntry is one past submission (or manual save) shown on the History tab.
//
// Preview is only for display. Code keeps the full original text so that
// reloading an entry puts back exactly what the user typed.
//
// Entries are never modified after creation — the store only prepends and
// trims its tail.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Language  Language  `json:"language"`
	Preview   string    `json:"code"`
	Code      string    `json:"fullCode"`
	CreatedAt time.Time `json:"timestamp"`
}

// NewHistoryEntry builds an entry for code submitted in lang.
// The caller supplies the ID and creation time so tests stay deterministic.
func NewHistoryEntry(id string, code string, lang Language, createdAt time.Time) HistoryEntry {
	return HistoryEntry{
		ID:        id,
		Language:  lang,
		Preview:   Preview(code),
		Code:      code,
		CreatedAt: createdAt,
	}
}

// Preview returns the first PreviewLength characters of code, with "..."
// appended when code is longer.
//
// Characters are counted as runes, not bytes, so multi-byte text is never
// cut in the middle of a character.
func Preview(code string) string {
	if utf8.RuneCountInString(code) <= PreviewLength {
		return code
	}
	runes := []rune(code)
	return string(runes[:PreviewLength]) + previewMarker
}
