// Package service contains the business logic layer of the application.
//
// THE SUBMISSION LIFECYCLE:
// AnalysisController turns one user submission into exactly one call to the
// model and records what happened:
//
//	Idle → Busy → {Success, Failed} → Idle
//
// Success stores the reply and prepends a history entry. Failure stores a
// single user-facing message and leaves history alone. Either way the
// controller is Idle again once the outcome is stored — there is no
// separate "review" state.
//
// The controller knows nothing about HTTP or rendering. Handlers call
// Submit/SaveCurrent/LoadEntry and read Snapshot; the same controller could
// back a CLI without changes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/devhelper-ai/internal/apperror"
	"github.com/sakif/devhelper-ai/internal/llm"
	"github.com/sakif/devhelper-ai/internal/model"
	"github.com/sakif/devhelper-ai/internal/repository"
)

// DefaultAutoLimit bounds history entries added after a successful analysis.
const DefaultAutoLimit = 10

// Generator is the outbound model call. *llm.Client implements it.
type Generator interface {
	GenerateContent(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error)
}

// HistoryPolicy sets the history bound for each insertion path.
// A limit of repository.Unbounded (0) keeps everything.
type HistoryPolicy struct {
	// AutoLimit applies when an entry is added after a successful analysis.
	AutoLimit int
	// SaveLimit applies when the user saves explicitly.
	SaveLimit int
}

// DefaultHistoryPolicy keeps the newest 10 entries on analysis and never
// trims on explicit save.
func DefaultHistoryPolicy() HistoryPolicy {
	return HistoryPolicy{
		AutoLimit: DefaultAutoLimit,
		SaveLimit: repository.Unbounded,
	}
}

// AnalysisController owns one user's busy flag, current result, current
// error and history.
//
// CONCURRENCY:
// mu guards busy/result/errMsg only. It is NOT held during the model call —
// that would make Snapshot block for the whole round trip. Instead the busy
// flag itself is the guard: Submit flips it under the lock and a second
// Submit that finds it set is rejected with apperror.ErrBusy.
type AnalysisController struct {
	llm     Generator
	history repository.HistoryRepository
	policy  HistoryPolicy
	logger  *slog.Logger

	// Swapped out in tests.
	now   func() time.Time
	newID func() string

	mu     sync.Mutex
	busy   bool
	result string
	errMsg string
}

// NewAnalysisController creates a controller writing to history.
func NewAnalysisController(gen Generator, history repository.HistoryRepository, policy HistoryPolicy, logger *slog.Logger) *AnalysisController {
	return &AnalysisController{
		llm:     gen,
		history: history,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
		newID:   func() string { return xid.New().String() },
	}
}

// Submit analyses code written in lang.
//
// RETURN VALUES:
//   - empty/whitespace code → Outcome{Status: skipped}, nil. Nothing changes.
//   - unsupported language  → validation error. Nothing changes.
//   - already busy          → apperror.ErrBusy. Nothing changes.
//   - otherwise             → Outcome{Status: success|failed}, nil.
//
// A failed model call is NOT returned as an error: it is an expected outcome,
// converted to a message and stored. The error return is reserved for
// requests the controller refused to run.
func (c *AnalysisController) Submit(ctx context.Context, code string, lang model.Language) (model.Outcome, error) {
	if strings.TrimSpace(code) == "" {
		return model.Outcome{Status: model.StatusSkipped}, nil
	}

	// Pure — building before taking the busy flag means a bad language
	// can't clear the previous result.
	req, err := llm.BuildRequest(code, lang)
	if err != nil {
		return model.Outcome{}, err
	}

	if err := c.begin(); err != nil {
		return model.Outcome{}, err
	}
	defer c.end()

	resp, err := c.llm.GenerateContent(ctx, req)
	if err != nil {
		msg := failureMessage(err)
		c.logger.Error("analysis failed",
			slog.String("language", string(lang)),
			slog.String("error", err.Error()),
		)
		c.store("", msg)
		return model.Outcome{Status: model.StatusFailed, Error: msg}, nil
	}

	text, ok := resp.Text()
	if !ok {
		text = model.NoResponse
	}

	outcome := model.Outcome{Status: model.StatusSuccess, Result: text}

	entry := model.NewHistoryEntry(c.newID(), code, lang, c.now())
	if err := c.history.Prepend(ctx, entry, c.policy.AutoLimit); err != nil {
		// The analysis itself succeeded; losing the history line is not
		// worth hiding the answer.
		c.logger.Error("failed to record history entry",
			slog.String("id", entry.ID),
			slog.String("error", err.Error()),
		)
	} else {
		outcome.Entry = &entry
	}

	c.store(text, "")

	c.logger.Info("analysis completed",
		slog.String("language", string(lang)),
		slog.Int("codeLength", len(code)),
		slog.Int("resultLength", len(text)),
	)

	return outcome, nil
}

// SaveCurrent records code in history without analysing it.
// Returns (nil, nil) for empty code.
func (c *AnalysisController) SaveCurrent(ctx context.Context, code string, lang model.Language) (*model.HistoryEntry, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	if !lang.Valid() {
		return nil, apperror.ValidationFailed("language", "unsupported language: "+string(lang))
	}

	entry := model.NewHistoryEntry(c.newID(), code, lang, c.now())
	if err := c.history.Prepend(ctx, entry, c.policy.SaveLimit); err != nil {
		c.logger.Error("failed to save snippet",
			slog.String("id", entry.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	c.logger.Info("snippet saved", slog.String("id", entry.ID), slog.String("language", string(lang)))
	return &entry, nil
}

// LoadEntry returns what the editor should be repopulated with.
// It reads the full code, never the truncated preview.
func (c *AnalysisController) LoadEntry(entry model.HistoryEntry) (string, model.Language) {
	return entry.Code, entry.Language
}

// Entry finds a history entry by id.
func (c *AnalysisController) Entry(ctx context.Context, id string) (model.HistoryEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.HistoryEntry{}, apperror.ValidationFailed("id", "history entry ID is required")
	}

	entries, err := c.history.List(ctx)
	if err != nil {
		return model.HistoryEntry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return model.HistoryEntry{}, apperror.NotFound("history entry", id)
}

// History returns the entries, newest first.
func (c *AnalysisController) History(ctx context.Context) ([]model.HistoryEntry, error) {
	return c.history.List(ctx)
}

// Busy reports whether a call is in flight.
func (c *AnalysisController) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Snapshot returns a copy of everything the UI displays.
func (c *AnalysisController) Snapshot(ctx context.Context) (model.Snapshot, error) {
	history, err := c.history.List(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return model.Snapshot{
		Busy:    c.busy,
		Result:  c.result,
		Error:   c.errMsg,
		History: history,
	}, nil
}

// begin enters Busy, clearing the previous result and error.
func (c *AnalysisController) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return apperror.Busy("an analysis is already in progress")
	}
	c.busy = true
	c.result = ""
	c.errMsg = ""
	return nil
}

// end returns to Idle. Deferred, so it also runs if the call panics.
func (c *AnalysisController) end() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// store sets the result or the error — callers pass exactly one non-empty.
func (c *AnalysisController) store(result, errMsg string) {
	c.mu.Lock()
	c.result = result
	c.errMsg = errMsg
	c.mu.Unlock()
}

// failureMessage picks the text shown for a failed call: the API's own
// message when it sent one, the generic hint otherwise.
func failureMessage(err error) string {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return model.GenericFailure
}
