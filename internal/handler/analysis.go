package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devhelper-ai/internal/auth"
	"github.com/sakif/devhelper-ai/internal/model"
	"github.com/sakif/devhelper-ai/internal/service"
)

// ControllerSource hands out the controller for a session.
// *session.Manager implements it.
type ControllerSource interface {
	Controller(sessionID string) *service.AnalysisController
}

// AnalysisHandler is the JSON API over a session's controller.
//
// ROUTES:
//
//	GET  /api/languages      → supported labels and the default
//	POST /api/analyze        → Submit
//	GET  /api/history        → history, newest first
//	POST /api/history        → SaveCurrent
//	GET  /api/history/{id}   → LoadEntry
//	GET  /api/state          → Snapshot
type AnalysisHandler struct {
	sessions    ControllerSource
	defaultLang model.Language
	logger      *slog.Logger
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(sessions ControllerSource, defaultLang model.Language, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		sessions:    sessions,
		defaultLang: defaultLang,
		logger:      logger,
	}
}

// snippetRequest is the body of POST /api/analyze and POST /api/history.
// An omitted language means the configured default.
type snippetRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// loadResponse is what the editor needs to repopulate itself.
type loadResponse struct {
	Code     string         `json:"code"`
	Language model.Language `json:"language"`
}

type languagesResponse struct {
	Languages []model.Language `json:"languages"`
	Default   model.Language   `json:"default"`
}

// HandleLanguages lists the supported languages.
//
// HTTP: GET /api/languages
func (h *AnalysisHandler) HandleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, languagesResponse{
		Languages: model.Languages(),
		Default:   h.defaultLang,
	})
}

// HandleAnalyze submits a snippet for analysis.
//
// HTTP: POST /api/analyze
// REQUEST BODY: {"code": "print('hi')", "language": "Python"}
//
// RESPONSES:
//   - 200 {"status":"success","result":"...","entry":{...}}
//   - 502 {"status":"failed","error":"quota exceeded"} — the model call failed
//   - 204 — code was empty, nothing happened
//   - 400 — bad JSON or unsupported language
//   - 409 — this session already has an analysis running
//
// The model call is detached from the request context: if the browser goes
// away mid-call, the call still settles and its result lands in the session
// state, where GET /api/state will find it.
func (h *AnalysisHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSnippet(w, r)
	if !ok {
		return
	}
	ctl, ok := h.controller(w, r)
	if !ok {
		return
	}

	outcome, err := ctl.Submit(context.WithoutCancel(r.Context()), req.Code, h.language(req.Language))
	if err != nil {
		writeError(w, err)
		return
	}

	switch outcome.Status {
	case model.StatusSkipped:
		w.WriteHeader(http.StatusNoContent)
	case model.StatusFailed:
		writeJSON(w, http.StatusBadGateway, outcome)
	default:
		writeJSON(w, http.StatusOK, outcome)
	}
}

// HandleSave adds a snippet to history without analysing it.
//
// HTTP: POST /api/history
// RESPONSES: 201 with the entry, 204 if code was empty, 400 on bad input.
func (h *AnalysisHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSnippet(w, r)
	if !ok {
		return
	}
	ctl, ok := h.controller(w, r)
	if !ok {
		return
	}

	entry, err := ctl.SaveCurrent(r.Context(), req.Code, h.language(req.Language))
	if err != nil {
		writeError(w, err)
		return
	}
	if entry == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// HandleListHistory returns the session's history.
//
// HTTP: GET /api/history
func (h *AnalysisHandler) HandleListHistory(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.controller(w, r)
	if !ok {
		return
	}

	entries, err := ctl.History(r.Context())
	if err != nil {
		h.logger.Error("failed to list history", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleLoadEntry returns the full code and language of one entry.
//
// HTTP: GET /api/history/{id}
func (h *AnalysisHandler) HandleLoadEntry(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.controller(w, r)
	if !ok {
		return
	}

	entry, err := ctl.Entry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	code, lang := ctl.LoadEntry(entry)
	writeJSON(w, http.StatusOK, loadResponse{Code: code, Language: lang})
}

// HandleState returns the session's busy flag, result, error and history.
//
// HTTP: GET /api/state
func (h *AnalysisHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.controller(w, r)
	if !ok {
		return
	}

	snap, err := ctl.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("failed to read state", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *AnalysisHandler) decodeSnippet(w http.ResponseWriter, r *http.Request) (snippetRequest, bool) {
	var req snippetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid snippet JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid JSON body",
		})
		return snippetRequest{}, false
	}
	return req, true
}

// controller finds the caller's controller. The session middleware always
// runs first, so a missing ID is a wiring bug, not a client error.
func (h *AnalysisHandler) controller(w http.ResponseWriter, r *http.Request) (*service.AnalysisController, bool) {
	return controllerFor(h.sessions, h.logger, w, r)
}

func (h *AnalysisHandler) language(raw string) model.Language {
	return languageOrDefault(raw, h.defaultLang)
}

func controllerFor(sessions ControllerSource, logger *slog.Logger, w http.ResponseWriter, r *http.Request) (*service.AnalysisController, bool) {
	id, ok := auth.SessionIDFromContext(r.Context())
	if !ok {
		logger.Error("request reached handler without a session", slog.String("path", r.URL.Path))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return nil, false
	}
	return sessions.Controller(id), true
}

func languageOrDefault(raw string, def model.Language) model.Language {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	return model.Language(raw)
}
