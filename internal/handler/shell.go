// Package handler contains HTTP request handlers for the DevHelper AI server.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (query params, form fields, JSON body)
// 2. Call the session's AnalysisController
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers should NOT contain business logic — they are the "glue" between
// HTTP and the controller. Two front ends share the same controller:
//   - ShellHandler renders the HTML page (tabs, editor, history, settings)
//   - AnalysisHandler serves the JSON API under /api
package handler

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devhelper-ai/internal/apperror"
	"github.com/sakif/devhelper-ai/internal/auth"
	"github.com/sakif/devhelper-ai/internal/model"
)

// Tabs of the page.
const (
	TabEditor   = "editor"
	TabHistory  = "history"
	TabSettings = "settings"
)

// Preference cookies. These are plain UI state — nothing server-side reads
// them except to pick a CSS class or hide the tips box.
const (
	themeCookie = "theme"
	tipsCookie  = "tips"
)

// MarkdownRenderer turns the model's markdown into HTML. *render.Markdown implements it.
type MarkdownRenderer interface {
	Render(markdown string) (template.HTML, error)
}

// Settings is what the Settings tab and GET /api/settings display.
type Settings struct {
	Model            string `json:"model"`
	APIConfigured    bool   `json:"apiConfigured"`
	HistoryBackend   string `json:"historyBackend"`
	HistoryAutoLimit int    `json:"historyAutoLimit"`
	HistorySaveLimit int    `json:"historySaveLimit"`
}

// ShellHandler renders the single-page UI.
//
// It holds parsed templates so we don't re-parse them on every request.
type ShellHandler struct {
	templates   *template.Template
	sessions    ControllerSource
	markdown    MarkdownRenderer
	settings    Settings
	defaultLang model.Language
	logger      *slog.Logger
}

// pageData is everything the templates can reference.
type pageData struct {
	Title     string
	Tab       string
	Theme     string
	ShowTips  bool
	Code      string
	Language  model.Language
	Languages []model.Language
	Busy      bool
	Result    template.HTML
	Error     string
	Notice    string
	History   []model.HistoryEntry
	Settings  Settings
}

// NewShellHandler parses base.html and devhelper.html from templateDir.
//
// TEMPLATE COMPOSITION:
//   - base.html defines the page skeleton with a {{template "content" .}} placeholder
//   - devhelper.html fills it via {{define "content"}}...{{end}}
func NewShellHandler(
	templateDir string,
	sessions ControllerSource,
	markdown MarkdownRenderer,
	settings Settings,
	defaultLang model.Language,
	logger *slog.Logger,
) (*ShellHandler, error) {
	tmpl, err := template.New("base.html").Funcs(template.FuncMap{
		"formatTime": func(t time.Time) string { return t.Local().Format("Jan 2, 2006 15:04:05") },
	}).ParseFiles(
		filepath.Join(templateDir, "base.html"),
		filepath.Join(templateDir, "devhelper.html"),
	)
	if err != nil {
		return nil, err
	}

	return &ShellHandler{
		templates:   tmpl,
		sessions:    sessions,
		markdown:    markdown,
		settings:    settings,
		defaultLang: defaultLang,
		logger:      logger,
	}, nil
}

// HandlePage shows the page on the tab named by ?tab= (editor by default).
//
// HTTP: GET /
func (h *ShellHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, h.newPage(r, r.URL.Query().Get("tab")))
}

// HandleAnalyze is the editor form's submit button.
//
// HTTP: POST /analyze  (form: code, language)
//
// The form keeps what the user typed, whatever the outcome. As with the
// JSON route, the model call outlives a disconnected browser; the result is
// there on the next page load.
func (h *ShellHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	code, lang, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	ctl, ok := controllerFor(h.sessions, h.logger, w, r)
	if !ok {
		return
	}

	page := h.newPage(r, TabEditor)
	if _, err := ctl.Submit(context.WithoutCancel(r.Context()), code, lang); err != nil {
		page.Notice = noticeFor(err)
	}
	page.Code, page.Language = code, lang
	h.fill(r, &page)
	h.render(w, r, page)
}

// HandleSave is the editor form's Save button.
//
// HTTP: POST /save  (form: code, language)
func (h *ShellHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	code, lang, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	ctl, ok := controllerFor(h.sessions, h.logger, w, r)
	if !ok {
		return
	}

	page := h.newPage(r, TabEditor)
	entry, err := ctl.SaveCurrent(r.Context(), code, lang)
	switch {
	case err != nil:
		page.Notice = noticeFor(err)
	case entry != nil:
		page.Notice = "Snippet saved to history."
	}
	page.Code, page.Language = code, lang
	h.fill(r, &page)
	h.render(w, r, page)
}

// HandleLoad reopens a history entry in the editor.
//
// HTTP: GET /history/{id}
func (h *ShellHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	ctl, ok := controllerFor(h.sessions, h.logger, w, r)
	if !ok {
		return
	}

	entry, err := ctl.Entry(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, apperror.ErrNotFound) {
		http.Redirect(w, r, "/?tab="+TabHistory, http.StatusSeeOther)
		return
	}
	if err != nil {
		h.logger.Error("failed to load history entry", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	page := h.newPage(r, TabEditor)
	page.Code, page.Language = ctl.LoadEntry(entry)
	h.render(w, r, page)
}

// HandlePreferences stores the theme and tips toggles.
//
// HTTP: POST /preferences  (form: theme=dark|light, tips=on|off)
func (h *ShellHandler) HandlePreferences(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	if theme := r.PostForm.Get("theme"); theme == "dark" || theme == "light" {
		setPreference(w, themeCookie, theme)
	}
	if tips := r.PostForm.Get("tips"); tips == "on" || tips == "off" {
		setPreference(w, tipsCookie, tips)
	}

	back := r.PostForm.Get("tab")
	if back != TabEditor && back != TabHistory {
		back = TabSettings
	}
	http.Redirect(w, r, "/?tab="+back, http.StatusSeeOther)
}

// HandleSettings exposes the Settings tab as JSON.
//
// HTTP: GET /api/settings
func (h *ShellHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings)
}

// newPage builds the page skeleton: tab, preferences and, for a GET, the
// session's stored result/error/history.
func (h *ShellHandler) newPage(r *http.Request, tab string) pageData {
	switch tab {
	case TabEditor, TabHistory, TabSettings:
	default:
		tab = TabEditor
	}

	page := pageData{
		Title:     "DevHelper AI — Code Analyzer",
		Tab:       tab,
		Theme:     "dark",
		ShowTips:  true,
		Language:  h.defaultLang,
		Languages: model.Languages(),
		Settings:  h.settings,
	}
	if c, err := r.Cookie(themeCookie); err == nil && c.Value == "light" {
		page.Theme = "light"
	}
	if c, err := r.Cookie(tipsCookie); err == nil && c.Value == "off" {
		page.ShowTips = false
	}
	if r.Method == http.MethodGet {
		h.fill(r, &page)
	}
	return page
}

// fill copies the controller's state into the page.
func (h *ShellHandler) fill(r *http.Request, page *pageData) {
	id, ok := auth.SessionIDFromContext(r.Context())
	if !ok {
		return
	}
	snap, err := h.sessions.Controller(id).Snapshot(r.Context())
	if err != nil {
		h.logger.Error("failed to read state", slog.String("error", err.Error()))
		page.Error = "Could not load your history."
		return
	}

	page.Busy = snap.Busy
	page.Error = snap.Error
	page.History = snap.History
	if snap.Result != "" {
		page.Result = h.renderMarkdown(snap.Result)
	}
}

func (h *ShellHandler) renderMarkdown(src string) template.HTML {
	out, err := h.markdown.Render(src)
	if err != nil {
		h.logger.Warn("markdown render failed, showing raw text", slog.String("error", err.Error()))
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return out
}

func (h *ShellHandler) parseForm(w http.ResponseWriter, r *http.Request) (string, model.Language, bool) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("invalid form", slog.String("error", err.Error()))
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return "", "", false
	}
	return r.PostForm.Get("code"), languageOrDefault(r.PostForm.Get("language"), h.defaultLang), true
}

func (h *ShellHandler) render(w http.ResponseWriter, r *http.Request, page pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "base", page); err != nil {
		h.logger.Error("failed to render template",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// noticeFor turns a refused request into a line for the notice bar.
func noticeFor(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Something went wrong. Please try again."
}

func setPreference(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
	})
}
