package handler_test

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devhelper-ai/internal/auth"
	"github.com/sakif/devhelper-ai/internal/handler"
	"github.com/sakif/devhelper-ai/internal/llm"
	"github.com/sakif/devhelper-ai/internal/model"
	"github.com/sakif/devhelper-ai/internal/render"
	"github.com/sakif/devhelper-ai/internal/session"
)

const templateDir = "../../web/templates"

var testSettings = handler.Settings{
	Model:            "gemini-1.5-pro",
	APIConfigured:    true,
	HistoryBackend:   "memory",
	HistoryAutoLimit: 10,
}

func newShell(t *testing.T, sessions *session.Manager) http.Handler {
	t.Helper()
	h, err := handler.NewShellHandler(templateDir, sessions, render.NewMarkdown(), testSettings, model.JavaScript, quietLogger())
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/", h.HandlePage)
	r.Post("/analyze", h.HandleAnalyze)
	r.Post("/save", h.HandleSave)
	r.Get("/history/{id}", h.HandleLoad)
	r.Post("/preferences", h.HandlePreferences)
	r.Get("/api/settings", h.HandleSettings)
	return r
}

func doForm(t *testing.T, h http.Handler, method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	req = req.WithContext(auth.WithSessionID(req.Context(), "s1"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestNewShellHandler_MissingTemplates(t *testing.T) {
	_, err := handler.NewShellHandler(t.TempDir(), newSessions(&MockGenerator{}), render.NewMarkdown(), testSettings, model.JavaScript, quietLogger())
	assert.Error(t, err)
}

func TestShellHandler_HandlePage(t *testing.T) {
	shell := newShell(t, newSessions(&MockGenerator{}))

	t.Run("editor by default", func(t *testing.T) {
		rr := doForm(t, shell, http.MethodGet, "/", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
		body := rr.Body.String()
		assert.Contains(t, body, "Code Analyzer")
		assert.Contains(t, body, "Pro Tips")
		assert.Contains(t, body, `<option value="JavaScript" selected>`)
		assert.Contains(t, body, `<html lang="en" class="dark">`)
	})

	t.Run("unknown tab falls back to editor", func(t *testing.T) {
		rr := doForm(t, shell, http.MethodGet, "/?tab=admin", nil)
		assert.Contains(t, rr.Body.String(), "Code Analyzer")
	})

	t.Run("empty history", func(t *testing.T) {
		rr := doForm(t, shell, http.MethodGet, "/?tab=history", nil)
		assert.Contains(t, rr.Body.String(), "No saved code snippets yet.")
	})

	t.Run("settings", func(t *testing.T) {
		rr := doForm(t, shell, http.MethodGet, "/?tab=settings", nil)
		body := rr.Body.String()
		assert.Contains(t, body, "Currently using gemini-1.5-pro")
		assert.Contains(t, body, "API key configured")
	})

	t.Run("preference cookies", func(t *testing.T) {
		rr := doForm(t, shell, http.MethodGet, "/", nil,
			&http.Cookie{Name: "theme", Value: "light"},
			&http.Cookie{Name: "tips", Value: "off"},
		)
		body := rr.Body.String()
		assert.Contains(t, body, `class="light"`)
		assert.NotContains(t, body, "Pro Tips")
	})
}

func TestShellHandler_HandleAnalyze(t *testing.T) {
	t.Run("renders markdown result and keeps the form", func(t *testing.T) {
		gen := &MockGenerator{Text: "### 🐞 Bugs / Issues\nNone."}
		shell := newShell(t, newSessions(gen))

		rr := doForm(t, shell, http.MethodPost, "/analyze", url.Values{"code": {"x := 1"}, "language": {"Go"}})

		require.Equal(t, http.StatusOK, rr.Code)
		body := rr.Body.String()
		assert.Contains(t, body, `<h3 class="md-h3">🐞 Bugs / Issues</h3>`)
		assert.Contains(t, body, "x := 1</textarea>")
		assert.Contains(t, body, `<option value="Go" selected>`)
	})

	t.Run("failure shows the message", func(t *testing.T) {
		gen := &MockGenerator{Err: &llm.APIError{StatusCode: http.StatusBadRequest, Message: "API key not valid"}}
		shell := newShell(t, newSessions(gen))

		rr := doForm(t, shell, http.MethodPost, "/analyze", url.Values{"code": {"x"}})

		assert.Contains(t, rr.Body.String(), "API key not valid")
	})

	t.Run("unsupported language shows a notice", func(t *testing.T) {
		gen := &MockGenerator{Text: "ok"}
		shell := newShell(t, newSessions(gen))

		rr := doForm(t, shell, http.MethodPost, "/analyze", url.Values{"code": {"x"}, "language": {"COBOL"}})

		assert.Contains(t, rr.Body.String(), "unsupported language: COBOL")
		assert.Empty(t, gen.Prompts)
	})

	t.Run("code is escaped", func(t *testing.T) {
		shell := newShell(t, newSessions(&MockGenerator{Text: "ok"}))

		rr := doForm(t, shell, http.MethodPost, "/analyze", url.Values{"code": {"</textarea><script>"}})

		assert.NotContains(t, rr.Body.String(), "<script>")
		assert.Contains(t, rr.Body.String(), template.HTMLEscapeString("</textarea><script>"))
	})
}

func TestShellHandler_SaveAndLoad(t *testing.T) {
	sessions := newSessions(&MockGenerator{})
	shell := newShell(t, sessions)

	rr := doForm(t, shell, http.MethodPost, "/save", url.Values{"code": {"fn main() {}"}, "language": {"Rust"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Snippet saved to history.")

	history, err := sessions.Controller("s1").History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)

	rr = doForm(t, shell, http.MethodGet, "/?tab=history", nil)
	assert.Contains(t, rr.Body.String(), "/history/"+history[0].ID)

	rr = doForm(t, shell, http.MethodGet, "/history/"+history[0].ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "fn main() {}</textarea>")
	assert.Contains(t, rr.Body.String(), `<option value="Rust" selected>`)

	t.Run("unknown entry redirects to history", func(t *testing.T) {
		rr := doForm(t, shell, http.MethodGet, "/history/missing", nil)
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/?tab=history", rr.Header().Get("Location"))
	})

	t.Run("empty save does nothing", func(t *testing.T) {
		rr := doForm(t, shell, http.MethodPost, "/save", url.Values{"code": {"  "}})
		assert.NotContains(t, rr.Body.String(), "Snippet saved")
	})
}

func TestShellHandler_HandlePreferences(t *testing.T) {
	shell := newShell(t, newSessions(&MockGenerator{}))

	rr := doForm(t, shell, http.MethodPost, "/preferences", url.Values{"theme": {"light"}, "tips": {"off"}})

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/?tab=settings", rr.Header().Get("Location"))

	set := map[string]string{}
	for _, c := range rr.Result().Cookies() {
		set[c.Name] = c.Value
	}
	assert.Equal(t, map[string]string{"theme": "light", "tips": "off"}, set)

	t.Run("bogus values are ignored", func(t *testing.T) {
		rr := doForm(t, shell, http.MethodPost, "/preferences", url.Values{"theme": {"neon"}, "tab": {"editor"}})
		assert.Empty(t, rr.Result().Cookies())
		assert.Equal(t, "/?tab=editor", rr.Header().Get("Location"))
	})
}

func TestShellHandler_HandleSettings(t *testing.T) {
	shell := newShell(t, newSessions(&MockGenerator{}))

	rr := doForm(t, shell, http.MethodGet, "/api/settings", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"model":"gemini-1.5-pro","apiConfigured":true,"historyBackend":"memory","historyAutoLimit":10,"historySaveLimit":0}`, rr.Body.String())
}

// slowGenerator starts a call, reports it on Started, and finishes when
// Release closes unless ctx is done first.
type slowGenerator struct {
	Started chan struct{}
	Release chan struct{}
}

func (g *slowGenerator) GenerateContent(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	close(g.Started)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.Release:
	}
	return &llm.GenerateResponse{Candidates: []llm.Candidate{
		{Content: llm.Content{Parts: []llm.Part{{Text: "### ok"}}}},
	}}, nil
}

func TestShellHandler_HandleAnalyze_SurvivesDisconnect(t *testing.T) {
	gen := &slowGenerator{Started: make(chan struct{}), Release: make(chan struct{})}
	sessions := newSessions(gen)
	shell := newShell(t, sessions)

	ctx, cancel := context.WithCancel(auth.WithSessionID(context.Background(), "s1"))
	form := url.Values{"code": {"print(1)"}, "language": {"Python"}}
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(form.Encode())).WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	done := make(chan struct{})
	go func() {
		defer close(done)
		shell.ServeHTTP(httptest.NewRecorder(), req)
	}()

	<-gen.Started
	cancel() // the browser goes away mid-call
	close(gen.Release)
	<-done

	snap, err := sessions.Controller("s1").Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "### ok", snap.Result)
	assert.Empty(t, snap.Error)
	assert.Len(t, snap.History, 1)
}

func TestShellHandler_TipsDismiss(t *testing.T) {
	shell := newShell(t, newSessions(&MockGenerator{}))

	body := doForm(t, shell, http.MethodGet, "/", nil).Body.String()
	assert.Contains(t, body, `form="dismiss-tips"`)
	assert.Contains(t, body, `<input type="hidden" name="tips" value="off">`)

	rr := doForm(t, shell, http.MethodPost, "/preferences", url.Values{"tips": {"off"}, "tab": {"editor"}})
	assert.Equal(t, "/?tab=editor", rr.Header().Get("Location"))
	require.Len(t, rr.Result().Cookies(), 1)
	assert.Equal(t, "off", rr.Result().Cookies()[0].Value)

	hidden := doForm(t, shell, http.MethodGet, "/", nil, &http.Cookie{Name: "tips", Value: "off"}).Body.String()
	assert.NotContains(t, hidden, "dismiss-tips")
}

func TestShellHandler_SettingsHistoryLimits(t *testing.T) {
	tests := []struct {
		name      string
		auto      int
		save      int
		want      string
		wantNotIn string
	}{
		{"auto bounded, save unbounded", 10, 0, "History: memory, keeping 10 entries after an analysis.", "after a save"},
		{"both unbounded", 0, 0, "History: memory.", "keeping 0"},
		{"both bounded", 5, 20, "History: memory, keeping 5 entries after an analysis, keeping 20 entries after a save.", "keeping 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings
			settings.HistoryAutoLimit, settings.HistorySaveLimit = tt.auto, tt.save
			h, err := handler.NewShellHandler(templateDir, newSessions(&MockGenerator{}), render.NewMarkdown(), settings, model.JavaScript, quietLogger())
			require.NoError(t, err)

			body := doForm(t, http.HandlerFunc(h.HandlePage), http.MethodGet, "/?tab=settings", nil).Body.String()
			assert.Contains(t, body, tt.want)
			assert.NotContains(t, body, tt.wantNotIn)
		})
	}
}
