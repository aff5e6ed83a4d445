package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoSession writes the session ID the middleware placed in the context.
var echoSession = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, ok := SessionIDFromContext(r.Context())
	if !ok {
		http.Error(w, "no session", http.StatusInternalServerError)
		return
	}
	_, _ = io.WriteString(w, id)
})

func newSessionHandler(t *testing.T) (http.Handler, *TokenService) {
	t.Helper()
	ts := newTestTokenService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return Session(ts, logger)(echoSession), ts
}

func TestSession_IssuesCookieOnFirstVisit(t *testing.T) {
	h, ts := newSessionHandler(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	id, err := ts.Validate(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, id, rr.Body.String())
}

func TestSession_ReusesValidCookie(t *testing.T) {
	h, ts := newSessionHandler(t)
	token, err := ts.Generate("existing-session")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "existing-session", rr.Body.String())
	assert.Empty(t, rr.Result().Cookies(), "a valid cookie must not be replaced")
}

func TestSession_ReplacesBadCookie(t *testing.T) {
	h, ts := newSessionHandler(t)
	expired, err := ts.GenerateWithDuration("old-session", -time.Minute)
	require.NoError(t, err)

	for name, value := range map[string]string{"expired": expired, "garbage": "not-a-token"} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: CookieName, Value: value})
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.NotEqual(t, "old-session", rr.Body.String())
			assert.NotEmpty(t, rr.Body.String())
			assert.Len(t, rr.Result().Cookies(), 1)
		})
	}
}

func TestSessionIDFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := SessionIDFromContext(req.Context())
	assert.False(t, ok)
}
