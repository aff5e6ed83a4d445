package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"
)

// CookieName is the cookie holding the signed session token.
const CookieName = "session"

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of this type, so no other package can
// read or shadow the session ID.
type contextKey string

const sessionIDKey contextKey = "sessionID"

// Session is a middleware that guarantees every request has a session ID.
//
// A valid cookie is reused as-is. A missing, expired or forged cookie is
// replaced with a brand-new session — the visitor simply starts with an
// empty history, there is no 401 here.
//
// The cookie is:
//   - HttpOnly: JavaScript can't read it
//   - SameSite=Lax: not sent on cross-site POSTs (CSRF protection for /analyze)
//   - MaxAge = token TTL, so browser and token expire together
func Session(tokens *TokenService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := extractSessionID(r, tokens)
			if err != nil {
				sessionID = xid.New().String()
				token, err := tokens.Generate(sessionID)
				if err != nil {
					logger.Error("failed to issue session token", slog.String("error", err.Error()))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   int(tokens.TTL().Seconds()),
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				})
				logger.Debug("session started", slog.String("session", sessionID))
			}

			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
		})
	}
}

// WithSessionID returns a copy of ctx carrying sessionID.
// Exported so handler tests can fake a session without going through cookies.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionIDFromContext retrieves the session ID set by Session.
// Returns ("", false) if the middleware did not run.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// extractSessionID reads the session cookie and validates it.
func extractSessionID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
