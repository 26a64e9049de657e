package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// SessionCookie is the cookie a browser client may carry the token in.
const SessionCookie = "session"

type contextKey string

const sessionIDKey contextKey = "sessionID"

// RequireSession admits a request only if it carries a valid token for the
// session named by the {id} URL parameter. The token is read from an
// `Authorization: Bearer` header, falling back to the session cookie.
//
// Missing or invalid tokens get 401; a valid token for another session
// gets 403.
func RequireSession(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				deny(w, http.StatusUnauthorized, "unauthorized", "a session token is required")
				return
			}

			sessionID, err := tokens.Validate(raw)
			if err != nil {
				msg := "invalid session token"
				if errors.Is(err, ErrTokenExpired) {
					msg = "session token expired"
				}
				deny(w, http.StatusUnauthorized, "unauthorized", msg)
				return
			}

			if want := chi.URLParam(r, "id"); want != "" && want != sessionID {
				deny(w, http.StatusForbidden, "forbidden", "token was issued for another session")
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext returns the session admitted by RequireSession.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// deny writes the same error body the handlers use.
func deny(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + kind + `","message":"` + message + `"}`))
}
