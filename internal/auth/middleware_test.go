package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionRouter(t *testing.T, ts *TokenService) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Use(RequireSession(ts))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			id, ok := SessionIDFromContext(r.Context())
			require.True(t, ok)
			_, _ = w.Write([]byte(id))
		})
	})
	return r
}

func TestRequireSession(t *testing.T) {
	ts := newTestTokenService(t)
	router := sessionRouter(t, ts)

	valid, _ := ts.Issue("s1")
	expired, _ := ts.IssueWithDuration("s1", -time.Minute)
	other, _ := ts.Issue("s2")

	tests := []struct {
		name       string
		setup      func(*http.Request)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "bearer header",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) },
			wantStatus: http.StatusOK,
			wantBody:   "s1",
		},
		{
			name:       "cookie",
			setup:      func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: valid}) },
			wantStatus: http.StatusOK,
			wantBody:   "s1",
		},
		{
			name:       "missing",
			setup:      func(*http.Request) {},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "a session token is required",
		},
		{
			name:       "wrong scheme",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Basic "+valid) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) },
			wantStatus: http.StatusUnauthorized,
			wantBody:   "session token expired",
		},
		{
			name:       "other session",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+other) },
			wantStatus: http.StatusForbidden,
			wantBody:   "another session",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/sessions/s1/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}
