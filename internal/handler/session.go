package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/webconsole/internal/auth"
	"github.com/sakif/webconsole/internal/console"
	"github.com/sakif/webconsole/internal/model"
)

// SessionHandler exposes console sessions. Every route below
// /api/sessions/{id} sits behind auth.RequireSession.
type SessionHandler struct {
	sessions *console.Manager
	tokens   *auth.TokenService
	logger   *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions *console.Manager, tokens *auth.TokenService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		tokens:   tokens,
		logger:   logger,
	}
}

type createSessionResponse struct {
	Session model.Session `json:"session"`
	Token   string        `json:"token"`
}

type languageRequest struct {
	Language string `json:"language"`
}

type sourceRequest struct {
	Code string `json:"code"`
}

type sourceResponse struct {
	Code string `json:"code"`
}

type entriesResponse struct {
	Entries []model.ConsoleEntry `json:"entries"`
}

type historyResponse struct {
	History []model.ConsoleEntry `json:"history"`
}

// HandleCreate opens a session and hands back the token that guards it.
// The token is also set as an HttpOnly cookie for browser clients.
//
// HTTP: POST /api/sessions
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Create(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.tokens.Issue(sess.ID)
	if err != nil {
		h.logger.Error("failed to issue session token",
			slog.String("session", sess.ID),
			slog.String("error", err.Error()),
		)
		_ = h.sessions.Delete(sess.ID)
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/api/sessions",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusCreated, createSessionResponse{Session: sess, Token: token})
}

// HandleGet returns the session snapshot.
//
// HTTP: GET /api/sessions/{id}
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleDelete ends the session.
//
// HTTP: DELETE /api/sessions/{id}
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sessions.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("console session deleted", slog.String("session", id))
	w.WriteHeader(http.StatusNoContent)
}

// HandleSelectLanguage switches language and loads its sample program.
//
// HTTP: PUT /api/sessions/{id}/language
// BODY: {"language": "c"}
func (h *SessionHandler) HandleSelectLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, err := h.sessions.SelectLanguage(chi.URLParam(r, "id"), req.Language)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleSetSource replaces the editor buffer.
//
// HTTP: PUT /api/sessions/{id}/source
// BODY: {"code": "console.log(1)"}
func (h *SessionHandler) HandleSetSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, err := h.sessions.SetSource(chi.URLParam(r, "id"), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleGetSource returns the editor buffer for copying.
//
// HTTP: GET /api/sessions/{id}/source
func (h *SessionHandler) HandleGetSource(w http.ResponseWriter, r *http.Request) {
	code, err := h.sessions.Source(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sourceResponse{Code: code})
}

// HandleClearSource empties the editor buffer.
//
// HTTP: DELETE /api/sessions/{id}/source
func (h *SessionHandler) HandleClearSource(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.ClearEditor(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleRun executes the editor buffer and returns the command and result
// entries it appended. A failing program is still 200; its entry has the
// "error" kind.
//
// HTTP: POST /api/sessions/{id}/run
func (h *SessionHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	entries, err := h.sessions.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entriesResponse{Entries: entries})
}

// HandleHistory returns the console history, oldest first.
//
// HTTP: GET /api/sessions/{id}/history
func (h *SessionHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{History: sess.History})
}

// HandleClearHistory drops the console history.
//
// HTTP: DELETE /api/sessions/{id}/history
func (h *SessionHandler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessions.ClearHistory(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
