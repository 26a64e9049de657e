// Package handler turns HTTP requests into calls on the executor, the
// console session manager and the snippet service, and their results into
// JSON responses.
package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/webconsole/internal/apperror"
	"github.com/sakif/webconsole/internal/executor"
	"github.com/sakif/webconsole/internal/language"
)

// ExecuteHandler runs one-off code without a console session.
type ExecuteHandler struct {
	exec   executor.Executor
	logger *slog.Logger
}

// NewExecuteHandler creates an ExecuteHandler. Execution limits belong to
// exec; see executor.WithTimeout.
func NewExecuteHandler(exec executor.Executor, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		exec:   exec,
		logger: logger,
	}
}

// HandleExecute runs the posted program.
//
// HTTP: POST /api/execute
// BODY: {"language": "javascript", "code": "console.log(1)"}
//
// The response is always 200 with an ExecutionResult once the request is
// valid; a failing script is reported through its status, not the HTTP code.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req executor.ExecutionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid execution request body", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	if strings.TrimSpace(req.Code) == "" {
		writeError(w, apperror.ValidationFailed("code", "code cannot be empty"))
		return
	}
	if strings.TrimSpace(req.Language) == "" {
		req.Language = language.Default
	}

	result := h.exec.Execute(r.Context(), req)

	h.logger.Info("code executed",
		slog.String("language", result.Language),
		slog.String("status", result.Status.String()),
		slog.Duration("duration", result.Duration),
	)
	writeJSON(w, http.StatusOK, result)
}

// HandleLanguages lists the language catalog.
//
// HTTP: GET /api/languages
func HandleLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, language.All())
}
