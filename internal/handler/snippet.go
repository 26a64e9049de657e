package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/webconsole/internal/apperror"
	"github.com/sakif/webconsole/internal/model"
	"github.com/sakif/webconsole/internal/service"
)

// EditKeyHeader carries the key returned when a snippet was created.
const EditKeyHeader = "X-Edit-Key"

// SnippetHandler serves the snippet library.
type SnippetHandler struct {
	snippets *service.SnippetService
	logger   *slog.Logger
}

// NewSnippetHandler creates a SnippetHandler.
func NewSnippetHandler(snippets *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{snippets: snippets, logger: logger}
}

type snippetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Code        string `json:"code"`
}

func (req snippetRequest) input() service.SnippetInput {
	return service.SnippetInput{
		Name:        req.Name,
		Description: req.Description,
		Language:    req.Language,
		Code:        req.Code,
	}
}

type createSnippetResponse struct {
	Snippet *model.Snippet `json:"snippet"`
	EditKey string         `json:"editKey"`
}

// HandleList returns one page of snippets, newest first.
//
// HTTP: GET /api/snippets?language=c&limit=20&offset=0
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := queryInt(q.Get("limit"), "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(q.Get("offset"), "offset")
	if err != nil {
		writeError(w, err)
		return
	}

	snippets, err := h.snippets.List(r.Context(), q.Get("language"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if snippets == nil {
		snippets = []model.Snippet{}
	}
	writeJSON(w, http.StatusOK, snippets)
}

// HandleCreate stores a snippet. The edit key in the response is shown
// once; the server keeps only its hash.
//
// HTTP: POST /api/snippets
// BODY: {"name": "fizzbuzz", "language": "javascript", "code": "..."}
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req snippetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid snippet JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	snippet, key, err := h.snippets.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSnippetResponse{Snippet: snippet, EditKey: key})
}

// HandleGet returns one snippet.
//
// HTTP: GET /api/snippets/{id}
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.snippets.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleUpdate replaces a snippet's fields.
//
// HTTP: PUT /api/snippets/{id}
// HEADER: X-Edit-Key
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req snippetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.snippets.Update(r.Context(), chi.URLParam(r, "id"), r.Header.Get(EditKeyHeader), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleDelete removes a snippet.
//
// HTTP: DELETE /api/snippets/{id}
// HEADER: X-Edit-Key
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.snippets.Delete(r.Context(), chi.URLParam(r, "id"), r.Header.Get(EditKeyHeader)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRun executes a stored snippet.
//
// HTTP: POST /api/snippets/{id}/run
func (h *SnippetHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	res, err := h.snippets.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func queryInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(field, field+" must be an integer")
	}
	return n, nil
}
