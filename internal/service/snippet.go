// Package service holds the business rules that sit between the HTTP
// handlers and storage.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, checks edit keys, runs snippets
//	Repository      → reads and writes rows
//
// Services take interfaces so tests can hand them a mock repository and
// a fake executor.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/webconsole/internal/apperror"
	"github.com/sakif/webconsole/internal/auth"
	"github.com/sakif/webconsole/internal/executor"
	"github.com/sakif/webconsole/internal/language"
	"github.com/sakif/webconsole/internal/model"
	"github.com/sakif/webconsole/internal/repository"
)

const (
	MaxSnippetNameLength = 100
	MaxDescriptionLength = 500
	MaxCodeLength        = 100000 // bytes
	DefaultListLimit     = 20
	MaxListLimit         = 100
)

// EditKeys creates and checks per-snippet edit keys. *auth.KeyService
// implements it.
type EditKeys interface {
	Generate() (key, hash string, err error)
	Verify(hash, key string) error
}

// SnippetInput carries the user-editable fields of a snippet.
type SnippetInput struct {
	Name        string
	Description string
	Language    string
	Code        string
}

// SnippetService manages the snippet library.
type SnippetService struct {
	repo   repository.SnippetRepository
	keys   EditKeys
	engine executor.Executor
	logger *slog.Logger
}

// NewSnippetService wires a SnippetService.
func NewSnippetService(repo repository.SnippetRepository, keys EditKeys, engine executor.Executor, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		repo:   repo,
		keys:   keys,
		engine: engine,
		logger: logger,
	}
}

// Create validates and stores a snippet. The returned edit key is the only
// copy: it is needed to update or delete the snippet later.
// An empty language defaults to JavaScript.
func (s *SnippetService) Create(ctx context.Context, in SnippetInput) (*model.Snippet, string, error) {
	if strings.TrimSpace(in.Language) == "" {
		in.Language = language.Default
	}

	snippet := &model.Snippet{}
	if err := applyInput(snippet, in); err != nil {
		return nil, "", err
	}

	key, hash, err := s.keys.Generate()
	if err != nil {
		return nil, "", fmt.Errorf("generating edit key: %w", err)
	}
	snippet.EditKeyHash = hash

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("name", snippet.Name),
			slog.String("error", err.Error()),
		)
		return nil, "", fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("language", snippet.Language),
	)
	return snippet, key, nil
}

// GetByID returns a snippet or an apperror.ErrNotFound.
func (s *SnippetService) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

// List pages through the library, optionally narrowed to one language.
// limit is clamped to 1..100 (default 20).
func (s *SnippetService) List(ctx context.Context, lang string, limit, offset int) ([]model.Snippet, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	opts := repository.ListOptions{Limit: limit, Offset: offset}
	if strings.TrimSpace(lang) != "" {
		l, ok := language.Lookup(lang)
		if !ok {
			return nil, apperror.ValidationFailed("language", fmt.Sprintf("unknown language %q", lang))
		}
		opts.Language = l.ID
	}

	snippets, err := s.repo.List(ctx, opts)
	if err != nil {
		s.logger.Error("failed to list snippets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	return snippets, nil
}

// Update replaces the snippet's fields after checking its edit key.
// An empty name or language keeps the stored value; code and description
// are always replaced.
func (s *SnippetService) Update(ctx context.Context, id, editKey string, in SnippetInput) (*model.Snippet, error) {
	snippet, err := s.authorize(ctx, id, editKey)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.Name) == "" {
		in.Name = snippet.Name
	}
	if strings.TrimSpace(in.Language) == "" {
		in.Language = snippet.Language
	}
	if err := applyInput(snippet, in); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, snippet); err != nil {
		s.logger.Error("failed to update snippet",
			slog.String("id", snippet.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating snippet: %w", err)
	}

	s.logger.Info("snippet updated", slog.String("id", snippet.ID))
	return snippet, nil
}

// Delete removes the snippet after checking its edit key.
func (s *SnippetService) Delete(ctx context.Context, id, editKey string) error {
	snippet, err := s.authorize(ctx, id, editKey)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, snippet.ID); err != nil {
		return err
	}

	s.logger.Info("snippet deleted", slog.String("id", snippet.ID))
	return nil
}

// Run executes a stored snippet with the engine. Anyone may run a snippet;
// no edit key is needed.
func (s *SnippetService) Run(ctx context.Context, id string) (executor.ExecutionResult, error) {
	snippet, err := s.GetByID(ctx, id)
	if err != nil {
		return executor.ExecutionResult{}, err
	}

	res := s.engine.Execute(ctx, executor.ExecutionRequest{
		Language: snippet.Language,
		Code:     snippet.Code,
	})

	s.logger.Info("snippet run",
		slog.String("id", snippet.ID),
		slog.String("status", res.Status.String()),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

// authorize loads the snippet and checks editKey against its stored hash.
func (s *SnippetService) authorize(ctx context.Context, id, editKey string) (*model.Snippet, error) {
	snippet, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if editKey == "" {
		return nil, apperror.Unauthorized("an edit key is required to change this snippet")
	}
	if snippet.EditKeyHash == "" {
		return nil, apperror.Forbidden("this snippet cannot be edited")
	}
	if err := s.keys.Verify(snippet.EditKeyHash, editKey); err != nil {
		if errors.Is(err, auth.ErrKeyMismatch) {
			return nil, apperror.Forbidden("edit key does not match")
		}
		return nil, fmt.Errorf("verifying edit key: %w", err)
	}
	return snippet, nil
}

// applyInput validates in and copies it onto snippet.
func applyInput(snippet *model.Snippet, in SnippetInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperror.ValidationFailed("name", "snippet name is required")
	}
	if len(name) > MaxSnippetNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("snippet name must be %d characters or less", MaxSnippetNameLength))
	}

	description := strings.TrimSpace(in.Description)
	if len(description) > MaxDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}

	if len(in.Code) > MaxCodeLength {
		return apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d bytes or less", MaxCodeLength))
	}

	lang, ok := language.Lookup(in.Language)
	if !ok {
		return apperror.ValidationFailed("language", fmt.Sprintf("unknown language %q", in.Language))
	}

	snippet.Name = name
	snippet.Description = description
	snippet.Language = lang.ID
	snippet.Code = in.Code
	return nil
}
