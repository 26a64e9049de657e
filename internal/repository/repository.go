// Package repository declares the storage contracts the service layer
// depends on. Implementations live in sub-packages (see sqlite).
package repository

import (
	"context"

	"github.com/sakif/webconsole/internal/model"
)

// ListOptions narrows and pages a snippet listing.
type ListOptions struct {
	// Language keeps only snippets of one catalog language when set.
	Language string
	Limit    int
	Offset   int
}

// SnippetRepository persists snippets. Lookups of unknown IDs return an
// error wrapping apperror.ErrNotFound.
type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	List(ctx context.Context, opts ListOptions) ([]model.Snippet, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id string) error
}
