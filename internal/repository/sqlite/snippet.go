package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/webconsole/internal/apperror"
	"github.com/sakif/webconsole/internal/model"
	"github.com/sakif/webconsole/internal/repository"
)

var _ repository.SnippetRepository = (*DB)(nil)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

const snippetColumns = `id, name, description, language, code, edit_key_hash, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnippet(row rowScanner, s *model.Snippet) error {
	return row.Scan(
		&s.ID,
		&s.Name,
		&s.Description,
		&s.Language,
		&s.Code,
		&s.EditKeyHash,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
}

// Create assigns the snippet an xid and its timestamps, then inserts it.
// The caller's struct is updated in place.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.ID = xid.New().String()

	now := time.Now().UTC()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO snippets (`+snippetColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snippet.ID,
		snippet.Name,
		snippet.Description,
		snippet.Language,
		snippet.Code,
		snippet.EditKeyHash,
		snippet.CreatedAt,
		snippet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	return nil
}

// GetByID returns the snippet or an apperror.ErrNotFound.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	var snippet model.Snippet

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE id = ?`,
		id,
	)
	if err := scanSnippet(row, &snippet); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	return &snippet, nil
}

// List returns snippets newest first. Limit is clamped to 1..100 with a
// default of 20; an empty Language means every language.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Snippet, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	offset := max(opts.Offset, 0)

	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(`SELECT ` + snippetColumns + ` FROM snippets`)
	if opts.Language != "" {
		query.WriteString(` WHERE language = ?`)
		args = append(args, opts.Language)
	}
	// xids grow with time, so id breaks ties between equal timestamps.
	query.WriteString(` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	defer rows.Close()

	snippets := make([]model.Snippet, 0, limit)
	for rows.Next() {
		var s model.Snippet
		if err := scanSnippet(rows, &s); err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}

	return snippets, nil
}

// Update writes the editable fields and bumps updated_at. ID, created_at
// and the edit key hash never change.
func (db *DB) Update(ctx context.Context, snippet *model.Snippet) error {
	snippet.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets
		 SET name = ?, description = ?, language = ?, code = ?, updated_at = ?
		 WHERE id = ?`,
		snippet.Name,
		snippet.Description,
		snippet.Language,
		snippet.Code,
		snippet.UpdatedAt,
		snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}

	return expectOneRow(result, snippet.ID)
}

// Delete removes the snippet or returns apperror.ErrNotFound.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM snippets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}

	return expectOneRow(result, id)
}

// expectOneRow turns "no rows affected" into a not-found error.
func expectOneRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("snippet", id)
	}
	return nil
}
