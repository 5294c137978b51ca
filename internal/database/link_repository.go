package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
)

const linkSelectList = `id, content_id, url, display_order, metadata, created_at, updated_at`

const defaultListLimit = 100

const (
	persistQuery = `
		UPDATE content_links
		SET metadata = $2, updated_at = NOW()
		WHERE id = $1`

	// A fallback only fills an empty slot; it never replaces metadata.
	persistFallbackQuery = persistQuery + `
		  AND metadata IS NULL`
)

// LinkRepository reads and writes link metadata. It never creates or
// deletes rows.
type LinkRepository struct {
	db *sqlx.DB
}

// NewLinkRepository creates a new repository.
func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// execExpectOneRow runs an exec and returns domain.ErrNotFound when no row was affected.
func (r *LinkRepository) execExpectOneRow(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return fmt.Errorf("get affected rows: %w", rowsErr)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Persist writes md to the link and reports whether a row changed. A row
// that no longer exists is a silent no-op. An empty md is the failure
// fallback and is only written when the link has no metadata yet.
func (r *LinkRepository) Persist(ctx context.Context, linkID string, md *domain.Metadata) (bool, error) {
	if md == nil {
		return false, domain.ErrNilMetadata
	}

	query := persistQuery
	if md.IsEmpty() {
		query = persistFallbackQuery
	}

	if err := r.execExpectOneRow(ctx, query, linkID, md); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("persist metadata for link %s: %w", linkID, err)
	}
	return true, nil
}

// GetMetadata returns the link's metadata, nil while unresolved, or
// domain.ErrNotFound when the link is gone.
func (r *LinkRepository) GetMetadata(ctx context.Context, linkID string) (*domain.Metadata, error) {
	var md *domain.Metadata
	err := r.db.QueryRowxContext(ctx, `SELECT metadata FROM content_links WHERE id = $1`, linkID).Scan(&md)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get metadata for link %s: %w", linkID, err)
	}
	return md, nil
}

// GetByID returns one link.
func (r *LinkRepository) GetByID(ctx context.Context, linkID string) (*domain.LinkRecord, error) {
	var link domain.LinkRecord
	query := `SELECT ` + linkSelectList + ` FROM content_links WHERE id = $1`
	if err := r.db.GetContext(ctx, &link, query, linkID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get link %s: %w", linkID, err)
	}
	return &link, nil
}

// ListUnresolved returns links on live content that still have no
// metadata, oldest first. Used to re-enqueue links whose enqueue was lost.
func (r *LinkRepository) ListUnresolved(ctx context.Context, limit int) ([]domain.LinkRecord, error) {
	query := `
		SELECT l.id, l.content_id, l.url, l.display_order, l.metadata, l.created_at, l.updated_at
		FROM content_links l
		JOIN contents c ON c.id = l.content_id AND c.deleted_at IS NULL
		WHERE l.metadata IS NULL
		ORDER BY l.created_at ASC
		LIMIT $1`

	if limit <= 0 {
		limit = defaultListLimit
	}
	links := make([]domain.LinkRecord, 0, limit)
	if err := r.db.SelectContext(ctx, &links, query, limit); err != nil {
		return nil, fmt.Errorf("list unresolved links: %w", err)
	}
	return links, nil
}
