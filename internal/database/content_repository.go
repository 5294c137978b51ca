package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
)

// ContentRepository resolves the container that owns a piece of content.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository creates a new repository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// ChannelForContent returns the container ID of live content, or
// domain.ErrNotFound when the content is missing or deleted.
func (r *ContentRepository) ChannelForContent(ctx context.Context, contentID string) (string, error) {
	var containerID string
	err := r.db.GetContext(ctx, &containerID,
		`SELECT container_id FROM contents WHERE id = $1 AND deleted_at IS NULL`, contentID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get container for content %s: %w", contentID, err)
	}
	return containerID, nil
}
