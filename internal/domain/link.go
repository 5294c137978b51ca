package domain

import "time"

// LinkRecord is a link attached to a piece of content. The pipeline only
// ever writes Metadata and UpdatedAt on an existing row.
type LinkRecord struct {
	ID           string    `db:"id"            json:"id"`
	ContentID    string    `db:"content_id"    json:"content_id"`
	URL          string    `db:"url"           json:"url"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	Metadata     *Metadata `db:"metadata"      json:"metadata"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`
}

// Resolved reports whether the link already carries metadata. An empty
// fallback counts as resolved.
func (l *LinkRecord) Resolved() bool {
	return l.Metadata != nil
}
