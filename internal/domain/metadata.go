package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Embed kinds.
const (
	KindVideo    = "video"
	KindPlaylist = "playlist"
	KindTrack    = "track"
	KindAlbum    = "album"
	KindEpisode  = "episode"
	KindShow     = "show"
	KindArtist   = "artist"
)

// Embed describes an inline player for a link.
type Embed struct {
	Provider string `json:"provider"`
	EmbedURL string `json:"embed_url"`
	Height   int    `json:"height"`
	Kind     string `json:"kind,omitempty"`
}

// Metadata is the normalized preview for a link. Embed is nil when no
// provider player could be built.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	Embed       *Embed `json:"embed,omitempty"`
}

// IsEmpty reports whether m is the fallback record with every field absent.
func (m *Metadata) IsEmpty() bool {
	if m == nil {
		return true
	}
	return m.Title == "" && m.Description == "" && m.Image == "" && m.SiteName == "" && m.Embed == nil
}

// Value implements driver.Valuer for the JSONB metadata column.
func (m Metadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner. A SQL NULL must be scanned into a
// **Metadata so that it stays nil; scanning NULL here is an error.
func (m *Metadata) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		return errors.New("scan metadata: null value")
	default:
		return fmt.Errorf("scan metadata: unsupported type %T", src)
	}
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("scan metadata: %w", err)
	}
	return nil
}
