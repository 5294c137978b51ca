package extractor

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/fetcher"
)

const (
	providerBandcamp = "bandcamp"

	bandcampEmbed       = "https://bandcamp.com/EmbeddedPlayer/"
	bandcampEmbedSuffix = "/size=large/bgcol=ffffff/linkcol=0687f5/tracklist=false/transparent=true/"

	bandcampAlbumHeight = 470
	bandcampTrackHeight = 442
)

// Bandcamp handles album and track release pages.
type Bandcamp struct{}

// NewBandcamp creates the release page extractor.
func NewBandcamp() *Bandcamp { return &Bandcamp{} }

func (*Bandcamp) Name() string { return providerBandcamp }

func (*Bandcamp) Matches(u *url.URL) bool {
	return hostMatches(u, "bandcamp.com")
}

// Extract tries linked data, then the legacy bc-page-properties attribute.
// Without either, only the generic title and image are kept.
func (*Bandcamp) Extract(page *fetcher.Page) (*domain.Metadata, error) {
	d, err := parseDocument(page)
	if err != nil {
		return nil, err
	}

	for _, t := range []tier{bandcampLD, bandcampPageProperties} {
		if result, ok := t(d); ok {
			return overlay(scrapeTags(d), result), nil
		}
	}

	base := scrapeTags(d)
	return &domain.Metadata{Title: base.Title, Image: base.Image}, nil
}

func bandcampLD(d *document) (*domain.Metadata, bool) {
	node, declared := findLD(d.jsonLD(), "MusicAlbum", "MusicRecording")
	if node == nil {
		return nil, false
	}
	raw, ok := node.property("item_id")
	if !ok {
		return nil, false
	}
	id, ok := numericID(raw)
	if !ok {
		return nil, false
	}

	kind := domain.KindTrack
	if declared == "MusicAlbum" {
		kind = domain.KindAlbum
	}

	md := &domain.Metadata{
		Title: node.str("name"),
		Image: d.absolute(node.image("image")),
		Embed: bandcampEmbedFor(kind, id),
	}
	if artist := node.child("byArtist"); artist != nil && md.Title != "" {
		if name := artist.str("name"); name != "" {
			md.Title += ", by " + name
		}
	}
	return md, true
}

type bandcampProperties struct {
	ItemType string `json:"item_type"`
	ItemID   any    `json:"item_id"`
}

func bandcampPageProperties(d *document) (*domain.Metadata, bool) {
	content := d.meta("bc-page-properties")
	if content == "" {
		return nil, false
	}
	var props bandcampProperties
	if err := json.Unmarshal([]byte(content), &props); err != nil {
		return nil, false
	}
	id, ok := numericID(props.ItemID)
	if !ok {
		return nil, false
	}

	var kind string
	switch strings.ToLower(props.ItemType) {
	case "a", "album":
		kind = domain.KindAlbum
	case "t", "track":
		kind = domain.KindTrack
	default:
		return nil, false
	}
	return &domain.Metadata{Embed: bandcampEmbedFor(kind, id)}, true
}

func bandcampEmbedFor(kind, id string) *domain.Embed {
	height := bandcampTrackHeight
	if kind == domain.KindAlbum {
		height = bandcampAlbumHeight
	}
	return &domain.Embed{
		Provider: providerBandcamp,
		EmbedURL: bandcampEmbed + kind + "=" + id + bandcampEmbedSuffix,
		Height:   height,
		Kind:     kind,
	}
}
