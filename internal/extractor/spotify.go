package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/fetcher"
)

const (
	providerSpotify = "spotify"
	spotifyEmbed    = "https://open.spotify.com/embed/"

	spotifyTrackHeight   = 152
	spotifyEpisodeHeight = 232
	spotifyDefaultHeight = 352
)

var (
	spotifyID     = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)
	spotifyLocale = regexp.MustCompile(`^intl-[a-z]{2}(-[a-z]{2})?$`)

	spotifyKinds = map[string]string{
		"track":    domain.KindTrack,
		"album":    domain.KindAlbum,
		"playlist": domain.KindPlaylist,
		"artist":   domain.KindArtist,
		"show":     domain.KindShow,
		"episode":  domain.KindEpisode,
	}
)

// Spotify handles track, album, playlist, artist, show and episode pages.
type Spotify struct{}

// NewSpotify creates the music streaming extractor.
func NewSpotify() *Spotify { return &Spotify{} }

func (*Spotify) Name() string { return providerSpotify }

func (*Spotify) Matches(u *url.URL) bool {
	return hostMatches(u, "open.spotify.com", "play.spotify.com")
}

func (*Spotify) Extract(page *fetcher.Page) (*domain.Metadata, error) {
	d, err := parseDocument(page)
	if err != nil {
		return nil, err
	}

	md := runTiers(d, spotifyLD)
	if md.SiteName == "" {
		md.SiteName = "Spotify"
	}

	for _, u := range d.urls() {
		if kind, id, ok := spotifyRef(u); ok {
			md.Embed = &domain.Embed{
				Provider: providerSpotify,
				EmbedURL: spotifyEmbed + kind + "/" + id,
				Height:   spotifyHeight(kind),
				Kind:     spotifyKinds[kind],
			}
			break
		}
	}
	return md, nil
}

func spotifyLD(d *document) (*domain.Metadata, bool) {
	node, _ := findLD(d.jsonLD(), "MusicRecording", "MusicAlbum", "MusicPlaylist", "MusicGroup", "PodcastSeries", "PodcastEpisode")
	if node == nil || node.str("name") == "" {
		return nil, false
	}
	return &domain.Metadata{
		Title:       node.str("name"),
		Description: node.str("description"),
		Image:       d.absolute(node.image("image")),
	}, true
}

// spotifyRef reads /<kind>/<id>, allowing an /intl-xx/ locale prefix.
func spotifyRef(u *url.URL) (string, string, bool) {
	if !hostMatches(u, "open.spotify.com", "play.spotify.com") {
		return "", "", false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) > 0 && spotifyLocale.MatchString(segments[0]) {
		segments = segments[1:]
	}
	if len(segments) > 0 && segments[0] == "embed" {
		segments = segments[1:]
	}
	if len(segments) < 2 {
		return "", "", false
	}

	kind, id := segments[0], segments[1]
	if _, known := spotifyKinds[kind]; !known || !spotifyID.MatchString(id) {
		return "", "", false
	}
	return kind, id, true
}

func spotifyHeight(kind string) int {
	switch kind {
	case "track":
		return spotifyTrackHeight
	case "episode":
		return spotifyEpisodeHeight
	default:
		return spotifyDefaultHeight
	}
}
