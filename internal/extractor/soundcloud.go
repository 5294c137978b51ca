package extractor

import (
	"net/url"
	"strings"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/fetcher"
)

const (
	providerSoundCloud = "soundcloud"
	soundCloudWidget   = "https://w.soundcloud.com/player/?url="

	soundCloudTrackHeight    = 166
	soundCloudPlaylistHeight = 450
)

// SoundCloud handles track and set pages.
type SoundCloud struct{}

// NewSoundCloud creates the audio hosting extractor.
func NewSoundCloud() *SoundCloud { return &SoundCloud{} }

func (*SoundCloud) Name() string { return providerSoundCloud }

func (*SoundCloud) Matches(u *url.URL) bool {
	return hostMatches(u, "soundcloud.com")
}

func (*SoundCloud) Extract(page *fetcher.Page) (*domain.Metadata, error) {
	d, err := parseDocument(page)
	if err != nil {
		return nil, err
	}

	md := runTiers(d, soundCloudPlayerMeta, soundCloudCanonical)
	if md.SiteName == "" {
		md.SiteName = "SoundCloud"
	}
	return md, nil
}

// soundCloudPlayerMeta uses the ready-made widget URL from twitter:player.
func soundCloudPlayerMeta(d *document) (*domain.Metadata, bool) {
	player, err := url.Parse(d.meta("twitter:player"))
	if err != nil || player.Scheme != "https" || !strings.EqualFold(player.Hostname(), "w.soundcloud.com") {
		return nil, false
	}

	kind, height := soundCloudKind(player.Query().Get("url"))
	if kind == "" {
		kind, height = soundCloudKind(d.canonicalURL())
	}
	if kind == "" {
		kind, height = domain.KindTrack, soundCloudTrackHeight
	}

	return &domain.Metadata{Embed: &domain.Embed{
		Provider: providerSoundCloud,
		EmbedURL: player.String(),
		Height:   height,
		Kind:     kind,
	}}, true
}

// soundCloudCanonical builds the widget URL from the page's own URL.
func soundCloudCanonical(d *document) (*domain.Metadata, bool) {
	canonical := d.canonicalURL()
	kind, height := soundCloudKind(canonical)
	if kind == "" {
		return nil, false
	}
	return &domain.Metadata{Embed: &domain.Embed{
		Provider: providerSoundCloud,
		EmbedURL: soundCloudWidget + url.QueryEscape(canonical),
		Height:   height,
		Kind:     kind,
	}}, true
}

// soundCloudKind classifies /<user>/<track> and /<user>/sets/<set>. Profile
// and API URLs are not embeddable from their page URL.
func soundCloudKind(rawURL string) (string, int) {
	u, err := url.Parse(rawURL)
	if err != nil || !hostMatches(u, "soundcloud.com") || strings.HasPrefix(strings.ToLower(u.Hostname()), "api.") {
		return "", 0
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(segments) >= 3 && segments[1] == "sets":
		return domain.KindPlaylist, soundCloudPlaylistHeight
	case len(segments) == 2 && segments[0] != "" && segments[1] != "":
		switch segments[1] {
		case "tracks", "albums", "sets", "reposts", "likes", "followers", "following":
			return "", 0
		}
		return domain.KindTrack, soundCloudTrackHeight
	default:
		return "", 0
	}
}
