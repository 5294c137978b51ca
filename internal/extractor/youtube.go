package extractor

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/fetcher"
)

const (
	providerYouTube = "youtube"
	youTubeHeight   = 315
	youTubeEmbed    = "https://www.youtube.com/embed/"
)

var youTubeID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// YouTube handles video and playlist pages.
type YouTube struct{}

// NewYouTube creates the video platform extractor.
func NewYouTube() *YouTube { return &YouTube{} }

func (*YouTube) Name() string { return providerYouTube }

func (*YouTube) Matches(u *url.URL) bool {
	return hostMatches(u, "youtube.com", "youtu.be", "youtube-nocookie.com")
}

func (*YouTube) Extract(page *fetcher.Page) (*domain.Metadata, error) {
	d, err := parseDocument(page)
	if err != nil {
		return nil, err
	}

	md := runTiers(d, youTubeLD)
	if md.SiteName == "" {
		md.SiteName = "YouTube"
	}
	md.Embed = youTubeEmbedFor(d)
	return md, nil
}

func youTubeLD(d *document) (*domain.Metadata, bool) {
	node, _ := findLD(d.jsonLD(), "VideoObject")
	if node == nil || node.str("name") == "" {
		return nil, false
	}
	return &domain.Metadata{
		Title:       node.str("name"),
		Description: node.str("description"),
		Image:       d.absolute(node.image("thumbnailUrl", "image")),
	}, true
}

// youTubeEmbedFor checks the request URL, then the final URL, then the
// page's canonical URL for a video or playlist reference.
func youTubeEmbedFor(d *document) *domain.Embed {
	candidates := d.urls()
	if canonical, err := url.Parse(d.canonicalURL()); err == nil {
		candidates = append(candidates, canonical)
	}

	for _, u := range candidates {
		if !hostMatches(u, "youtube.com", "youtu.be", "youtube-nocookie.com") {
			continue
		}
		if id := youTubeVideoID(u); id != "" {
			embedURL := youTubeEmbed + id
			if start := youTubeStart(u.Query().Get("t")); start > 0 {
				embedURL += "?start=" + strconv.Itoa(start)
			}
			return &domain.Embed{Provider: providerYouTube, EmbedURL: embedURL, Height: youTubeHeight, Kind: domain.KindVideo}
		}
		if list := u.Query().Get("list"); list != "" {
			return &domain.Embed{
				Provider: providerYouTube,
				EmbedURL: youTubeEmbed + "videoseries?list=" + url.QueryEscape(list),
				Height:   youTubeHeight,
				Kind:     domain.KindPlaylist,
			}
		}
	}
	return nil
}

func youTubeVideoID(u *url.URL) string {
	var id string
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch {
	case hostMatches(u, "youtu.be"):
		id = segments[0]
	case len(segments) >= 2 && (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live" || segments[0] == "v"):
		id = segments[1]
	case segments[0] == "watch":
		id = u.Query().Get("v")
	}

	if youTubeID.MatchString(id) {
		return id
	}
	return ""
}

// youTubeStart parses t=90, t=90s or t=1h2m3s into seconds.
func youTubeStart(t string) int {
	if t == "" {
		return 0
	}
	if n, err := strconv.Atoi(t); err == nil {
		return max(n, 0)
	}
	if dur, err := time.ParseDuration(t); err == nil {
		return max(int(dur.Seconds()), 0)
	}
	return 0
}
