package extractor

import (
	"net/url"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/fetcher"
)

const providerGeneric = "generic"

// Generic scrapes title, description, image and site name from open graph,
// twitter and plain HTML tags. It never produces an embed.
type Generic struct{}

// NewGeneric creates the catch-all extractor.
func NewGeneric() *Generic { return &Generic{} }

func (*Generic) Name() string { return providerGeneric }

// Matches accepts every URL.
func (*Generic) Matches(*url.URL) bool { return true }

func (*Generic) Extract(page *fetcher.Page) (*domain.Metadata, error) {
	d, err := parseDocument(page)
	if err != nil {
		return nil, err
	}
	return scrapeTags(d), nil
}

// scrapeTags is the last tier of every provider.
func scrapeTags(d *document) *domain.Metadata {
	title := d.meta("og:title", "twitter:title")
	if title == "" {
		title = d.title()
	}

	image := d.absolute(d.meta("og:image", "og:image:url", "og:image:secure_url", "twitter:image", "twitter:image:src"))
	if image == "" {
		image = d.absolute(d.linkHref("image_src"))
	}

	return &domain.Metadata{
		Title:       title,
		Description: d.meta("og:description", "twitter:description", "description"),
		Image:       image,
		SiteName:    d.meta("og:site_name", "application-name"),
	}
}
