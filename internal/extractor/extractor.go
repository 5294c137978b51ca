// Package extractor turns fetched link targets into normalized metadata.
//
// Each provider is a strategy with a host predicate and an ordered list of
// parse tiers. A Registry evaluates the providers in order once per job and
// always ends with the generic extractor, so adding a provider is a pure
// addition.
package extractor

import (
	"net/url"
	"strings"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/fetcher"
)

// Extractor is one provider strategy.
type Extractor interface {
	// Name identifies the provider in embeds, logs and metrics.
	Name() string
	// Matches reports whether the strategy handles u.
	Matches(u *url.URL) bool
	// Extract parses a fetched page. Missing or malformed structured data
	// is never an error; the strategy falls through to its next tier.
	Extract(page *fetcher.Page) (*domain.Metadata, error)
}

// Registry selects the extractor for a URL.
type Registry struct {
	extractors []Extractor
	fallback   Extractor
}

// NewRegistry evaluates extractors in the given order and falls back to the
// generic extractor.
func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors, fallback: NewGeneric()}
}

// DefaultRegistry holds every built-in provider.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewYouTube(),
		NewSpotify(),
		NewSoundCloud(),
		NewBandcamp(),
	)
}

// Select returns the first extractor whose predicate matches rawURL, or the
// generic extractor. It never returns nil.
func (r *Registry) Select(rawURL string) Extractor {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return r.fallback
	}
	for _, e := range r.extractors {
		if e.Matches(u) {
			return e
		}
	}
	return r.fallback
}

// Names lists the providers in evaluation order, generic last.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.extractors)+1)
	for _, e := range r.extractors {
		names = append(names, e.Name())
	}
	return append(names, r.fallback.Name())
}

// hostMatches reports whether u's host is one of domains or a subdomain of
// one.
func hostMatches(u *url.URL, domains ...string) bool {
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
