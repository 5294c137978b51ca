package extractor

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/fetcher"
)

// ErrExtractorPanic is returned when an extractor panics. It is classified
// as permanent: the same page would panic again.
var ErrExtractorPanic = errors.New("extractor panicked")

// PageFetcher fetches a link target.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Page, error)
}

// Result is the outcome of resolving one URL.
type Result struct {
	Provider string
	Metadata *domain.Metadata
}

// Resolver selects a strategy, fetches the page and extracts metadata.
type Resolver struct {
	registry *Registry
	fetcher  PageFetcher
}

// NewResolver creates a Resolver.
func NewResolver(registry *Registry, f PageFetcher) *Resolver {
	return &Resolver{registry: registry, fetcher: f}
}

// Resolve returns the provider name even on failure so callers can label
// metrics. Errors match domain.ErrTransient or domain.ErrPermanent.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (Result, error) {
	ext := r.registry.Select(rawURL)
	res := Result{Provider: ext.Name()}

	page, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return res, err
	}

	md, err := safeExtract(ext, page)
	if err != nil {
		return res, err
	}
	res.Metadata = md
	return res, nil
}

func safeExtract(ext Extractor, page *fetcher.Page) (md *domain.Metadata, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			md = nil
			err = fmt.Errorf("%w: %w: %s: %v", ErrExtractorPanic, domain.ErrPermanent, ext.Name(), rec)
		}
	}()

	md, err = ext.Extract(page)
	if err != nil {
		if !errors.Is(err, domain.ErrPermanent) && !errors.Is(err, domain.ErrTransient) {
			err = fmt.Errorf("%w: %w", domain.ErrPermanent, err)
		}
		return nil, fmt.Errorf("%s extractor: %w", ext.Name(), err)
	}
	if md == nil {
		md = &domain.Metadata{}
	}
	return md, nil
}
