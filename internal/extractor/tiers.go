package extractor

import "github.com/jonesrussell/north-cloud/link-enricher/internal/domain"

// tier is one parse attempt. It returns ok=false to hand over to the next
// tier; it never fails.
type tier func(d *document) (*domain.Metadata, bool)

// runTiers overlays the first successful tier on the generic tag scrape.
// When every tier declines, the generic scrape is returned as-is.
func runTiers(d *document, tiers ...tier) *domain.Metadata {
	base := scrapeTags(d)
	for _, t := range tiers {
		if result, ok := t(d); ok {
			return overlay(base, result)
		}
	}
	return base
}

// overlay copies every non-empty field of top onto a copy of base.
func overlay(base, top *domain.Metadata) *domain.Metadata {
	out := *base
	if top == nil {
		return &out
	}
	if top.Title != "" {
		out.Title = top.Title
	}
	if top.Description != "" {
		out.Description = top.Description
	}
	if top.Image != "" {
		out.Image = top.Image
	}
	if top.SiteName != "" {
		out.SiteName = top.SiteName
	}
	if top.Embed != nil {
		embed := *top.Embed
		out.Embed = &embed
	}
	return &out
}
