// Package domain contains the core types of the link enrichment pipeline.
package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// EnrichmentJob is one pending request to resolve metadata for a link.
// AttemptCount travels with the payload so retries survive restarts.
type EnrichmentJob struct {
	ContentID    string    `json:"content_id"`
	LinkID       string    `json:"link_id"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"created_at"`
	AttemptCount int       `json:"attempt_count"`
}

// NewEnrichmentJob validates its arguments and returns a job with
// AttemptCount zero.
func NewEnrichmentJob(contentID, linkID, rawURL string) (EnrichmentJob, error) {
	job := EnrichmentJob{
		ContentID: strings.TrimSpace(contentID),
		LinkID:    strings.TrimSpace(linkID),
		URL:       strings.TrimSpace(rawURL),
		CreatedAt: time.Now().UTC(),
	}
	if err := job.Validate(); err != nil {
		return EnrichmentJob{}, err
	}
	return job, nil
}

// Validate checks the job's IDs and that URL is an absolute http(s) URL.
func (j EnrichmentJob) Validate() error {
	if j.ContentID == "" {
		return fmt.Errorf("%w: content_id is required", ErrInvalidJob)
	}
	if j.LinkID == "" {
		return fmt.Errorf("%w: link_id is required", ErrInvalidJob)
	}
	if _, err := ParseLinkURL(j.URL); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	if j.AttemptCount < 0 {
		return fmt.Errorf("%w: attempt_count must not be negative", ErrInvalidJob)
	}
	return nil
}

// NextAttempt returns a copy of the job charged with one more attempt.
func (j EnrichmentJob) NextAttempt() EnrichmentJob {
	next := j
	next.AttemptCount++
	return next
}

// ParseLinkURL parses rawURL and requires an http or https scheme and a host.
func ParseLinkURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("url %q has no host", rawURL)
	}
	return u, nil
}
