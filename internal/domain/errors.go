package domain

import "errors"

var (
	// ErrNotFound is returned when a link or content row does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidJob is returned when an enrichment job is missing an ID or has
	// an unusable URL.
	ErrInvalidJob = errors.New("invalid enrichment job")

	// ErrNilMetadata is returned when persisting a nil metadata record. The
	// fallback is an empty Metadata, never nil.
	ErrNilMetadata = errors.New("metadata must not be nil")

	// ErrTransient classifies failures worth retrying: timeouts, transport
	// errors, rate limiting and 5xx responses.
	ErrTransient = errors.New("transient failure")

	// ErrPermanent classifies failures that will not improve on retry: 4xx
	// responses, unsupported content and bad URLs.
	ErrPermanent = errors.New("permanent failure")
)

// IsTransient reports whether err is classified as retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
