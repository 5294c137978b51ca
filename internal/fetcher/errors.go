package fetcher

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonesrussell/north-cloud/link-enricher/infrastructure/circuitbreaker"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
)

var (
	// ErrTooManyRedirects is returned when the redirect hop limit is exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrUnsupportedContent is returned for responses that are not HTML.
	ErrUnsupportedContent = errors.New("unsupported content type")

	// ErrHTTPStatus is wrapped by errors built from a non-2xx response.
	ErrHTTPStatus = errors.New("unexpected http status")

	// ErrBlockedDestination is returned for links to internal hosts.
	ErrBlockedDestination = errors.New("blocked destination")
)

// FetchError describes a failed fetch. It matches domain.ErrTransient or
// domain.ErrPermanent under errors.Is, depending on Transient.
type FetchError struct {
	URL        string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is classifies the error against the domain failure kinds.
func (e *FetchError) Is(target error) bool {
	switch target {
	case domain.ErrTransient:
		return e.Transient
	case domain.ErrPermanent:
		return !e.Transient
	default:
		return false
	}
}

func transient(rawURL string, status int, err error) *FetchError {
	return &FetchError{URL: rawURL, StatusCode: status, Transient: true, Err: err}
}

func permanent(rawURL string, status int, err error) *FetchError {
	return &FetchError{URL: rawURL, StatusCode: status, Err: err}
}

// statusError classifies a non-2xx status. Rate limiting, request timeouts
// and server errors are worth retrying; every other status is final.
func statusError(rawURL string, status int) *FetchError {
	err := fmt.Errorf("%w: %s", ErrHTTPStatus, http.StatusText(status))
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return transient(rawURL, status, err)
	case status >= http.StatusInternalServerError:
		return transient(rawURL, status, err)
	default:
		return permanent(rawURL, status, err)
	}
}

// Kind returns a short label for metrics and logs.
func Kind(err error) string {
	var fe *FetchError
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrTooManyRedirects):
		return "too_many_redirects"
	case errors.Is(err, ErrUnsupportedContent):
		return "unsupported_content"
	case errors.Is(err, ErrBlockedDestination):
		return "blocked_destination"
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return "circuit_open"
	case errors.As(err, &fe) && fe.StatusCode >= http.StatusInternalServerError:
		return "http_5xx"
	case errors.As(err, &fe) && fe.StatusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case errors.As(err, &fe) && fe.StatusCode >= http.StatusBadRequest:
		return "http_4xx"
	case errors.Is(err, domain.ErrTransient):
		return "transport"
	default:
		return "other"
	}
}
