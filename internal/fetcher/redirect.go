package fetcher

import "net/http"

// RedirectPolicy returns a CheckRedirect function that follows redirects
// until maxHops have been taken, then fails with ErrTooManyRedirects.
func RedirectPolicy(maxHops int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) > maxHops {
			return ErrTooManyRedirects
		}
		return nil
	}
}
