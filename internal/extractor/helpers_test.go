package extractor_test

import (
	"net/url"
	"testing"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/fetcher"
)

func newPage(t *testing.T, rawURL, html string) *fetcher.Page {
	t.Helper()

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse %q: %v", rawURL, err)
	}
	return &fetcher.Page{
		URL:         u,
		RequestURL:  rawURL,
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(html),
	}
}
