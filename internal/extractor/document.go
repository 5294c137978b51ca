package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/fetcher"
)

// document is a parsed page plus the URLs needed to resolve relative links
// and recover provider IDs.
type document struct {
	doc        *goquery.Document
	base       *url.URL
	requestURL *url.URL
}

func parseDocument(page *fetcher.Page) (*document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w: %w", domain.ErrPermanent, err)
	}

	d := &document{doc: doc, base: page.URL}
	if u, parseErr := url.Parse(page.RequestURL); parseErr == nil {
		d.requestURL = u
	}
	if d.base == nil {
		d.base = d.requestURL
	}
	return d, nil
}

// urls returns the request URL and the final URL, skipping missing ones.
func (d *document) urls() []*url.URL {
	out := make([]*url.URL, 0, 2)
	if d.requestURL != nil {
		out = append(out, d.requestURL)
	}
	if d.base != nil && (d.requestURL == nil || d.base.String() != d.requestURL.String()) {
		out = append(out, d.base)
	}
	return out
}

// meta returns the first non-empty content of meta[property=key] or
// meta[name=key].
func (d *document) meta(keys ...string) string {
	for _, key := range keys {
		for _, attr := range []string{"property", "name"} {
			sel := fmt.Sprintf("meta[%s=%q]", attr, key)
			if v, ok := d.doc.Find(sel).First().Attr("content"); ok {
				if v = strings.TrimSpace(v); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

// linkHref returns the href of the first link[rel=rel].
func (d *document) linkHref(rel string) string {
	href, _ := d.doc.Find(fmt.Sprintf("link[rel=%q]", rel)).First().Attr("href")
	return strings.TrimSpace(href)
}

// title returns the text of the <title> element.
func (d *document) title() string {
	return strings.Join(strings.Fields(d.doc.Find("title").First().Text()), " ")
}

// absolute resolves ref against the page URL. Only http(s) results are
// returned.
func (d *document) absolute(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if d.base != nil {
		u = d.base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// canonicalURL prefers og:url, then link[rel=canonical], then the final URL.
func (d *document) canonicalURL() string {
	if v := d.absolute(d.meta("og:url")); v != "" {
		return v
	}
	if v := d.absolute(d.linkHref("canonical")); v != "" {
		return v
	}
	if d.base != nil {
		return d.base.String()
	}
	return ""
}
