// Package fetcher performs the bounded outbound GET shared by every
// extractor: one request, explicit timeout, capped redirects and body size,
// an identifying user agent, and no script execution.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/jonesrussell/north-cloud/link-enricher/infrastructure/circuitbreaker"
	infrahttp "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/http"
	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
)

const acceptHeader = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.1"

// Page is a fetched HTML document decoded to UTF-8.
type Page struct {
	// URL is the final URL after redirects.
	URL         *url.URL
	RequestURL  string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher fetches link targets.
type Fetcher struct {
	client   *http.Client
	cfg      Config
	breakers *circuitbreaker.Group
	limiter  *hostLimiter
	logger   infralogger.Logger
}

// New creates a Fetcher. Each host gets its own circuit breaker that trips
// only on transient failures.
func New(cfg Config, log infralogger.Logger) *Fetcher {
	cfg = cfg.WithDefaults()

	client := infrahttp.NewClient(&infrahttp.ClientConfig{
		Timeout:       cfg.Timeout,
		CheckRedirect: RedirectPolicy(cfg.MaxRedirects),
		PublicOnly:    !cfg.AllowPrivateNetworks,
	})

	breakers := circuitbreaker.NewGroup(circuitbreaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		Timeout:          cfg.BreakerCooldown,
		IdleTTL:          cfg.BreakerCooldown,
		IsFailure:        countsAgainstHost,
		OnStateChange: func(host string, from, to circuitbreaker.State) {
			log.Warn("Host circuit changed state",
				infralogger.String("host", host),
				infralogger.String("from", from.String()),
				infralogger.String("to", to.String()),
			)
		},
	})

	return &Fetcher{
		client:   client,
		cfg:      cfg,
		breakers: breakers,
		limiter:  newHostLimiter(cfg.HostRateLimit, cfg.HostBurst, cfg.BreakerCooldown),
		logger:   log,
	}
}

// countsAgainstHost ignores our own cancellations during shutdown.
func countsAgainstHost(err error) bool {
	return domain.IsTransient(err) && !errors.Is(err, context.Canceled)
}

// OpenCircuits lists hosts currently refused by their breaker.
func (f *Fetcher) OpenCircuits() []string {
	return f.breakers.Open()
}

// Fetch GETs rawURL. Failures are *FetchError values classified as
// transient or permanent.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	target, err := domain.ParseLinkURL(rawURL)
	if err != nil {
		return nil, permanent(rawURL, 0, err)
	}

	var page *Page
	host := strings.ToLower(target.Hostname())
	if !f.cfg.AllowPrivateNetworks && infrahttp.IsBlockedHost(host) {
		return nil, permanent(rawURL, 0, fmt.Errorf("%w: %s", ErrBlockedDestination, host))
	}
	if err := f.limiter.Wait(ctx, host); err != nil {
		return nil, transient(rawURL, 0, fmt.Errorf("host rate limit: %w", err))
	}
	execErr := f.breakers.Execute(ctx, host, func(ctx context.Context) error {
		var fetchErr error
		page, fetchErr = f.do(ctx, target)
		return fetchErr
	})
	if errors.Is(execErr, circuitbreaker.ErrCircuitOpen) {
		return nil, transient(rawURL, 0, execErr)
	}
	if execErr != nil {
		return nil, execErr
	}
	return page, nil
}

func (f *Fetcher) do(ctx context.Context, target *url.URL) (*Page, error) {
	rawURL := target.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, permanent(rawURL, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrTooManyRedirects) {
			return nil, permanent(rawURL, 0, err)
		}
		if errors.Is(err, infrahttp.ErrBlockedAddress) {
			return nil, permanent(rawURL, 0, fmt.Errorf("%w: %w", ErrBlockedDestination, err))
		}
		// Timeouts, resets, DNS and cancellation all land here.
		return nil, transient(rawURL, 0, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, statusError(rawURL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return nil, permanent(rawURL, resp.StatusCode, fmt.Errorf("%w: %q", ErrUnsupportedContent, contentType))
	}

	body, err := readBody(resp.Body, contentType, f.cfg.MaxBodyBytes)
	if err != nil {
		return nil, transient(rawURL, resp.StatusCode, err)
	}

	f.logger.Debug("Fetched link target",
		infralogger.String("url", rawURL),
		infralogger.String("final_url", resp.Request.URL.String()),
		infralogger.Int("status", resp.StatusCode),
		infralogger.Int("bytes", len(body)),
	)

	return &Page{
		URL:         resp.Request.URL,
		RequestURL:  rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}

// readBody reads at most limit bytes and converts them to UTF-8. A page
// larger than limit is truncated; the head of the document is what the
// extractors need.
func readBody(r io.Reader, contentType string, limit int64) ([]byte, error) {
	utf8Reader, err := charset.NewReader(io.LimitReader(r, limit), contentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	body, err := io.ReadAll(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// isHTML accepts HTML and XHTML. A missing Content-Type is given the benefit
// of the doubt.
func isHTML(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
