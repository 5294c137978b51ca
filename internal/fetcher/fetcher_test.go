package fetcher_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/link-enricher/infrastructure/circuitbreaker"
	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/fetcher"
)

// newFetcher allows private networks so httptest servers on 127.0.0.1 are
// reachable.
func newFetcher(cfg fetcher.Config) *fetcher.Fetcher {
	cfg.AllowPrivateNetworks = true
	return fetcher.New(cfg, infralogger.NewNop())
}

func TestFetch_Success(t *testing.T) {
	t.Parallel()

	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, "<html><head><title>Hi</title></head></html>")
	}))
	t.Cleanup(srv.Close)

	page, err := newFetcher(fetcher.Config{UserAgent: "test-agent/1.0"}).Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)

	assert.Equal(t, "test-agent/1.0", gotUA)
	assert.Contains(t, gotAccept, "text/html")
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, string(page.Body), "<title>Hi</title>")
	assert.Equal(t, srv.URL+"/page", page.URL.String())
}

func TestFetch_FollowsRedirects(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html></html>")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	page, err := newFetcher(fetcher.Config{}).Fetch(context.Background(), srv.URL+"/start")
	require.NoError(t, err)
	assert.Equal(t, "/final", page.URL.Path)
	assert.Equal(t, srv.URL+"/start", page.RequestURL)
}

func TestFetch_RedirectCap(t *testing.T) {
	t.Parallel()

	var hops atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hops.Add(1)
		http.Redirect(w, r, fmt.Sprintf("/hop/%d", n), http.StatusFound)
	}))
	t.Cleanup(srv.Close)

	_, err := newFetcher(fetcher.Config{MaxRedirects: 2}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, fetcher.ErrTooManyRedirects)
	assert.ErrorIs(t, err, domain.ErrPermanent)
	assert.Equal(t, int32(3), hops.Load(), "original request plus two followed redirects")
}

func TestFetch_StatusClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    int
		transient bool
	}{
		{status: http.StatusBadRequest},
		{status: http.StatusForbidden},
		{status: http.StatusNotFound},
		{status: http.StatusGone},
		{status: http.StatusRequestTimeout, transient: true},
		{status: http.StatusTooManyRequests, transient: true},
		{status: http.StatusInternalServerError, transient: true},
		{status: http.StatusBadGateway, transient: true},
		{status: http.StatusServiceUnavailable, transient: true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(srv.Close)

			_, err := newFetcher(fetcher.Config{}).Fetch(context.Background(), srv.URL)
			require.Error(t, err)

			var fe *fetcher.FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.status, fe.StatusCode)
			assert.Equal(t, tt.transient, errors.Is(err, domain.ErrTransient))
			assert.Equal(t, !tt.transient, errors.Is(err, domain.ErrPermanent))
		})
	}
}

func TestFetch_RejectsNonHTML(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	t.Cleanup(srv.Close)

	_, err := newFetcher(fetcher.Config{}).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, fetcher.ErrUnsupportedContent)
	assert.ErrorIs(t, err, domain.ErrPermanent)
	assert.Equal(t, "unsupported_content", fetcher.Kind(err))
}

func TestFetch_BodyCap(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, strings.Repeat("a", 4096))
	}))
	t.Cleanup(srv.Close)

	page, err := newFetcher(fetcher.Config{MaxBodyBytes: 64}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, page.Body, 64)
}

func TestFetch_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	start := time.Now()
	_, err := newFetcher(fetcher.Config{Timeout: 50 * time.Millisecond}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetch_DecodesCharset(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<html><title>caf\xe9</title></html>"))
	}))
	t.Cleanup(srv.Close)

	page, err := newFetcher(fetcher.Config{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, string(page.Body), "café")
}

func TestFetch_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := newFetcher(fetcher.Config{}).Fetch(context.Background(), "ftp://example.com/file")
	assert.ErrorIs(t, err, domain.ErrPermanent)
}

func TestFetch_CircuitOpensPerHost(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	f := newFetcher(fetcher.Config{BreakerFailureThreshold: 2, BreakerCooldown: time.Minute})
	ctx := context.Background()

	for range 2 {
		_, err := f.Fetch(ctx, srv.URL)
		require.ErrorIs(t, err, domain.ErrTransient)
	}

	_, err := f.Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.ErrorIs(t, err, domain.ErrTransient, "an open circuit is retried later")
	assert.Equal(t, int32(2), hits.Load())
	assert.Len(t, f.OpenCircuits(), 1)
}

func TestFetch_PermanentFailuresDoNotTripCircuit(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	f := newFetcher(fetcher.Config{BreakerFailureThreshold: 1})
	for range 3 {
		_, err := f.Fetch(context.Background(), srv.URL)
		require.ErrorIs(t, err, domain.ErrPermanent)
	}
	assert.Equal(t, int32(3), hits.Load())
	assert.Empty(t, f.OpenCircuits())
}

func TestFetch_HostRateLimit(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><title>ok</title></head></html>"))
	}))
	t.Cleanup(srv.Close)

	f := newFetcher(fetcher.Config{HostRateLimit: 0.5, HostBurst: 1})

	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransient, "a throttled fetch is retried later")
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetch_BlocksInternalDestinations(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><title>internal admin</title></head></html>"))
	}))
	t.Cleanup(srv.Close)

	port := srv.URL[strings.LastIndex(srv.URL, ":")+1:]
	f := fetcher.New(fetcher.Config{}, infralogger.NewNop())

	tests := []struct {
		name string
		url  string
	}{
		{"localhost", "http://localhost:" + port + "/admin"},
		{"localhost uppercase", "http://LOCALHOST:" + port + "/admin"},
		{"localhost subdomain", "http://admin.localhost:" + port + "/"},
		{"loopback literal", srv.URL + "/admin"},
		{"loopback ipv6", "http://[::1]:" + port + "/"},
		{"private 10.x", "http://10.0.0.1/"},
		{"private 192.168.x", "http://192.168.1.1/"},
		{"unspecified", "http://0.0.0.0:" + port + "/"},
		{"aws metadata", "http://169.254.169.254/latest/meta-data/"},
		{"gcp metadata", "http://metadata.google.internal/computeMetadata/v1/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := f.Fetch(context.Background(), tt.url)
			require.Error(t, err)
			assert.ErrorIs(t, err, fetcher.ErrBlockedDestination)
			assert.ErrorIs(t, err, domain.ErrPermanent)
			assert.Equal(t, "blocked_destination", fetcher.Kind(err))
		})
	}

	t.Cleanup(func() { assert.Zero(t, hits.Load(), "no request reached the internal server") })
}
