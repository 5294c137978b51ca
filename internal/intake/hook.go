// Package intake is the content write path's entry into the pipeline. It
// turns newly created links into enrichment jobs without ever failing the
// write.
package intake

import (
	"context"
	"time"

	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/telemetry"
)

const defaultEnqueueTimeout = 2 * time.Second

// Enqueuer accepts enrichment jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job domain.EnrichmentJob) error
}

// Link is one newly created link of a content item.
type Link struct {
	ID  string `json:"id"  binding:"required"`
	URL string `json:"url" binding:"required"`
}

// Hook enqueues jobs for created links. Failures are logged and counted,
// never returned.
type Hook struct {
	queue     Enqueuer
	timeout   time.Duration
	logger    infralogger.Logger
	telemetry *telemetry.Provider
}

// NewHook creates a hook. A non-positive timeout uses two seconds.
func NewHook(q Enqueuer, timeout time.Duration, log infralogger.Logger, tp *telemetry.Provider) *Hook {
	if timeout <= 0 {
		timeout = defaultEnqueueTimeout
	}
	return &Hook{
		queue:     q,
		timeout:   timeout,
		logger:    log,
		telemetry: tp,
	}
}

// LinkCreated enqueues one link and reports whether it was queued. The
// enqueue outlives a cancelled request but never the hook's timeout.
func (h *Hook) LinkCreated(ctx context.Context, contentID, linkID, rawURL string) bool {
	job, err := domain.NewEnrichmentJob(contentID, linkID, rawURL)
	if err != nil {
		h.logger.Warn("Not enqueueing invalid link",
			infralogger.String("content_id", contentID),
			infralogger.String("link_id", linkID),
			infralogger.Error(err),
		)
		return false
	}

	enqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
	defer cancel()

	if enqErr := h.queue.Enqueue(enqCtx, job); enqErr != nil {
		h.telemetry.IncrementEnqueueFailures()
		h.logger.Error("Failed to enqueue enrichment job",
			infralogger.String("content_id", contentID),
			infralogger.String("link_id", linkID),
			infralogger.String("url", job.URL),
			infralogger.Error(enqErr),
		)
		return false
	}

	h.logger.Debug("Enqueued enrichment job",
		infralogger.String("content_id", contentID),
		infralogger.String("link_id", linkID),
	)
	return true
}

// LinksCreated enqueues every link of a content item and returns how many
// were queued.
func (h *Hook) LinksCreated(ctx context.Context, contentID string, links []Link) int {
	queued := 0
	for _, link := range links {
		if h.LinkCreated(ctx, contentID, link.ID, link.URL) {
			queued++
		}
	}
	return queued
}
