package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/intake"
)

// maxLinksPerContent caps one batch request.
const maxLinksPerContent = 50

type enrichLinkRequest struct {
	ContentID string `json:"content_id" binding:"required"`
	LinkID    string `json:"link_id"    binding:"required"`
	URL       string `json:"url"        binding:"required"`
}

type enrichContentLinksRequest struct {
	Links []intake.Link `json:"links" binding:"required,min=1,dive"`
}

// enrichLink accepts one created link. The response is 202 whether or not
// the job could be queued; the content write must never fail on the queue.
// POST /api/v1/links/enrich
func (r *Router) enrichLink(c *gin.Context) {
	var req enrichLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleValidationError(c, err)
		return
	}
	if _, err := domain.NewEnrichmentJob(req.ContentID, req.LinkID, req.URL); err != nil {
		handleValidationError(c, err)
		return
	}

	queued := r.hook.LinkCreated(c.Request.Context(), req.ContentID, req.LinkID, req.URL)

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"link_id": req.LinkID,
		"queued":  queued,
	})
}

// enrichContentLinks accepts every link of a newly created content item.
// POST /api/v1/contents/:id/links
func (r *Router) enrichContentLinks(c *gin.Context) {
	contentID := c.Param("id")

	var req enrichContentLinksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleValidationError(c, err)
		return
	}
	if len(req.Links) > maxLinksPerContent {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Too many links in one request",
		})
		return
	}
	for _, link := range req.Links {
		if _, err := domain.NewEnrichmentJob(contentID, link.ID, link.URL); err != nil {
			handleValidationError(c, err)
			return
		}
	}

	queued := r.hook.LinksCreated(c.Request.Context(), contentID, req.Links)
	if queued < len(req.Links) {
		infralogger.FromContext(c.Request.Context()).Warn("Some content links were not queued",
			infralogger.String("content_id", contentID),
			infralogger.Int("total", len(req.Links)),
			infralogger.Int("queued", queued),
		)
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":     "accepted",
		"content_id": contentID,
		"total":      len(req.Links),
		"queued":     queued,
	})
}

// getLink returns a link and its current metadata.
// GET /api/v1/links/:id
func (r *Router) getLink(c *gin.Context) {
	link, err := r.links.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleRepositoryError(c, err, "link")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"link":     link,
		"resolved": link.Resolved(),
	})
}

// getQueueStats returns the queue depths.
// GET /api/v1/queue/stats
func (r *Router) getQueueStats(c *gin.Context) {
	stats, err := r.stats.Stats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Queue unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pending":      stats.Pending,
		"processing":   stats.Processing,
		"delayed":      stats.Delayed,
		"total":        stats.Total(),
		"generated_at": time.Now().UTC(),
	})
}

func handleRepositoryError(c *gin.Context, err error, entityType string) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": entityType + " not found",
		})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Failed to get " + entityType,
	})
}

func handleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
	})
}
