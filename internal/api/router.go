// Package api exposes the enrichment pipeline over HTTP: intake endpoints
// for the content service, queue inspection and the operational routes.
package api

import (
	"context"

	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/intake"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/queue"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/telemetry"
)

// QueueStats reports queue depths.
type QueueStats interface {
	Stats(ctx context.Context) (queue.Stats, error)
}

// LinkReader loads a link with its metadata.
type LinkReader interface {
	GetByID(ctx context.Context, linkID string) (*domain.LinkRecord, error)
}

// Router holds the API dependencies.
type Router struct {
	hook      *intake.Hook
	stats     QueueStats
	links     LinkReader
	telemetry *telemetry.Provider
	checks    []infragin.HealthCheck
}

// NewRouter creates a router. links and tp may be nil; the link lookup
// route is then not registered and /metrics serves the default registry.
func NewRouter(
	hook *intake.Hook,
	stats QueueStats,
	links LinkReader,
	tp *telemetry.Provider,
	checks ...infragin.HealthCheck,
) *Router {
	return &Router{
		hook:      hook,
		stats:     stats,
		links:     links,
		telemetry: tp,
		checks:    checks,
	}
}

// NewServer builds the HTTP server with every route registered.
func (r *Router) NewServer(cfg infragin.Config, log infralogger.Logger) *infragin.Server {
	return infragin.NewServer(cfg, log, func(router *gin.Engine) {
		router.Use(r.telemetry.HTTPMiddleware())
		infragin.RegisterHealthRoutes(router, cfg.ServiceName, cfg.ServiceVersion, r.checks...)
		router.GET("/metrics", gin.WrapH(r.telemetry.Handler()))
		r.setupServiceRoutes(router)
	})
}

func (r *Router) setupServiceRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	links := v1.Group("/links")
	links.POST("/enrich", r.enrichLink)
	if r.links != nil {
		links.GET("/:id", r.getLink)
	}

	v1.POST("/contents/:id/links", r.enrichContentLinks)
	v1.GET("/queue/stats", r.getQueueStats)
}
