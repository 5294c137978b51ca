package bootstrap

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/config"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/database"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/events"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/extractor"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/fetcher"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/intake"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/queue"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/telemetry"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/worker"
)

// Services holds the wired pipeline.
type Services struct {
	Queue     *queue.Queue
	Links     *database.LinkRepository
	Resolver  *extractor.Resolver
	Publisher *events.Publisher
	Telemetry *telemetry.Provider
	Pool      *worker.Pool
	Hook      *intake.Hook
}

// NewResolver builds the fetcher and the extractor chain. It needs no
// storage, so the CLI can resolve a URL on its own.
func NewResolver(cfg *config.Config, log infralogger.Logger) *extractor.Resolver {
	f := fetcher.New(cfg.Fetcher, log.With(infralogger.String("component", "fetcher")))
	return extractor.NewResolver(extractor.DefaultRegistry(), f)
}

// NewChannelResolver returns the content → container lookup, cached in
// Redis unless the cache is disabled.
func NewChannelResolver(cfg *config.Config, db *sqlx.DB, rdb *redis.Client, log infralogger.Logger) events.ChannelResolver {
	var channels events.ChannelResolver = database.NewContentRepository(db)
	if cfg.Events.CacheEnabled() {
		channels = events.NewCachedChannelResolver(channels, rdb, cfg.Queue.KeyPrefix, cfg.Events.ChannelCacheTTL, log)
	}
	return channels
}

// SetupServices wires the queue, the worker pool and the intake hook.
func SetupServices(cfg *config.Config, db *sqlx.DB, rdb *redis.Client, log infralogger.Logger) *Services {
	tp := telemetry.NewProvider()
	q := queue.New(rdb, cfg.Queue)
	links := database.NewLinkRepository(db)
	resolver := NewResolver(cfg, log)

	eventLog := log.With(infralogger.String("component", "events"))
	publisher := events.NewPublisher(rdb, NewChannelResolver(cfg, db, rdb, eventLog), cfg.Events, eventLog)

	workerLog := log.With(infralogger.String("component", "worker"))
	processor := worker.NewProcessor(links, resolver, publisher, cfg.Worker, workerLog, tp)
	pool := worker.NewPool(q, processor, cfg.Worker, workerLog, tp)

	hook := intake.NewHook(q, cfg.Queue.EnqueueTimeout, log.With(infralogger.String("component", "intake")), tp)

	return &Services{
		Queue:     q,
		Links:     links,
		Resolver:  resolver,
		Publisher: publisher,
		Telemetry: tp,
		Pool:      pool,
		Hook:      hook,
	}
}

// RecoverQueue moves jobs orphaned in the processing list by a previous
// crash back to pending. A failure is logged; the service still starts.
func RecoverQueue(ctx context.Context, cfg *config.Config, q *queue.Queue, log infralogger.Logger) {
	if cfg.Queue.DisableRecover {
		log.Info("Queue recovery disabled")
		return
	}

	n, err := q.Recover(ctx)
	if err != nil {
		log.Error("Failed to recover orphaned jobs", infralogger.Error(err))
		return
	}
	if n > 0 {
		log.Warn("Recovered orphaned jobs", infralogger.Int("count", n))
	}
}
