package worker

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-enricher/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/events"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/extractor"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/fetcher"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/telemetry"
)

// bookkeepingTimeout bounds persistence and publishing once the fetch is
// done. They run detached from the job context so a shutdown that cancels
// the fetch late does not lose a result that is already in hand.
const bookkeepingTimeout = 10 * time.Second

// LinkStore is the subset of the link repository the processor needs.
type LinkStore interface {
	GetMetadata(ctx context.Context, linkID string) (*domain.Metadata, error)
	Persist(ctx context.Context, linkID string, md *domain.Metadata) (bool, error)
}

// MetadataResolver fetches and extracts metadata for a URL.
type MetadataResolver interface {
	Resolve(ctx context.Context, rawURL string) (extractor.Result, error)
}

// EventPublisher announces resolved metadata.
type EventPublisher interface {
	Publish(ctx context.Context, contentID, linkID string, md *domain.Metadata) error
}

// Action tells the pool what to do with a delivery.
type Action int

const (
	// ActionAck removes the job; it reached a terminal state.
	ActionAck Action = iota
	// ActionRequeue schedules another attempt after Decision.Backoff.
	ActionRequeue
	// ActionNack returns the job unchanged because it was interrupted.
	ActionNack
)

func (a Action) String() string {
	switch a {
	case ActionAck:
		return "ack"
	case ActionRequeue:
		return "requeue"
	case ActionNack:
		return "nack"
	default:
		return "unknown"
	}
}

// Decision is the result of handling one job.
type Decision struct {
	Action   Action
	Backoff  time.Duration
	Outcome  string
	Provider string
}

// Processor runs the per-job state machine: dedup guard, resolve, persist,
// publish. It never touches the queue.
type Processor struct {
	store     LinkStore
	resolver  MetadataResolver
	publisher EventPublisher
	cfg       Config
	logger    infralogger.Logger
	telemetry *telemetry.Provider
}

// NewProcessor creates a processor. publisher and tp may be nil.
func NewProcessor(
	store LinkStore,
	resolver MetadataResolver,
	publisher EventPublisher,
	cfg Config,
	log infralogger.Logger,
	tp *telemetry.Provider,
) *Processor {
	return &Processor{
		store:     store,
		resolver:  resolver,
		publisher: publisher,
		cfg:       cfg.WithDefaults(),
		logger:    log,
		telemetry: tp,
	}
}

// Handle processes one job. ctx is the job context; when it is cancelled
// (not timed out) the job is handed back with ActionNack.
func (p *Processor) Handle(ctx context.Context, job domain.EnrichmentJob) Decision {
	ctx, span := p.telemetry.StartSpan(ctx, "enrichment.job",
		attribute.String("content_id", job.ContentID),
		attribute.String("link_id", job.LinkID),
		attribute.Int("attempt", job.AttemptCount),
	)
	defer span.End()

	log := p.logger.With(
		infralogger.String("content_id", job.ContentID),
		infralogger.String("link_id", job.LinkID),
		infralogger.Int("attempt", job.AttemptCount),
	)

	if skip, reason := p.alreadyHandled(ctx, job, log); skip {
		log.Debug("Skipping job", infralogger.String("reason", reason))
		return Decision{Action: ActionAck, Outcome: telemetry.OutcomeSkipped}
	}

	res, err := p.resolver.Resolve(ctx, job.URL)
	decision := Decision{Provider: res.Provider}
	span.SetAttributes(attribute.String("provider", res.Provider))

	md := res.Metadata
	decision.Outcome = telemetry.OutcomeResolved

	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			log.Info("Job interrupted by shutdown", infralogger.String("url", job.URL))
			decision.Action = ActionNack
			decision.Outcome = telemetry.OutcomeAbandoned
			return decision
		}

		kind := fetcher.Kind(err)
		p.telemetry.RecordFetchError(kind)
		span.RecordError(err)

		if domain.IsTransient(err) && job.AttemptCount < p.cfg.MaxAttempts {
			decision.Action = ActionRequeue
			decision.Backoff = retry.Backoff(job.AttemptCount+1, p.cfg.BackoffBase, p.cfg.BackoffMax)
			decision.Outcome = telemetry.OutcomeRetried
			log.Warn("Transient failure, requeueing",
				infralogger.String("url", job.URL),
				infralogger.String("kind", kind),
				infralogger.Duration("backoff", decision.Backoff),
				infralogger.Error(err),
			)
			return decision
		}

		log.Info("Resolution failed, persisting fallback",
			infralogger.String("url", job.URL),
			infralogger.String("kind", kind),
			infralogger.Bool("transient", domain.IsTransient(err)),
			infralogger.Error(err),
		)
		md = &domain.Metadata{}
		decision.Outcome = telemetry.OutcomeFallback
	}
	if md == nil {
		md = &domain.Metadata{}
	}

	decision.Action = ActionAck

	bookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()

	updated, err := p.persist(bookCtx, job.LinkID, md)
	if err != nil {
		span.SetStatus(codes.Error, "persist failed")
		log.Error("Dropping job after persistence failures", infralogger.Error(err))
		decision.Outcome = telemetry.OutcomeDropped
		return decision
	}
	if !updated {
		log.Debug("Link gone or already resolved, skipping publish")
		decision.Outcome = telemetry.OutcomeSkipped
		return decision
	}

	p.publish(bookCtx, job, md, log)
	return decision
}

// alreadyHandled is the dedup guard. A read error is logged and does not
// stop processing; persistence is monotonic either way.
func (p *Processor) alreadyHandled(ctx context.Context, job domain.EnrichmentJob, log infralogger.Logger) (bool, string) {
	md, err := p.store.GetMetadata(ctx, job.LinkID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return true, "link deleted"
	case err != nil:
		log.Warn("Dedup guard read failed", infralogger.Error(err))
		return false, ""
	case md != nil:
		return true, "already resolved"
	default:
		return false, ""
	}
}

func (p *Processor) persist(ctx context.Context, linkID string, md *domain.Metadata) (bool, error) {
	var updated bool
	err := retry.Retry(ctx, retry.Config{
		MaxAttempts:  p.cfg.PersistAttempts,
		InitialDelay: p.cfg.PersistRetryDelay,
		IsRetryable: func(err error) bool {
			return !errors.Is(err, domain.ErrNilMetadata)
		},
	}, func() error {
		var persistErr error
		updated, persistErr = p.store.Persist(ctx, linkID, md)
		return persistErr
	})
	return updated, err
}

func (p *Processor) publish(ctx context.Context, job domain.EnrichmentJob, md *domain.Metadata, log infralogger.Logger) {
	if p.publisher == nil {
		return
	}

	err := p.publisher.Publish(ctx, job.ContentID, job.LinkID, md)
	switch {
	case err == nil:
	case errors.Is(err, events.ErrChannelUnavailable):
		log.Debug("No channel for content, event skipped", infralogger.Error(err))
	default:
		p.telemetry.IncrementPublishFailures()
		log.Warn("Failed to publish metadata update", infralogger.Error(err))
	}
}
