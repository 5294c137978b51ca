// Package events publishes link metadata updates to Redis Pub/Sub channels
// scoped to the container that owns the content.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
)

// ErrChannelUnavailable is returned when the owning container cannot be
// resolved, usually because the content was deleted. Callers skip the
// publish and do not retry.
var ErrChannelUnavailable = errors.New("event channel unavailable")

// ChannelResolver maps a content ID to the ID of its container.
type ChannelResolver interface {
	ChannelForContent(ctx context.Context, contentID string) (string, error)
}

// Publisher emits MetadataUpdatedEvents.
type Publisher struct {
	client   *redis.Client
	channels ChannelResolver
	cfg      Config
	logger   infralogger.Logger
	tracer   trace.Tracer
}

// NewPublisher creates a publisher. It returns nil when client is nil;
// Publish on a nil publisher is a no-op, so services can run without
// live updates.
func NewPublisher(client *redis.Client, channels ChannelResolver, cfg Config, log infralogger.Logger) *Publisher {
	if client == nil {
		return nil
	}
	cfg.SetDefaults()
	return &Publisher{
		client:   client,
		channels: channels,
		cfg:      cfg,
		logger:   log,
		tracer:   otel.Tracer("link-events"),
	}
}

// Channel returns the Pub/Sub channel for a container.
func (p *Publisher) Channel(containerID string) string {
	return p.cfg.ChannelPrefix + containerID
}

// Publish resolves the content's container and publishes the event to it.
// The error is for the caller to log; publishing is never retried.
func (p *Publisher) Publish(ctx context.Context, contentID, linkID string, md *domain.Metadata) error {
	if p == nil {
		return nil
	}

	ctx, span := p.tracer.Start(ctx, "events.publish",
		trace.WithAttributes(
			attribute.String("content_id", contentID),
			attribute.String("link_id", linkID),
		))
	defer span.End()

	containerID, err := p.channels.ChannelForContent(ctx, contentID)
	if err != nil {
		span.SetStatus(codes.Error, "channel lookup failed")
		return fmt.Errorf("%w: content %s: %w", ErrChannelUnavailable, contentID, err)
	}
	if containerID == "" {
		return fmt.Errorf("%w: content %s has no container", ErrChannelUnavailable, contentID)
	}

	payload, err := json.Marshal(domain.NewMetadataUpdatedEvent(contentID, linkID, md))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	channel := p.Channel(containerID)
	span.SetAttributes(attribute.String("channel", channel))

	receivers, err := p.client.Publish(pubCtx, channel, payload).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "redis publish failed")
		return fmt.Errorf("redis publish to %s: %w", channel, err)
	}

	p.logger.Debug("Published metadata update",
		infralogger.String("content_id", contentID),
		infralogger.String("link_id", linkID),
		infralogger.String("channel", channel),
		infralogger.Int64("receivers", receivers),
	)
	return nil
}
