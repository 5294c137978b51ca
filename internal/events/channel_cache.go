package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
)

// CachedChannelResolver keeps content → container lookups in Redis. Cache
// errors are logged and the lookup falls through to the wrapped resolver.
// Only successful lookups are cached, so a deleted content keeps resolving
// for at most one TTL.
type CachedChannelResolver struct {
	next      ChannelResolver
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    infralogger.Logger
}

// NewCachedChannelResolver wraps next with a Redis cache. Entries live
// under "<keyPrefix>:channel:<content id>", so deployments sharing a Redis
// stay apart when their key prefixes differ.
func NewCachedChannelResolver(
	next ChannelResolver,
	client *redis.Client,
	keyPrefix string,
	ttl time.Duration,
	log infralogger.Logger,
) *CachedChannelResolver {
	return &CachedChannelResolver{
		next:      next,
		client:    client,
		keyPrefix: keyPrefix + ":channel:",
		ttl:       ttl,
		logger:    log,
	}
}

func (r *CachedChannelResolver) key(contentID string) string {
	return r.keyPrefix + contentID
}

// ChannelForContent implements ChannelResolver.
func (r *CachedChannelResolver) ChannelForContent(ctx context.Context, contentID string) (string, error) {
	key := r.key(contentID)

	cached, err := r.client.Get(ctx, key).Result()
	switch {
	case err == nil && cached != "":
		return cached, nil
	case err != nil && !errors.Is(err, redis.Nil):
		r.logger.Warn("Channel cache read failed",
			infralogger.String("content_id", contentID),
			infralogger.String("redis_key", key),
			infralogger.Error(err),
		)
	}

	containerID, err := r.next.ChannelForContent(ctx, contentID)
	if err != nil {
		return "", fmt.Errorf("resolve channel: %w", err)
	}

	if setErr := r.client.Set(ctx, key, containerID, r.ttl).Err(); setErr != nil {
		r.logger.Warn("Channel cache write failed",
			infralogger.String("content_id", contentID),
			infralogger.String("redis_key", key),
			infralogger.Error(setErr),
		)
	}
	return containerID, nil
}
