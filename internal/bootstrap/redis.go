package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	infraredis "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/redis"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/config"
)

// SetupRedis connects the client shared by the queue, the event publisher
// and the channel cache.
func SetupRedis(ctx context.Context, cfg *config.Config, log infralogger.Logger) (*redis.Client, error) {
	client, err := infraredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	log.Info("Connected to Redis",
		infralogger.String("address", cfg.Redis.Address),
		infralogger.Int("db", cfg.Redis.DB),
		infralogger.Int("pool_size", cfg.Redis.PoolSize),
	)
	return client, nil
}
