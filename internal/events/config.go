package events

import "time"

const (
	defaultChannelPrefix   = "links:container:"
	defaultPublishTimeout  = 2 * time.Second
	defaultChannelCacheTTL = 5 * time.Minute
)

// Config holds event publishing configuration.
type Config struct {
	// ChannelPrefix is prepended to the container ID to form the Pub/Sub channel.
	ChannelPrefix  string        `env:"EVENTS_CHANNEL_PREFIX" yaml:"channel_prefix"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
	// ChannelCacheTTL bounds how long a content's container stays cached.
	// Zero after defaults is not possible; use a negative value to disable
	// the cache.
	ChannelCacheTTL time.Duration `yaml:"channel_cache_ttl"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.ChannelPrefix == "" {
		c.ChannelPrefix = defaultChannelPrefix
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = defaultPublishTimeout
	}
	if c.ChannelCacheTTL == 0 {
		c.ChannelCacheTTL = defaultChannelCacheTTL
	}
}

// CacheEnabled reports whether container lookups should be cached.
func (c Config) CacheEnabled() bool {
	return c.ChannelCacheTTL > 0
}
