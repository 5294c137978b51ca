package queue

import "time"

const (
	defaultKeyPrefix      = "link-enricher"
	defaultEnqueueTimeout = 2 * time.Second
	defaultPromoteBatch   = 100
)

// Config holds queue configuration.
type Config struct {
	// KeyPrefix namespaces the pending, processing and delayed keys.
	KeyPrefix      string        `env:"QUEUE_KEY_PREFIX" yaml:"key_prefix"`
	EnqueueTimeout time.Duration `yaml:"enqueue_timeout"`
	// PromoteBatch caps how many due delayed jobs move to pending per dequeue.
	PromoteBatch int `yaml:"promote_batch"`
	// DisableRecover skips moving orphaned processing entries back to pending
	// on start-up. Set it when several instances share one queue.
	DisableRecover bool `env:"QUEUE_DISABLE_RECOVER" yaml:"disable_recover"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = defaultKeyPrefix
	}
	if c.EnqueueTimeout <= 0 {
		c.EnqueueTimeout = defaultEnqueueTimeout
	}
	if c.PromoteBatch <= 0 {
		c.PromoteBatch = defaultPromoteBatch
	}
}
