package fetcher

import "time"

const (
	defaultUserAgent        = "NorthCloud-LinkEnricher/1.0 (+https://northcloud.one)"
	defaultTimeout          = 10 * time.Second
	defaultMaxBodyBytes     = 2 << 20
	defaultMaxRedirects     = 5
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 60 * time.Second
)

// Config holds outbound fetch configuration.
type Config struct {
	UserAgent string `env:"FETCH_USER_AGENT" yaml:"user_agent"`
	// Timeout bounds one fetch from dial to the last body byte.
	Timeout      time.Duration `env:"FETCH_TIMEOUT" yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	MaxRedirects int           `yaml:"max_redirects"`
	// BreakerFailureThreshold consecutive transient failures against one
	// host open its circuit for BreakerCooldown.
	BreakerFailureThreshold int           `yaml:"breaker_failure_threshold"`
	BreakerCooldown         time.Duration `yaml:"breaker_cooldown"`
	// HostRateLimit caps requests per second to a single host. Zero
	// leaves hosts unthrottled.
	HostRateLimit float64 `env:"FETCH_HOST_RATE_LIMIT" yaml:"host_rate_limit"`
	HostBurst     int     `yaml:"host_burst"`
	// AllowPrivateNetworks lets fetches reach loopback, private and
	// link-local addresses. Off in production.
	AllowPrivateNetworks bool `env:"FETCH_ALLOW_PRIVATE_NETWORKS" yaml:"allow_private_networks"`
}

// WithDefaults returns a copy of the config with default values applied for zero-value fields.
func (c Config) WithDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = defaultMaxRedirects
	}
	if c.BreakerFailureThreshold <= 0 {
		c.BreakerFailureThreshold = defaultBreakerThreshold
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = defaultBreakerCooldown
	}
	return c
}
