package worker

import "time"

const (
	defaultCount             = 3
	defaultJobTimeout        = 30 * time.Second
	defaultMaxAttempts       = 5
	defaultBackoffBase       = 2 * time.Second
	defaultBackoffMax        = 5 * time.Minute
	defaultShutdownGrace     = 15 * time.Second
	defaultPollTimeout       = time.Second
	defaultPersistAttempts   = 3
	defaultPersistRetryDelay = 200 * time.Millisecond
	defaultStatsInterval     = 15 * time.Second
)

// Config holds worker pool configuration.
type Config struct {
	// Count is the number of concurrent workers.
	Count int `env:"WORKER_COUNT" yaml:"count"`
	// JobTimeout bounds one job end to end, including the fetch.
	JobTimeout time.Duration `yaml:"job_timeout"`
	// MaxAttempts is how many times a transiently failing job is requeued
	// before the fallback is persisted.
	MaxAttempts int           `env:"WORKER_MAX_ATTEMPTS" yaml:"max_attempts"`
	BackoffBase time.Duration `yaml:"backoff_base"`
	BackoffMax  time.Duration `yaml:"backoff_max"`
	// ShutdownGrace is how long Stop lets in-flight jobs finish before
	// cancelling them.
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
	// PollTimeout is how long one dequeue blocks; it also bounds how quickly
	// an idle worker notices Stop.
	PollTimeout       time.Duration `yaml:"poll_timeout"`
	PersistAttempts   int           `yaml:"persist_attempts"`
	PersistRetryDelay time.Duration `yaml:"persist_retry_delay"`
	// StatsInterval is how often queue depth gauges are refreshed. Negative
	// disables the reporter.
	StatsInterval time.Duration `yaml:"stats_interval"`
}

// WithDefaults returns a copy of c with unset fields defaulted.
func (c Config) WithDefaults() Config {
	if c.Count <= 0 {
		c.Count = defaultCount
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = defaultBackoffMax
	}
	if c.BackoffMax < c.BackoffBase {
		c.BackoffMax = c.BackoffBase
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = defaultShutdownGrace
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = defaultPollTimeout
	}
	if c.PersistAttempts <= 0 {
		c.PersistAttempts = defaultPersistAttempts
	}
	if c.PersistRetryDelay <= 0 {
		c.PersistRetryDelay = defaultPersistRetryDelay
	}
	if c.StatsInterval == 0 {
		c.StatsInterval = defaultStatsInterval
	}
	return c
}
