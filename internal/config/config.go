// Package config assembles the link-enricher configuration from a YAML file
// and the environment.
package config

import (
	"time"

	infraconfig "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/config"
	infragin "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-enricher/infrastructure/profiling"
	infraredis "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/redis"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/database"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/events"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/fetcher"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/queue"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/worker"
)

// Default configuration values.
const (
	defaultServiceName     = "link-enricher"
	defaultVersion         = "0.1.0"
	defaultHost            = "0.0.0.0"
	defaultServicePort     = 8095
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 15 * time.Second
	defaultRedisAddress    = "localhost:6379"
	defaultDBHost          = "localhost"
	defaultDBName          = "north_cloud"
	defaultDBUser          = "postgres"
	// Workers each hold a pooled connection while blocked on the queue.
	redisPoolHeadroom = 10
)

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig     `yaml:"service"`
	Database  database.Config   `yaml:"database"`
	Redis     infraredis.Config `yaml:"redis"`
	Logging   logger.Config     `yaml:"logging"`
	Queue     queue.Config      `yaml:"queue"`
	Worker    worker.Config     `yaml:"worker"`
	Fetcher   fetcher.Config    `yaml:"fetcher"`
	Events    events.Config     `yaml:"events"`
	Profiling profiling.Config  `yaml:"profiling"`
}

// ServiceConfig holds service-level and HTTP server configuration.
type ServiceConfig struct {
	Name            string        `yaml:"name"`
	Version         string        `yaml:"version"`
	Host            string        `env:"LINK_ENRICHER_HOST" yaml:"host"`
	Port            int           `env:"LINK_ENRICHER_PORT" yaml:"port"`
	Debug           bool          `env:"APP_DEBUG"          yaml:"debug"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ServerConfig converts the service section into the HTTP server config.
func (s ServiceConfig) ServerConfig() infragin.Config {
	return infragin.Config{
		Host:            s.Host,
		Port:            s.Port,
		Debug:           s.Debug,
		ReadTimeout:     s.ReadTimeout,
		WriteTimeout:    s.WriteTimeout,
		ShutdownTimeout: s.ShutdownTimeout,
		ServiceName:     s.Name,
		ServiceVersion:  s.Version,
	}
}

// Load loads configuration from the specified path. A missing file is
// allowed; the environment then supplies everything.
func Load(path string) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, setDefaults)
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)

	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}

	cfg.Logging.SetDefaults()
	if cfg.Service.Debug && cfg.Logging.Level == "info" {
		cfg.Logging.Level = "debug"
	}

	cfg.Queue.SetDefaults()
	cfg.Worker = cfg.Worker.WithDefaults()
	cfg.Fetcher = cfg.Fetcher.WithDefaults()
	cfg.Events.SetDefaults()
	cfg.Profiling.SetDefaults()

	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = cfg.Worker.Count + redisPoolHeadroom
	}
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Name == "" {
		svc.Name = defaultServiceName
	}
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
	if svc.Host == "" {
		svc.Host = defaultHost
	}
	if svc.Port == 0 {
		svc.Port = defaultServicePort
	}
	if svc.ReadTimeout == 0 {
		svc.ReadTimeout = defaultReadTimeout
	}
	if svc.WriteTimeout == 0 {
		svc.WriteTimeout = defaultWriteTimeout
	}
	if svc.ShutdownTimeout == 0 {
		svc.ShutdownTimeout = defaultShutdownTimeout
	}
}

func setDatabaseDefaults(db *database.Config) {
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.User == "" {
		db.User = defaultDBUser
	}
	if db.DBName == "" {
		db.DBName = defaultDBName
	}
	db.SetDefaults()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := infraconfig.ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if err := infraconfig.ValidateRequired("redis.address", c.Redis.Address); err != nil {
		return err
	}
	if err := infraconfig.ValidateRequired("database.host", c.Database.Host); err != nil {
		return err
	}
	if err := infraconfig.ValidatePort("database.port", c.Database.Port); err != nil {
		return err
	}
	if err := infraconfig.ValidateRequired("database.dbname", c.Database.DBName); err != nil {
		return err
	}
	if err := infraconfig.ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if err := infraconfig.ValidatePositive("worker.count", c.Worker.Count); err != nil {
		return err
	}
	if err := infraconfig.ValidatePositive("worker.max_attempts", c.Worker.MaxAttempts); err != nil {
		return err
	}
	if err := infraconfig.ValidatePositive("fetcher.max_body_bytes", c.Fetcher.MaxBodyBytes); err != nil {
		return err
	}
	if c.Worker.JobTimeout < c.Fetcher.Timeout {
		return &infraconfig.ValidationError{
			Field:   "worker.job_timeout",
			Message: "must not be shorter than fetcher.timeout",
		}
	}
	return nil
}
