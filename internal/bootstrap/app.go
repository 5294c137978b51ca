// Package bootstrap wires the link-enricher service together.
//
// Start runs these phases in order:
//
//	0. Config and logger
//	1. Profiling (pprof, Pyroscope) when enabled
//	2. PostgreSQL
//	3. Redis
//	4. Services: fetcher, resolver, queue, event publisher, worker pool
//	5. Queue recovery and worker start
//	6. HTTP server
//	7. Run until SIGINT/SIGTERM, then shut down in reverse order
package bootstrap

import (
	"context"
	"fmt"

	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-enricher/infrastructure/profiling"
)

// Start initializes and runs the link-enricher service until interrupted.
func Start(configPath string) error {
	ctx := context.Background()

	// Phase 0: Load config and create logger
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := CreateLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Phase 1: Profiling
	components := &Components{Timeout: cfg.Service.ShutdownTimeout + cfg.Worker.ShutdownGrace}
	components.PprofServer = profiling.StartPprofServer(cfg.Profiling, log)
	components.Profiler, err = profiling.StartPyroscope(cfg.Profiling, cfg.Service.Name, cfg.Service.Version, log)
	if err != nil {
		log.Warn("Continuous profiling disabled", infralogger.Error(err))
	}

	// abort releases whatever started so far.
	abort := func(err error) error {
		_ = Shutdown(log, components)
		return err
	}

	// Phase 2: Database
	components.DB, err = SetupDatabase(ctx, cfg, log)
	if err != nil {
		return abort(fmt.Errorf("failed to connect to database: %w", err))
	}

	// Phase 3: Redis
	components.Redis, err = SetupRedis(ctx, cfg, log)
	if err != nil {
		return abort(fmt.Errorf("failed to connect to redis: %w", err))
	}

	// Phase 4: Services
	svc := SetupServices(cfg, components.DB, components.Redis, log)

	// Phase 5: Recover orphans and start workers
	RecoverQueue(ctx, cfg, svc.Queue, log)
	if startErr := svc.Pool.Start(ctx); startErr != nil {
		return abort(fmt.Errorf("failed to start worker pool: %w", startErr))
	}
	components.Pool = svc.Pool

	// Phase 6: HTTP server
	components.Server = SetupHTTPServer(cfg, svc, components.DB, log)
	log.Info("Starting HTTP server",
		infralogger.String("host", cfg.Service.Host),
		infralogger.Int("port", cfg.Service.Port),
	)
	errChan := components.Server.StartAsync()

	// Phase 7: Run until interrupted
	return RunUntilInterrupt(log, components, errChan)
}
