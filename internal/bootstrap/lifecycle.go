package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	infragin "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-enricher/infrastructure/profiling"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/worker"
)

const (
	signalChannelBufferSize = 1
	defaultShutdownTimeout  = 30 * time.Second
)

// Components are the running pieces Shutdown stops. Nil fields are skipped.
type Components struct {
	Server      *infragin.Server
	Pool        *worker.Pool
	DB          *sqlx.DB
	Redis       *redis.Client
	PprofServer *profiling.PprofServer
	Profiler    *profiling.PyroscopeProfiler
	// Timeout bounds the whole shutdown.
	Timeout time.Duration
}

// RunUntilInterrupt blocks until SIGINT/SIGTERM or a server error, then
// shuts everything down.
func RunUntilInterrupt(log infralogger.Logger, c *Components, errChan <-chan error) error {
	sigChan := make(chan os.Signal, signalChannelBufferSize)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case serverErr := <-errChan:
		log.Error("Server error", infralogger.Error(serverErr))
		_ = Shutdown(log, c)
		return fmt.Errorf("server error: %w", serverErr)
	case sig := <-sigChan:
		log.Info("Shutdown signal received", infralogger.String("signal", sig.String()))
		return Shutdown(log, c)
	}
}

// Shutdown stops intake first, then drains the workers, then closes the
// clients they were using.
func Shutdown(log infralogger.Logger, c *Components) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var firstErr error
	record := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	if c.Server != nil {
		log.Info("Stopping HTTP server")
		if err := c.Server.Shutdown(ctx); err != nil {
			log.Error("Failed to stop HTTP server", infralogger.Error(err))
			record(fmt.Errorf("http server: %w", err))
		}
	}

	if c.Pool != nil {
		log.Info("Stopping worker pool")
		if err := c.Pool.Stop(ctx); err != nil {
			log.Error("Failed to stop worker pool", infralogger.Error(err))
			record(fmt.Errorf("worker pool: %w", err))
		}
	}

	if c.Redis != nil {
		log.Info("Closing Redis client")
		if err := c.Redis.Close(); err != nil {
			log.Error("Failed to close Redis client", infralogger.Error(err))
		}
	}

	if c.DB != nil {
		log.Info("Closing database")
		if err := c.DB.Close(); err != nil {
			log.Error("Failed to close database", infralogger.Error(err))
		}
	}

	if err := c.PprofServer.Shutdown(ctx); err != nil {
		log.Warn("Failed to stop pprof server", infralogger.Error(err))
	}
	if err := c.Profiler.Stop(); err != nil {
		log.Warn("Failed to stop profiler", infralogger.Error(err))
	}

	log.Info("Shutdown complete")
	return firstErr
}
