package bootstrap

import (
	"github.com/jmoiron/sqlx"

	infragin "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/api"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/config"
)

// SetupHTTPServer creates the HTTP server. Redis backs the queue, so its
// check is critical; the database only degrades health.
func SetupHTTPServer(cfg *config.Config, svc *Services, db *sqlx.DB, log infralogger.Logger) *infragin.Server {
	router := api.NewRouter(svc.Hook, svc.Queue, svc.Links, svc.Telemetry,
		infragin.HealthCheck{Name: "redis", Critical: true, Ping: svc.Queue.Ping},
		infragin.HealthCheck{Name: "database", Ping: db.PingContext},
	)
	return router.NewServer(cfg.Service.ServerConfig(), log)
}
