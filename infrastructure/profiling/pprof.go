// Package profiling exposes runtime profiles: a pprof HTTP endpoint for
// ad-hoc captures and a Pyroscope agent for continuous profiling.
package profiling

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"

	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
)

// PprofServer serves the standard /debug/pprof endpoints on its own listener.
type PprofServer struct {
	srv    *http.Server
	logger infralogger.Logger
}

// StartPprofServer starts the pprof listener in the background. It returns
// nil when pprof is disabled.
func StartPprofServer(cfg Config, log infralogger.Logger) *PprofServer {
	if !cfg.PprofEnabled {
		return nil
	}
	cfg.SetDefaults()

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	s := &PprofServer{
		srv: &http.Server{
			Addr:              cfg.PprofAddress,
			Handler:           mux,
			ReadHeaderTimeout: pprofReadHeaderTimeout,
		},
		logger: log,
	}

	go func() {
		log.Info("Starting pprof server", infralogger.String("address", cfg.PprofAddress))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("pprof server error", infralogger.Error(err))
		}
	}()

	return s
}

// Shutdown stops the listener. Safe on a nil server.
func (s *PprofServer) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
