package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamop/switchwatch/internal/logging"
)

// Server exposes the Prometheus registry for the monitor process. The API
// serves its own HTTP traffic; this listener exists so probe metrics stay
// scrapable even when no API runs alongside the monitor.
type Server struct {
	server *http.Server
	log    *logging.Logger
	port   int
}

// NewServer creates the metrics listener on the given port
func NewServer(port int, log *logging.Logger) *Server {
	if log == nil {
		log = logging.NewNopLogger()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		log:  log,
		port: port,
	}
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.log.Infof("Starting metrics server on port %d", s.port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the metrics server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down metrics server")
	return s.server.Shutdown(ctx)
}

// healthHandler answers liveness checks against the metrics port
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
