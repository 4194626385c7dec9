package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"wealth-tracker-go/internal/assets"
	"wealth-tracker-go/internal/config"
)

// Server exposes the asset service over HTTP. Routing and marshalling live
// here; all domain behavior stays in the assets service.
type Server struct {
	server    *http.Server
	service   *assets.Service
	logger    *zap.Logger
	jwtSecret string
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(cfg *config.Config, service *assets.Service, logger *zap.Logger) *Server {
	s := &Server{
		service:   service,
		logger:    logger.Named("http-server"),
		jwtSecret: cfg.Auth.JwtSecret,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)

	mux.HandleFunc("GET /api/assets", s.authenticated(s.listAssetsHandler))
	mux.HandleFunc("POST /api/assets", s.authenticated(s.createAssetHandler))
	mux.HandleFunc("PUT /api/assets/{id}", s.authenticated(s.updateAssetHandler))
	mux.HandleFunc("DELETE /api/assets/{id}", s.authenticated(s.deleteAssetHandler))
	mux.HandleFunc("POST /api/assets/batch-delete", s.authenticated(s.batchDeleteHandler))
	mux.HandleFunc("POST /api/assets/{id}/refresh", s.authenticated(s.refreshAssetHandler))
	mux.HandleFunc("POST /api/assets/refresh-all", s.authenticated(s.refreshAllHandler))
	mux.HandleFunc("GET /api/assets/overview", s.authenticated(s.overviewHandler))
	mux.HandleFunc("POST /api/assets/import-screenshot", s.authenticated(s.importScreenshotHandler))
	mux.HandleFunc("GET /api/rebalancing/suggestions", s.authenticated(s.rebalancingHandler))
	mux.HandleFunc("GET /api/reports/daily", s.authenticated(s.dailyReportHandler))

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

// Handler exposes the routing table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the structured status+detail error shape used across
// the API.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
