package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pelagic-data/vessel-mdm/internal/config"
	"github.com/pelagic-data/vessel-mdm/internal/dlq"
	"github.com/pelagic-data/vessel-mdm/internal/registry"
)

// Server exposes the registry read-only over HTTP. Imports stay CLI-only;
// the server never mutates registry state.
type Server struct {
	reporter *Reporter
	repo     *registry.Repository
	rejects  *dlq.Store
	cfg      config.ServerConfig
}

// NewServer creates the reporting server.
func NewServer(reporter *Reporter, repo *registry.Repository, rejects *dlq.Store, cfg config.ServerConfig) *Server {
	return &Server{reporter: reporter, repo: repo, rejects: rejects, cfg: cfg}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(throttle(s.cfg.RequestsPerSec))

	r.Get("/health", s.handleHealth)
	r.Get("/reports/registry", s.handleRegistryReport)
	r.Get("/batches", s.handleListBatches)
	r.Get("/batches/{id}", s.handleBatchReport)
	r.Get("/batches/{id}/rejects", s.handleBatchRejects)
	r.Get("/vessels/{id}", s.handleVesselReport)

	return r
}

// ListenAndServe runs the server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down reporting server", zap.String("component", "reporting"))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting reporting server",
		zap.String("component", "reporting"),
		zap.Int("port", s.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "reporting: server listen")
	}
	return nil
}

// throttle applies a shared request rate across all clients. The reporting
// surface fronts aggregate queries; a flood of them would starve imports.
func throttle(requestsPerSec float64) func(http.Handler) http.Handler {
	if requestsPerSec <= 0 {
		requestsPerSec = 20
	}
	lim := rate.NewLimiter(rate.Limit(requestsPerSec), int(requestsPerSec))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegistryReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.reporter.RegistryReport(r.Context())
	if err != nil {
		serveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		writeError(w, http.StatusBadRequest, "source query parameter is required")
		return
	}
	batches, err := s.repo.ListBatches(r.Context(), source, 50)
	if err != nil {
		serveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

func (s *Server) handleBatchReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.reporter.BatchReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleBatchRejects(w http.ResponseWriter, r *http.Request) {
	entries, err := s.rejects.List(r.Context(), dlq.Filter{
		BatchID: chi.URLParam(r, "id"),
		Reason:  r.URL.Query().Get("reason"),
	})
	if err != nil {
		serveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleVesselReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.reporter.VesselReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func serveError(w http.ResponseWriter, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	zap.L().Error("request failed", zap.String("component", "reporting"), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
