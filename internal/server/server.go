// Package server provides the HTTP API for Kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/engine"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/observability"
	"github.com/hyperjump/kotae/internal/storage"
)

const apiVersion = "1.0.0"

// Server is the HTTP server for the Kotae API.
type Server struct {
	engine    *engine.Engine
	processor *ingest.Processor
	jobs      *ingest.JobTracker
	store     storage.Store
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	eng *engine.Engine,
	processor *ingest.Processor,
	jobs *ingest.JobTracker,
	store storage.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:    eng,
		processor: processor,
		jobs:      jobs,
		store:     store,
		config:    cfg,
		logger:    logger,
	}
}

// Router assembles the API routes with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(observability.MetricsMiddleware)
	r.Use(corsMiddleware)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/status", s.handleStatus)

	r.Post("/api/query", s.handleQuery)
	r.Get("/api/query/history", s.handleQueryHistory)
	r.Get("/api/query/metrics", s.handleQueryMetrics)

	r.Post("/api/ingest/database", s.handleConnectDatabase)
	r.Post("/api/ingest/documents", s.handleUploadDocuments)
	r.Get("/api/ingest/status/{jobID}", s.handleIngestStatus)
	r.Get("/api/ingest/schema", s.handleGetSchema)

	r.Get("/api/schema/visualize", s.handleVisualizeSchema)

	r.Get("/api/documents", s.handleListDocuments)
	r.Delete("/api/documents/{id}", s.handleDeleteDocument)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
