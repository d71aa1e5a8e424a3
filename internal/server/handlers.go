package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/discovery"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Kotae query engine API",
		"version": apiVersion,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleQuery always answers 200: failures come back inside the envelope
// with query_type "error" rather than as an HTTP error.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("query request", zap.String("query", req.Query))
	resp := s.engine.ProcessQuery(r.Context(), &req)
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQueryHistory(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	recs, err := s.engine.GetHistory(r.Context(), limit)
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to get query history")
		return
	}
	if recs == nil {
		recs = []models.HistoryRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"queries": recs})
}

func (s *Server) handleQueryMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := s.engine.GetMetrics(r.Context())
	if err != nil {
		s.logger.Error("metrics query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to get metrics")
		return
	}
	s.respondJSON(w, http.StatusOK, m)
}

type connectRequest struct {
	ConnectionString string `json:"connection_string"`
}

// handleConnectDatabase accepts the connection string as JSON or as a form
// field and runs schema discovery against the target.
func (s *Server) handleConnectDatabase(w http.ResponseWriter, r *http.Request) {
	var connStr string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req connectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		connStr = req.ConnectionString
	} else {
		connStr = r.FormValue("connection_string")
	}
	if connStr == "" {
		s.respondError(w, http.StatusBadRequest, "Connection string is required")
		return
	}

	schema, err := s.engine.Connect(r.Context(), connStr)
	if err != nil {
		s.logger.Error("database connection failed", zap.Error(err))
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Database connected successfully",
		"schema": map[string]any{
			"tables_count":        len(schema.Tables),
			"relationships_count": len(schema.Relationships),
			"tables":              schema.TableNames(),
			"table_purposes":      discovery.PurposeGroups(schema),
		},
	})
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	connStr := r.URL.Query().Get("connection_string")
	schema, ok := s.engine.SchemaFor(connStr)
	if !ok {
		s.respondError(w, http.StatusNotFound, "Schema not found. Please connect to database first.")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"tables":         schema.Tables,
		"relationships":  schema.Relationships,
		"table_purposes": discovery.PurposeGroups(schema),
		"sample_data":    schema.Samples,
	})
}

func (s *Server) handleVisualizeSchema(w http.ResponseWriter, r *http.Request) {
	connStr := r.URL.Query().Get("connection_string")
	graph, err := s.engine.VisualizeSchema(r.Context(), connStr)
	if err != nil {
		s.logger.Error("schema visualization failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError,
			fmt.Sprintf("Schema visualization failed: %v", err))
		return
	}
	s.respondJSON(w, http.StatusOK, graph)
}

// handleUploadDocuments stages the uploaded files and processes them in the
// background; the response carries the job id to poll.
func (s *Server) handleUploadDocuments(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.respondError(w, http.StatusBadRequest, "no files provided")
		return
	}

	for _, fh := range files {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !s.extensionAllowed(ext) {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf(
				"File type %s not allowed. Allowed types: %v",
				ext, s.config.Ingest.AllowedExtensions))
			return
		}
		if fh.Size > s.config.Ingest.MaxFileSize {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf(
				"file %s exceeds the %d byte limit", fh.Filename, s.config.Ingest.MaxFileSize))
			return
		}
	}

	if err := os.MkdirAll(s.config.Ingest.UploadDir, 0o755); err != nil {
		s.logger.Error("upload dir unavailable", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Upload failed: storage unavailable")
		return
	}
	stageDir, err := os.MkdirTemp(s.config.Ingest.UploadDir, "job-*")
	if err != nil {
		s.logger.Error("staging dir failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Upload failed: storage unavailable")
		return
	}

	paths := make([]string, 0, len(files))
	for _, fh := range files {
		dst := filepath.Join(stageDir, filepath.Base(fh.Filename))
		if err := saveUpload(fh, dst); err != nil {
			os.RemoveAll(stageDir)
			s.logger.Error("saving upload failed", zap.String("file", fh.Filename), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Upload failed: %v", err))
			return
		}
		paths = append(paths, dst)
	}

	job := s.jobs.Start(len(paths))
	go func() {
		defer os.RemoveAll(stageDir)
		s.processor.ProcessBatch(context.Background(), s.jobs, job.ID, paths)
	}()

	s.respondJSON(w, http.StatusOK, map[string]any{
		"job_id":      job.ID,
		"status":      models.JobProcessing,
		"total_files": len(paths),
		"message":     fmt.Sprintf("Started processing %d files", len(paths)),
	})
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, ok := s.jobs.Get(jobID)
	if !ok {
		s.respondError(w, http.StatusNotFound, "Job not found")
		return
	}
	s.respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	docs, err := s.store.ListDocuments(ctx, offset, limit)
	if err != nil {
		s.logger.Error("listing documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	total, err := s.store.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("counting documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to count documents")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     total,
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	if _, err := s.store.GetDocument(ctx, id); err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.store.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	fragCount, err := s.store.CountFragments(ctx)
	if err != nil {
		s.logger.Error("status: count fragments failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]any{
		"documents":          docCount,
		"fragments":          fragCount,
		"active_connections": s.engine.ActiveConnections(),
		"config": map[string]any{
			"database_path":        s.config.Storage.DatabasePath,
			"upload_dir":           s.config.Ingest.UploadDir,
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"cache_ttl_seconds":    s.config.Cache.TTLSeconds,
			"similarity_threshold": s.config.Search.SimilarityThreshold,
		},
	}
	if usage, err := storage.MeasureDiskUsage(s.config.Storage.DatabasePath, s.config.Ingest.UploadDir); err == nil {
		resp["disk_usage"] = usage
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) extensionAllowed(ext string) bool {
	for _, allowed := range s.config.Ingest.AllowedExtensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return out.Close()
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
