// Package ingest turns source files into stored documents with embedded
// fragments: extract, chunk, embed, persist.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/observability"
	"github.com/hyperjump/kotae/internal/storage"
)

const defaultBatchSize = 32

// Processor ingests files into the document store.
type Processor struct {
	store       storage.Store
	embedder    embedding.Embedder
	extractor   *extract.Extractor
	batchSize   int
	allowedExts []string
	logger      *zap.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = l }
}

// WithBatchSize sets how many chunks are embedded per model call.
func WithBatchSize(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithAllowedExtensions restricts ingestion to the given extensions.
// An empty list allows everything the extractor can read.
func WithAllowedExtensions(exts []string) ProcessorOption {
	return func(p *Processor) { p.allowedExts = exts }
}

// NewProcessor creates a processor. extractor may be nil; when nil, files
// are read as plain text.
func NewProcessor(store storage.Store, embedder embedding.Embedder, extractor *extract.Extractor, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:     store,
		embedder:  embedder,
		extractor: extractor,
		batchSize: defaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DocIDForPath returns a stable document ID for a file path. The same path
// always maps to the same document, so re-processing a changed file replaces
// the earlier version instead of accumulating copies.
func DocIDForPath(path string) string {
	normalized := filepath.Clean(path)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+normalized)).String()
}

// ProcessFile ingests a single file and returns its document record along
// with the number of fragments stored. On failure the record, when one was
// created, carries the stored error state.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*models.Document, int, error) {
	doc, fragments, err := p.processFile(ctx, path)
	observability.ObserveIngestFile(err != nil)
	return doc, fragments, err
}

func (p *Processor) processFile(ctx context.Context, path string) (*models.Document, int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, 0, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(p.allowedExts) > 0 && !extensionAllowed(ext, p.allowedExts) {
		return nil, 0, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, 0, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, 0, fmt.Errorf("not a regular file: %s", absPath)
	}

	docID := DocIDForPath(absPath)
	if err := p.store.DeleteDocument(ctx, docID); err != nil {
		return nil, 0, fmt.Errorf("replace document: %w", err)
	}

	doc := &models.Document{
		ID:          docID,
		Filename:    filepath.Base(absPath),
		ContentType: contentTypeForExt(ext),
		FileSize:    info.Size(),
		UploadDate:  time.Now().UTC(),
		Processed:   models.StatusProcessing,
	}
	if err := p.store.CreateDocument(ctx, doc); err != nil {
		return nil, 0, fmt.Errorf("store document: %w", err)
	}

	fragments, err := p.ingest(ctx, doc, absPath, ext)
	if err != nil {
		doc.Processed = models.StatusError
		doc.ErrorMessage = err.Error()
		if uerr := p.store.UpdateDocumentStatus(ctx, doc.ID, models.StatusError, err.Error()); uerr != nil {
			p.logger.Warn("failed to record error state",
				zap.String("document", doc.ID), zap.Error(uerr))
		}
		return doc, 0, err
	}

	doc.Processed = models.StatusCompleted
	if err := p.store.UpdateDocumentStatus(ctx, doc.ID, models.StatusCompleted, ""); err != nil {
		return doc, fragments, fmt.Errorf("mark completed: %w", err)
	}
	p.logger.Info("document ingested",
		zap.String("document", doc.ID),
		zap.String("filename", doc.Filename),
		zap.Int("fragments", fragments))
	return doc, fragments, nil
}

func (p *Processor) ingest(ctx context.Context, doc *models.Document, absPath, ext string) (int, error) {
	content, err := p.extractContent(absPath)
	if err != nil {
		return 0, fmt.Errorf("extract content: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return 0, fmt.Errorf("no content extracted from document")
	}

	chunks := ChunkContent(content, docTypeForExt(ext))
	if len(chunks) == 0 {
		return 0, nil
	}

	frags := make([]*models.Fragment, 0, len(chunks))
	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		vecs, err := p.embedder.EmbedBatch(ctx, chunks[start:end])
		if err != nil {
			return 0, fmt.Errorf("embed chunks: %w", err)
		}
		for i, vec := range vecs {
			frags = append(frags, &models.Fragment{
				DocumentID: doc.ID,
				ChunkIndex: start + i,
				Content:    chunks[start+i],
				Embedding:  vec,
				TokenCount: WordCount(chunks[start+i]),
			})
		}
	}
	if err := p.store.BatchCreateFragments(ctx, frags); err != nil {
		return 0, fmt.Errorf("store fragments: %w", err)
	}
	return len(frags), nil
}

// ProcessBatch ingests a set of files under a tracked job, recording
// per-file outcomes. File failures are isolated; the job still completes
// with its counts unless the context is canceled.
func (p *Processor) ProcessBatch(ctx context.Context, tracker *JobTracker, jobID string, paths []string) {
	for _, path := range paths {
		doc, fragments, err := p.ProcessFile(ctx, path)
		if err != nil {
			p.logger.Warn("file ingestion failed", zap.String("path", path), zap.Error(err))
			outcome := models.FileOutcome{
				Filename: filepath.Base(path),
				Status:   models.JobError,
				Error:    err.Error(),
			}
			if doc != nil {
				outcome.DocumentID = doc.ID
			}
			tracker.RecordFailure(jobID, outcome)
			continue
		}
		tracker.RecordSuccess(jobID, models.FileOutcome{
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Status:     models.JobCompleted,
			Fragments:  fragments,
		})
	}
	tracker.Finish(jobID, ctx.Err())
	p.refreshFragmentGauge(ctx)
}

// ProcessDirectory walks dir and ingests every regular file with an allowed
// extension. Per-file failures are counted, not fatal.
func (p *Processor) ProcessDirectory(ctx context.Context, dir string) (processed, failed int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(p.allowedExts) > 0 && !extensionAllowed(ext, p.allowedExts) {
			return nil
		}
		// Resolve symlinks so only regular files are ingested.
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if _, _, perr := p.ProcessFile(ctx, path); perr != nil {
			failed++
			p.logger.Warn("file ingestion failed", zap.String("path", path), zap.Error(perr))
		} else {
			processed++
		}
		return ctx.Err()
	})
	p.refreshFragmentGauge(ctx)
	return processed, failed, err
}

// RemoveFile deletes the document derived from path along with its fragments.
func (p *Processor) RemoveFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	if err := p.store.DeleteDocument(ctx, DocIDForPath(absPath)); err != nil {
		return err
	}
	p.refreshFragmentGauge(ctx)
	return nil
}

func (p *Processor) refreshFragmentGauge(ctx context.Context) {
	if n, err := p.store.CountFragments(ctx); err == nil {
		observability.SetFragmentCount(n)
	}
}

func (p *Processor) extractContent(path string) (string, error) {
	if p.extractor != nil {
		return p.extractor.Extract(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// docTypeForExt maps a file extension to its chunking profile.
func docTypeForExt(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return "pdf"
	case "docx", "doc", "odt", "rtf":
		return "docx"
	case "csv", "xlsx", "xls":
		return "csv"
	case "txt", "md":
		return "txt"
	default:
		return ""
	}
}

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
	".odt":  "application/vnd.oasis.opendocument.text",
	".rtf":  "application/rtf",
	".csv":  "text/csv",
	".txt":  "text/plain",
	".md":   "text/markdown",
}

func contentTypeForExt(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}
