// Package models defines core data structures for schemas, queries, documents, and responses.
package models

import "time"

// DocumentStatus tracks ingestion progress for a document.
type DocumentStatus int

const (
	// StatusPending means the document is stored but not yet processed.
	StatusPending DocumentStatus = iota
	// StatusProcessing means extraction/embedding is in progress.
	StatusProcessing
	// StatusCompleted means all fragments are stored and searchable.
	StatusCompleted
	// StatusError means processing failed; see Document.ErrorMessage.
	StatusError
)

// String returns the status name used in API responses.
func (s DocumentStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Document represents an ingested file tracked by the system store.
type Document struct {
	ID           string         `json:"id" db:"id"`
	Filename     string         `json:"filename" db:"filename"`
	ContentType  string         `json:"content_type" db:"content_type"`
	FileSize     int64          `json:"file_size" db:"file_size"`
	UploadDate   time.Time      `json:"upload_date" db:"upload_date"`
	Processed    DocumentStatus `json:"processed" db:"processed"`
	ErrorMessage string         `json:"error_message,omitempty" db:"error_message"`
}

// Fragment is one embedded chunk of a document, the unit of semantic search.
// Fragments are created by ingestion and only read by the query engine.
type Fragment struct {
	ID         int64     `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	Content    string    `json:"content" db:"content"`
	Embedding  []float32 `json:"-" db:"-"`
	TokenCount int       `json:"tokens_count" db:"tokens_count"`
}

// FileOutcome is the per-file result inside an ingestion job.
type FileOutcome struct {
	DocumentID string `json:"id,omitempty"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Fragments  int    `json:"chunks_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// IngestJob tracks an asynchronous upload batch. Status moves from
// processing to completed or error; per-file outcomes are kept either way.
type IngestJob struct {
	ID        string        `json:"job_id"`
	Status    string        `json:"status"`
	Total     int           `json:"total_files"`
	Processed int           `json:"processed_files"`
	Failed    int           `json:"failed_files"`
	Documents []FileOutcome `json:"documents"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
}

// Ingest job statuses.
const (
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobError      = "error"
)
