// Package storage persists documents, embedded fragments, and the query
// execution history in SQLite.
package storage

import (
	"context"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

// Store defines persistence operations for documents, fragments, and history.
type Store interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus, errMsg string) error

	// Fragment operations
	BatchCreateFragments(ctx context.Context, frags []*models.Fragment) error
	FragmentsByDocument(ctx context.Context, docID string) ([]models.Fragment, error)
	AllFragments(ctx context.Context) ([]models.Fragment, error)
	DeleteFragmentsByDocument(ctx context.Context, docID string) error

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountFragments(ctx context.Context) (int64, error)

	// History operations
	AppendHistory(ctx context.Context, rec *models.HistoryRecord) error
	RecentHistory(ctx context.Context, limit int) ([]models.HistoryRecord, error)
	HistoryStats(ctx context.Context, since time.Time) (*models.Metrics, error)

	Close() error
}
