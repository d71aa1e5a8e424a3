package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; more than one pooled
	// connection would each see their own empty database.
	if dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		file_size INTEGER NOT NULL DEFAULT 0,
		upload_date TIMESTAMP NOT NULL,
		processed INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_documents_upload_date ON documents(upload_date);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding TEXT NOT NULL DEFAULT '',
		tokens_count INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON document_chunks(document_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_document_chunk ON document_chunks(document_id, chunk_index);

	CREATE TABLE IF NOT EXISTS query_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_text TEXT NOT NULL,
		query_type TEXT NOT NULL,
		results_count INTEGER NOT NULL DEFAULT 0,
		response_time REAL NOT NULL DEFAULT 0,
		cache_hit INTEGER NOT NULL DEFAULT 0,
		executed_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_executed_at ON query_history(executed_at);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateDocument inserts a document. A zero UploadDate is set to now.
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc.UploadDate.IsZero() {
		doc.UploadDate = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, content_type, file_size, upload_date, processed, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.ContentType, doc.FileSize, doc.UploadDate, int(doc.Processed), doc.ErrorMessage,
	)
	return err
}

// GetDocument returns a document by ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	var processed int

	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, content_type, file_size, upload_date, processed, error_message
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Filename, &doc.ContentType, &doc.FileSize, &doc.UploadDate, &processed, &doc.ErrorMessage)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	doc.Processed = models.DocumentStatus(processed)
	return &doc, nil
}

// ListDocuments returns documents newest first with offset and limit.
func (s *SQLiteStore) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, content_type, file_size, upload_date, processed, error_message
		 FROM documents ORDER BY upload_date DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		var processed int
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.ContentType, &doc.FileSize, &doc.UploadDate, &processed, &doc.ErrorMessage); err != nil {
			return nil, err
		}
		doc.Processed = models.DocumentStatus(processed)
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document and its fragments. Deleting a missing
// document is not an error.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateDocumentStatus records an ingestion state transition.
func (s *SQLiteStore) UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus, errMsg string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET processed = ?, error_message = ? WHERE id = ?`,
		int(status), errMsg, id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// BatchCreateFragments inserts fragments in a transaction and assigns their
// generated IDs.
func (s *SQLiteStore) BatchCreateFragments(ctx context.Context, frags []*models.Fragment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO document_chunks (document_id, chunk_index, content, embedding, tokens_count)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, frag := range frags {
		encoded, err := vector.EncodeEmbedding(frag.Embedding)
		if err != nil {
			return fmt.Errorf("failed to encode embedding for chunk %d: %w", frag.ChunkIndex, err)
		}
		result, err := stmt.ExecContext(ctx, frag.DocumentID, frag.ChunkIndex, frag.Content, encoded, frag.TokenCount)
		if err != nil {
			return err
		}
		if id, err := result.LastInsertId(); err == nil {
			frag.ID = id
		}
	}
	return tx.Commit()
}

// FragmentsByDocument returns all fragments for a document ordered by
// chunk index.
func (s *SQLiteStore) FragmentsByDocument(ctx context.Context, docID string) ([]models.Fragment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, chunk_index, content, embedding, tokens_count
		 FROM document_chunks WHERE document_id = ? ORDER BY chunk_index`,
		docID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFragments(rows)
}

// AllFragments returns every stored fragment in document then chunk order.
func (s *SQLiteStore) AllFragments(ctx context.Context) ([]models.Fragment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, chunk_index, content, embedding, tokens_count
		 FROM document_chunks ORDER BY document_id, chunk_index`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFragments(rows)
}

func scanFragments(rows *sql.Rows) ([]models.Fragment, error) {
	var frags []models.Fragment
	for rows.Next() {
		var f models.Fragment
		var embedding string
		if err := rows.Scan(&f.ID, &f.DocumentID, &f.ChunkIndex, &f.Content, &embedding, &f.TokenCount); err != nil {
			return nil, err
		}
		// A fragment with a corrupt embedding is still returned, with a nil
		// vector; search skips it instead of failing the whole query.
		if vec, err := vector.DecodeEmbedding(embedding); err == nil {
			f.Embedding = vec
		}
		frags = append(frags, f)
	}
	return frags, rows.Err()
}

// DeleteFragmentsByDocument removes all fragments for a document.
func (s *SQLiteStore) DeleteFragmentsByDocument(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, docID)
	return err
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStore) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountFragments returns the total number of stored fragments.
func (s *SQLiteStore) CountFragments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&count)
	return count, err
}

// AppendHistory records one query execution. A zero ExecutedAt is set to now
// and the generated ID is assigned back to rec.
func (s *SQLiteStore) AppendHistory(ctx context.Context, rec *models.HistoryRecord) error {
	if rec.ExecutedAt.IsZero() {
		rec.ExecutedAt = time.Now().UTC()
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO query_history (query_text, query_type, results_count, response_time, cache_hit, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Query, rec.QueryType, rec.ResultsCount, rec.ResponseTime, rec.CacheHit, rec.ExecutedAt,
	)
	if err != nil {
		return err
	}
	if id, err := result.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// RecentHistory returns the most recent executions, newest first.
func (s *SQLiteStore) RecentHistory(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query_text, query_type, results_count, response_time, cache_hit, executed_at
		 FROM query_history ORDER BY executed_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []models.HistoryRecord
	for rows.Next() {
		var rec models.HistoryRecord
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.QueryType, &rec.ResultsCount, &rec.ResponseTime, &rec.CacheHit, &rec.ExecutedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// HistoryStats aggregates the execution history. RecentQueries counts
// executions at or after since; ActiveConnections is left for the caller.
func (s *SQLiteStore) HistoryStats(ctx context.Context, since time.Time) (*models.Metrics, error) {
	var m models.Metrics
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(response_time), 0), COALESCE(AVG(cache_hit) * 100, 0)
		 FROM query_history`,
	).Scan(&m.TotalQueries, &m.AverageResponseTime, &m.CacheHitRate)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM query_history WHERE executed_at >= ?`, since,
	).Scan(&m.RecentQueries)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
