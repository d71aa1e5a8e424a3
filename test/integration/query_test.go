// Package integration exercises the full query path against real storage and
// a real target database, without the HTTP layer.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/adapter"
	_ "github.com/hyperjump/kotae/internal/adapter/sqlite"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/engine"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/semantic"
	"github.com/hyperjump/kotae/internal/storage"
)

func TestIntegration_Query(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := storage.NewSQLiteStore(filepath.Join(dir, "system.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	target := filepath.Join(dir, "company.db")
	conn, err := adapter.Open(ctx, target)
	if err != nil {
		t.Fatal(err)
	}
	stmts := []string{
		`CREATE TABLE employees (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			department TEXT NOT NULL,
			salary REAL NOT NULL
		)`,
		`INSERT INTO employees (id, name, department, salary) VALUES
			(1, 'Ada', 'Engineering', 95000),
			(2, 'Grace', 'Engineering', 105000),
			(3, 'Kenji', 'Sales', 72000)`,
	}
	for _, stmt := range stmts {
		if _, err := conn.Query(ctx, stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	conn.Close()

	embedder := embedding.NewHashEmbedder(384)
	searcher := semantic.NewSearcher(store, embedder)
	eng := engine.NewEngine(store, searcher, engine.WithDefaultConnection(target))
	defer eng.Close()

	processor := ingest.NewProcessor(store, embedder, extract.NewExtractor())
	docs := map[string]string{
		"ml.txt":      "Machine learning algorithms learn from data.",
		"search.txt":  "Semantic search uses embeddings to rank similar content.",
		"profile.txt": "Ada has Go experience building distributed services.",
	}
	ids := make(map[string]string, len(docs))
	for name, content := range docs {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, _, err := processor.ProcessFile(ctx, path); err != nil {
			t.Fatalf("ingest %s: %v", name, err)
		}
		ids[name] = ingest.DocIDForPath(path)
	}

	// Document lane.
	resp := eng.ProcessQuery(ctx, &models.QueryRequest{Query: "find documents about machine learning"})
	if resp.QueryType != models.LaneDocument {
		t.Fatalf("query_type = %s, want %s", resp.QueryType, models.LaneDocument)
	}
	if resp.ResultsCount < 1 {
		t.Fatal("document query returned no results")
	}
	hit, ok := resp.Results[0].(models.DocumentResult)
	if !ok {
		t.Fatalf("result has type %T", resp.Results[0])
	}
	if hit.DocumentID != ids["ml.txt"] {
		t.Errorf("top document = %s, want %s", hit.DocumentID, ids["ml.txt"])
	}

	// SQL lane.
	resp = eng.ProcessQuery(ctx, &models.QueryRequest{Query: "how many employees are there"})
	if resp.QueryType != models.LaneSQL {
		t.Fatalf("query_type = %s, want %s", resp.QueryType, models.LaneSQL)
	}
	row, ok := resp.Results[0].(map[string]any)
	if !ok {
		t.Fatalf("result row has type %T", resp.Results[0])
	}
	if count, _ := row["count"].(int64); count != 3 {
		t.Errorf("count = %v, want 3", row["count"])
	}
	if resp.SQL == nil || !strings.Contains(resp.SQL.Generated, "COUNT(*)") {
		t.Errorf("sql payload = %+v, want a COUNT statement", resp.SQL)
	}

	// Hybrid lane.
	resp = eng.ProcessQuery(ctx, &models.QueryRequest{Query: "how many employees have Go experience"})
	if resp.QueryType != models.LaneHybrid {
		t.Fatalf("query_type = %s, want %s", resp.QueryType, models.LaneHybrid)
	}
	if resp.Hybrid == nil {
		t.Fatal("hybrid payload missing")
	}
	if resp.Hybrid.SQLCount != 1 || resp.Hybrid.DocumentCount != 1 {
		t.Errorf("hybrid counts = %d sql, %d document, want 1 and 1",
			resp.Hybrid.SQLCount, resp.Hybrid.DocumentCount)
	}

	// Cache.
	resp = eng.ProcessQuery(ctx, &models.QueryRequest{Query: "how many employees are there"})
	if !resp.CacheHit {
		t.Error("repeat query missed the cache")
	}

	// History and metrics.
	history, err := eng.GetHistory(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 4 {
		t.Errorf("history has %d records, want 4", len(history))
	}
	metrics, err := eng.GetMetrics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if metrics.TotalQueries != 4 {
		t.Errorf("total_queries = %d, want 4", metrics.TotalQueries)
	}
	if metrics.CacheHitRate <= 0 {
		t.Errorf("cache_hit_rate = %v, want > 0", metrics.CacheHitRate)
	}
}
