package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/adapter"
	_ "github.com/hyperjump/kotae/internal/adapter/sqlite"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/engine"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/semantic"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/translate"
)

const (
	e2eDimensions = 384
	e2eThreshold  = 0.2
	e2eTopK       = 15
)

func classifyForTest(query string) string {
	return string(translate.Classify(query))
}

// stack is a full in-process deployment: SQLite system store, hash embedder,
// query engine bound to a seeded target database, and the HTTP API.
type stack struct {
	store     *storage.SQLiteStore
	processor *ingest.Processor
	engine    *engine.Engine
	api       *httptest.Server
}

func newStack(t *testing.T, targetDSN string) *stack {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "system.db")
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("open system store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	embedder := embedding.NewHashEmbedder(e2eDimensions)
	searcher := semantic.NewSearcher(store, embedder,
		semantic.WithThreshold(e2eThreshold),
		semantic.WithTopK(e2eTopK),
	)
	eng := engine.NewEngine(store, searcher,
		engine.WithDefaultConnection(targetDSN),
	)
	t.Cleanup(func() { eng.Close() })

	processor := ingest.NewProcessor(store, embedder, extract.NewExtractor(),
		ingest.WithAllowedExtensions(SupportedFileExtensions),
	)

	cfg := config.Default()
	cfg.Storage.DatabasePath = dbPath
	cfg.Ingest.UploadDir = t.TempDir()
	cfg.Target.ConnectionString = targetDSN

	api := httptest.NewServer(
		server.NewServer(eng, processor, ingest.NewJobTracker(), store, cfg, zap.NewNop()).Router())
	t.Cleanup(api.Close)

	return &stack{store: store, processor: processor, engine: eng, api: api}
}

// seedCompanyDB builds the target HR database the structured queries run
// against: four engineers and two sales staff.
func seedCompanyDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "company.db")
	conn, err := adapter.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open target: %v", err)
	}
	defer conn.Close()

	stmts := []string{
		`CREATE TABLE departments (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE employees (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			department TEXT NOT NULL,
			salary REAL NOT NULL,
			hire_date TEXT NOT NULL
		)`,
		`INSERT INTO departments (id, name) VALUES (1, 'Engineering'), (2, 'Sales')`,
		`INSERT INTO employees (id, name, department, salary, hire_date) VALUES
			(1, 'Ada', 'Engineering', 95000, '2019-03-11'),
			(2, 'Grace', 'Engineering', 105000, '2017-07-24'),
			(3, 'Linus', 'Engineering', 87000, '2021-01-05'),
			(4, 'Margaret', 'Engineering', 99000, '2018-10-30'),
			(5, 'Kenji', 'Sales', 72000, '2020-05-18'),
			(6, 'Naoko', 'Sales', 68000, '2022-02-09')`,
	}
	for _, stmt := range stmts {
		if _, err := conn.Query(context.Background(), stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return path
}

// queryEnvelope is the flattened wire shape of a query response.
type queryEnvelope struct {
	Results       []map[string]any `json:"results"`
	QueryType     string           `json:"query_type"`
	ResponseTime  float64          `json:"response_time"`
	CacheHit      bool             `json:"cache_hit"`
	ResultsCount  int              `json:"results_count"`
	Error         string           `json:"error"`
	SQLGenerated  string           `json:"sql_generated"`
	SearchMethod  string           `json:"search_method"`
	Message       string           `json:"message"`
	SQLCount      int              `json:"sql_count"`
	DocumentCount int              `json:"document_count"`
	CombinedCount int              `json:"combined_count"`
}

func postQuery(t *testing.T, baseURL, query string) *queryEnvelope {
	t.Helper()
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(baseURL+"/api/query", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/query: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/query status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var env queryEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return &env
}

// writeCorpusFiles materializes the corpus on disk, cycling through the
// supported formats, and returns the corpus ID to stored document ID map.
func writeCorpusFiles(t *testing.T, dir string, docs []E2EDocument) map[string]string {
	t.Helper()
	ids := make(map[string]string, len(docs))
	for i, doc := range docs {
		ext := SupportedFileExtensions[i%len(SupportedFileExtensions)]
		data, err := WriteMinimalFile(ext, doc.Title+"\n\n"+doc.Content)
		if err != nil {
			t.Fatalf("build %s fixture: %v", ext, err)
		}
		path := filepath.Join(dir, doc.ID+ext)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		ids[doc.ID] = ingest.DocIDForPath(path)
	}
	return ids
}

func TestEndToEndDocumentCorpus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping corpus ingestion in short mode")
	}

	st := newStack(t, seedCompanyDB(t))
	corpus := BuildCorpus()
	docDir := t.TempDir()
	storedIDs := writeCorpusFiles(t, docDir, corpus.Documents)

	processed, failed, err := st.processor.ProcessDirectory(context.Background(), docDir)
	if err != nil {
		t.Fatalf("ProcessDirectory() error = %v", err)
	}
	if failed != 0 {
		t.Fatalf("ProcessDirectory() failed for %d files", failed)
	}
	if processed != corpus.TotalDocs {
		t.Fatalf("ProcessDirectory() processed %d files, want %d", processed, corpus.TotalDocs)
	}

	for _, tc := range corpus.TestCases {
		t.Run(tc.Description, func(t *testing.T) {
			env := postQuery(t, st.api.URL, tc.Query)
			if env.QueryType != "document" {
				t.Fatalf("query_type = %q, want %q", env.QueryType, "document")
			}
			if env.Error != "" {
				t.Fatalf("unexpected error: %s", env.Error)
			}
			if env.SearchMethod != semantic.Method {
				t.Errorf("search_method = %q, want %q", env.SearchMethod, semantic.Method)
			}
			if len(env.Results) == 0 {
				t.Fatalf("no results for %q", tc.Query)
			}

			expected := make(map[string]bool, len(tc.ExpectedDocIDs))
			for _, id := range tc.ExpectedDocIDs {
				expected[storedIDs[id]] = true
			}
			returned := make(map[string]bool, len(env.Results))
			for _, r := range env.Results {
				if id, ok := r["document_id"].(string); ok {
					returned[id] = true
				}
			}

			for _, want := range tc.ExpectedDocIDs {
				if !returned[storedIDs[want]] {
					t.Errorf("query %q missing expected document %s", tc.Query, want)
				}
			}
			if top, _ := env.Results[0]["document_id"].(string); !expected[top] {
				t.Errorf("top result %s is not an expected document for %q", top, tc.Query)
			}
		})
	}
}

func TestEndToEndStructuredQueries(t *testing.T) {
	st := newStack(t, seedCompanyDB(t))

	t.Run("count", func(t *testing.T) {
		env := postQuery(t, st.api.URL, "how many employees are there")
		if env.QueryType != "sql" {
			t.Fatalf("query_type = %q, want %q", env.QueryType, "sql")
		}
		if env.ResultsCount != 1 || len(env.Results) != 1 {
			t.Fatalf("results_count = %d (len %d), want 1", env.ResultsCount, len(env.Results))
		}
		if got, _ := env.Results[0]["count"].(float64); got != 6 {
			t.Errorf("count = %v, want 6", env.Results[0]["count"])
		}
	})

	t.Run("list all", func(t *testing.T) {
		env := postQuery(t, st.api.URL, "list all employees")
		if env.QueryType != "sql" {
			t.Fatalf("query_type = %q, want %q", env.QueryType, "sql")
		}
		if env.ResultsCount != 6 {
			t.Fatalf("results_count = %d, want 6", env.ResultsCount)
		}
	})

	t.Run("average salary", func(t *testing.T) {
		env := postQuery(t, st.api.URL, "average salary of employees")
		if env.QueryType != "sql" {
			t.Fatalf("query_type = %q, want %q", env.QueryType, "sql")
		}
		if len(env.Results) != 1 {
			t.Fatalf("len(results) = %d, want 1", len(env.Results))
		}
		avg, ok := env.Results[0]["average_salary"].(float64)
		if !ok {
			t.Fatalf("average_salary missing from %v", env.Results[0])
		}
		if math.Abs(avg-87666.67) > 0.01 {
			t.Errorf("average_salary = %v, want 87666.67", avg)
		}
	})

	t.Run("department filter", func(t *testing.T) {
		env := postQuery(t, st.api.URL, "list employees in the engineering department")
		if env.QueryType != "sql" {
			t.Fatalf("query_type = %q, want %q", env.QueryType, "sql")
		}
		if env.ResultsCount != 4 {
			t.Fatalf("results_count = %d, want 4", env.ResultsCount)
		}
		if !strings.Contains(env.SQLGenerated, "LIKE ?") {
			t.Errorf("sql_generated = %q, want a LIKE ? condition", env.SQLGenerated)
		}
		for _, row := range env.Results {
			if dept, _ := row["department"].(string); dept != "Engineering" {
				t.Errorf("row department = %v, want Engineering", row["department"])
			}
		}
	})
}

func TestEndToEndHybridQuery(t *testing.T) {
	st := newStack(t, seedCompanyDB(t))

	docDir := t.TempDir()
	path := filepath.Join(docDir, "go-profile.txt")
	content := "Go experience: built Go services for years."
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	if _, _, err := st.processor.ProcessFile(context.Background(), path); err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}

	env := postQuery(t, st.api.URL, "how many employees have Go experience")
	if env.QueryType != "hybrid" {
		t.Fatalf("query_type = %q, want %q", env.QueryType, "hybrid")
	}
	if env.Error != "" {
		t.Fatalf("unexpected error: %s", env.Error)
	}
	if env.SQLCount != 1 {
		t.Errorf("sql_count = %d, want 1", env.SQLCount)
	}
	if env.DocumentCount != 1 {
		t.Errorf("document_count = %d, want 1", env.DocumentCount)
	}
	if env.CombinedCount != env.SQLCount+env.DocumentCount {
		t.Errorf("combined_count = %d, want %d", env.CombinedCount, env.SQLCount+env.DocumentCount)
	}
	if env.ResultsCount != 2 || len(env.Results) != 2 {
		t.Fatalf("results_count = %d (len %d), want 2", env.ResultsCount, len(env.Results))
	}

	// SQL rows come first, document hits after.
	if got, _ := env.Results[0]["count"].(float64); got != 6 {
		t.Errorf("sql row count = %v, want 6", env.Results[0]["count"])
	}
	wantID := ingest.DocIDForPath(path)
	if got, _ := env.Results[1]["document_id"].(string); got != wantID {
		t.Errorf("document hit = %v, want %s", env.Results[1]["document_id"], wantID)
	}
}

func TestEndToEndCacheAndHistory(t *testing.T) {
	st := newStack(t, seedCompanyDB(t))
	const query = "how many employees are there"

	first := postQuery(t, st.api.URL, query)
	if first.CacheHit {
		t.Fatalf("first request reported cache_hit = true")
	}
	second := postQuery(t, st.api.URL, query)
	if !second.CacheHit {
		t.Fatalf("repeat request reported cache_hit = false")
	}
	if second.ResultsCount != first.ResultsCount {
		t.Errorf("cached results_count = %d, want %d", second.ResultsCount, first.ResultsCount)
	}

	resp, err := http.Get(st.api.URL + "/api/query/history?limit=10")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	defer resp.Body.Close()
	var history struct {
		Queries []struct {
			QueryText string `json:"query_text"`
			CacheHit  bool   `json:"cache_hit"`
		} `json:"queries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Queries) < 2 {
		t.Fatalf("history has %d records, want at least 2", len(history.Queries))
	}
	var sawHit bool
	for _, rec := range history.Queries {
		if rec.QueryText != query {
			t.Errorf("history query_text = %q, want %q", rec.QueryText, query)
		}
		sawHit = sawHit || rec.CacheHit
	}
	if !sawHit {
		t.Errorf("history records no cache hit")
	}

	mresp, err := http.Get(st.api.URL + "/api/query/metrics")
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer mresp.Body.Close()
	var metrics struct {
		TotalQueries int64   `json:"total_queries"`
		CacheHitRate float64 `json:"cache_hit_rate"`
	}
	if err := json.NewDecoder(mresp.Body).Decode(&metrics); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if metrics.TotalQueries < 2 {
		t.Errorf("total_queries = %d, want at least 2", metrics.TotalQueries)
	}
	if metrics.CacheHitRate <= 0 {
		t.Errorf("cache_hit_rate = %v, want > 0", metrics.CacheHitRate)
	}
}
