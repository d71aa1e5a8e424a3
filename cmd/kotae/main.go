// Package main is the Kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	_ "github.com/hyperjump/kotae/internal/adapter/mysql"
	_ "github.com/hyperjump/kotae/internal/adapter/postgres"
	_ "github.com/hyperjump/kotae/internal/adapter/sqlite"
	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/discovery"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/engine"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/semantic"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kotae/config.yaml"
	defaultServerURL  = "http://localhost:8000"
)

func init() {
	godotenv.Load()
}

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "kotae server" from the project dir picks up the
// project's config. Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	if _, err := os.Stat(path); err != nil && path == defaultConfigPath {
		return config.Default(), "", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "query":
		runQuery()
	case "ingest":
		runIngest()
	case "schema":
		runSchema()
	case "history":
		runHistory()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedPath),
		zap.Bool("debug", debugMode))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		watch := newIngestWatcher(cfg, components, logger)
		if err := watch.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watch.Stop()
		go watch.SyncExisting()
	}

	srv := server.NewServer(
		components.Engine,
		components.Processor,
		components.Jobs,
		components.Store,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// newIngestWatcher wires the filesystem watcher to the ingestion pipeline.
func newIngestWatcher(cfg *config.Config, components *Components, logger *zap.Logger) *watcher.Watcher {
	processor := components.Processor
	opts := []watcher.Option{
		watcher.WithLogger(logger),
		watcher.WithRecursive(cfg.Watch.RecursiveOrDefault()),
	}
	if cfg.Watch.DebounceMS > 0 {
		opts = append(opts, watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond))
	}
	return watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		func(path string) {
			if _, _, err := processor.ProcessFile(context.Background(), path); err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(path string) {
			if err := processor.RemoveFile(context.Background(), path); err != nil {
				logger.Warn("watch remove failed", zap.String("path", path), zap.Error(err))
			}
		},
		opts...,
	)
}

// argsReorder moves flags (and their values) that appear after positional
// arguments to the front so flag.Parse sees them. The flag package stops at
// the first non-flag argument, so `kotae query "text" -output json` would
// otherwise leave -output unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildQueryText joins all positional args with spaces so multi-word
// questions work with or without shell quoting.
func buildQueryText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runQuery() {
	queryArgs := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, `server URL (empty = run in-process without a server)`)
	connection := fs.String("connection", "", "target database connection string (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(queryArgs)

	queryText := buildQueryText(fs.Args())
	if queryText == "" {
		fmt.Println(`Usage: kotae query [flags] <question>`)
		fs.PrintDefaults()
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	req := &models.QueryRequest{Query: queryText, ConnectionString: *connection}

	if *serverURL != "" {
		resp, err := queryViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteQueryResponse(os.Stdout, resp, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	resp := components.Engine.ProcessQuery(context.Background(), req)
	if err := cli.WriteQueryResponse(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// queryViaHTTP posts the query to a running server and lifts the flat wire
// shape back into the envelope the renderers take.
func queryViaHTTP(serverURL string, req *models.QueryRequest) (*models.QueryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpResp, err := http.Post(serverURL+"/api/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("server returned %d: %s", httpResp.StatusCode, string(b))
	}

	var flat struct {
		Results       []any   `json:"results"`
		QueryType     string  `json:"query_type"`
		ResponseTime  float64 `json:"response_time"`
		CacheHit      bool    `json:"cache_hit"`
		ResultsCount  int     `json:"results_count"`
		Error         string  `json:"error"`
		SQLGenerated  string  `json:"sql_generated"`
		SearchMethod  string  `json:"search_method"`
		Message       string  `json:"message"`
		SQLCount      int     `json:"sql_count"`
		DocumentCount int     `json:"document_count"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&flat); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	resp := &models.QueryResponse{
		Results:      flat.Results,
		QueryType:    models.Lane(flat.QueryType),
		ResponseTime: flat.ResponseTime,
		CacheHit:     flat.CacheHit,
		ResultsCount: flat.ResultsCount,
		Error:        flat.Error,
	}
	if flat.SQLGenerated != "" {
		resp.SQL = &models.SQLPayload{Generated: flat.SQLGenerated}
	}
	if flat.SearchMethod != "" || flat.Message != "" {
		resp.Document = &models.DocumentPayload{Method: flat.SearchMethod, Message: flat.Message}
	}
	if resp.QueryType == models.LaneHybrid {
		resp.Hybrid = &models.HybridPayload{
			SQLCount:      flat.SQLCount,
			DocumentCount: flat.DocumentCount,
			CombinedCount: flat.ResultsCount,
		}
	}
	return resp, nil
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ingest [flags] <file-or-directory>...")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	ctx := context.Background()
	processed, failed := 0, 0
	for _, path := range fs.Args() {
		info, err := os.Stat(path)
		if err != nil {
			fmt.Printf("Failed: %s: %v\n", path, err)
			failed++
			continue
		}
		if info.IsDir() {
			p, f, err := components.Processor.ProcessDirectory(ctx, path)
			processed += p
			failed += f
			if err != nil {
				fmt.Printf("Failed: %s: %v\n", path, err)
				failed++
				continue
			}
			fmt.Printf("Ingested %d file(s) from %s (%d failed)\n", p, path, f)
			continue
		}
		doc, fragments, err := components.Processor.ProcessFile(ctx, path)
		if err != nil {
			fmt.Printf("Failed: %s: %v\n", path, err)
			failed++
			continue
		}
		processed++
		fmt.Printf("Ingested %s: %s (%d fragments)\n", path, doc.ID, fragments)
	}
	if failed > 0 && processed == 0 {
		os.Exit(1)
	}
}

func runSchema() {
	schemaArgs := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(schemaArgs)

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	dsn := cfg.Target.ConnectionString
	if fs.NArg() > 0 {
		dsn = fs.Arg(0)
	}
	if dsn == "" {
		fmt.Println("Usage: kotae schema [flags] <connection-string>")
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	schema, err := components.Engine.Connect(context.Background(), dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Discovery failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSchema(os.Stdout, schema, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, `server URL (empty = read storage directly)`)
	limit := fs.Int("n", 10, "number of records")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	var recs []models.HistoryRecord
	if *serverURL != "" {
		recs, err = historyViaHTTP(*serverURL, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Printf("Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Printf("Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		recs, err = components.Engine.GetHistory(context.Background(), *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
			os.Exit(1)
		}
	}

	if err := cli.WriteHistory(os.Stdout, recs, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func historyViaHTTP(serverURL string, limit int) ([]models.HistoryRecord, error) {
	resp, err := http.Get(serverURL + "/api/query/history?limit=" + url.QueryEscape(strconv.Itoa(limit)))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		Queries []models.HistoryRecord `json:"queries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Queries, nil
}

// statusResponse is the shape of GET /api/status.
type statusResponse struct {
	Documents         int64              `json:"documents"`
	Fragments         int64              `json:"fragments"`
	ActiveConnections int                `json:"active_connections"`
	Config            map[string]any     `json:"config,omitempty"`
	DiskUsage         *storage.DiskUsage `json:"disk_usage,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, `server URL (empty = read storage directly)`)
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Printf("Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Printf("Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()

		ctx := context.Background()
		docCount, err := components.Store.CountDocuments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		fragCount, err := components.Store.CountFragments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count fragments failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Documents: docCount,
			Fragments: fragCount,
			Config: map[string]any{
				"database_path":        cfg.Storage.DatabasePath,
				"upload_dir":           cfg.Ingest.UploadDir,
				"embedding_provider":   cfg.Embedding.Provider,
				"embedding_dimensions": cfg.Embedding.Dimensions,
				"cache_ttl_seconds":    cfg.Cache.TTLSeconds,
				"similarity_threshold": cfg.Search.SimilarityThreshold,
			},
		}
		if usage, err := storage.MeasureDiskUsage(cfg.Storage.DatabasePath, cfg.Ingest.UploadDir); err == nil {
			status.DiskUsage = usage
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:           %d\n", status.Documents)
		fmt.Printf("fragments:           %d\n", status.Fragments)
		fmt.Printf("active_connections:  %d\n", status.ActiveConnections)
		if status.DiskUsage != nil {
			fmt.Printf("disk_usage_bytes:    %d\n", status.DiskUsage.TotalBytes)
		}
		if len(status.Config) > 0 {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{
				"database_path", "upload_dir", "embedding_provider",
				"embedding_dimensions", "cache_ttl_seconds", "similarity_threshold",
			} {
				if v, ok := status.Config[key]; ok {
					fmt.Printf("%-21s%v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// runWatch runs the ingest watcher in the foreground without the HTTP
// server. Positional arguments override the configured watch directories.
func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if fs.NArg() > 0 {
		cfg.Watch.Directories = fs.Args()
	}
	if len(cfg.Watch.Directories) == 0 {
		fmt.Println("Usage: kotae watch [flags] <directory>...")
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	watch := newIngestWatcher(cfg, components, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := watch.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer watch.Stop()
	watch.SyncExisting()

	fmt.Printf("Watching %v (ctrl-c to stop)\n", cfg.Watch.Directories)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
}

// Components holds the initialized services shared by the subcommands.
type Components struct {
	Store     *storage.SQLiteStore
	Embedder  embedding.Embedder
	Searcher  *semantic.Searcher
	Engine    *engine.Engine
	Processor *ingest.Processor
	Jobs      *ingest.JobTracker
}

func (c *Components) Close() {
	if c.Engine != nil {
		c.Engine.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if dir := filepath.Dir(cfg.Storage.DatabasePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder, err := embedding.New(
		cfg.Embedding.Provider,
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Warn("embedding provider unavailable, using hash fallback",
			zap.String("provider", cfg.Embedding.Provider), zap.Error(err))
		embedder = embedding.NewHashEmbedder(cfg.Embedding.Dimensions)
	}

	searcher := semantic.NewSearcher(store, embedder,
		semantic.WithLogger(logger),
		semantic.WithThreshold(cfg.Search.SimilarityThreshold),
		semantic.WithTopK(cfg.Search.TopK),
		semantic.WithSnippetLength(cfg.Search.SnippetLength),
	)

	discoveryOpts := []discovery.Option{
		discovery.WithLogger(logger),
		discovery.WithSampleRows(cfg.Discovery.SampleRows),
		discovery.WithValueInference(cfg.Discovery.ValueInferenceOrDefault()),
	}
	if cfg.Discovery.CallTimeoutSeconds > 0 {
		discoveryOpts = append(discoveryOpts,
			discovery.WithCallTimeout(time.Duration(cfg.Discovery.CallTimeoutSeconds)*time.Second))
	}

	eng := engine.NewEngine(store, searcher,
		engine.WithLogger(logger),
		engine.WithDefaultConnection(cfg.Target.ConnectionString),
		engine.WithCacheSize(cfg.Cache.MaxEntries),
		engine.WithCacheTTL(time.Duration(cfg.Cache.TTLSeconds)*time.Second),
		engine.WithDiscoveryOptions(discoveryOpts...),
	)

	processor := ingest.NewProcessor(store, embedder, extract.NewExtractor(),
		ingest.WithLogger(logger),
		ingest.WithBatchSize(cfg.Ingest.BatchSize),
		ingest.WithAllowedExtensions(cfg.Ingest.AllowedExtensions),
	)

	return &Components{
		Store:     store,
		Embedder:  embedder,
		Searcher:  searcher,
		Engine:    eng,
		Processor: processor,
		Jobs:      ingest.NewJobTracker(),
	}, nil
}

func printUsage() {
	fmt.Println(`kotae - schema-adaptive hybrid query engine

Usage:
  kotae server [flags]            Start the HTTP server
  kotae query [flags] <question>  Ask a question (SQL, documents, or both)
  kotae ingest [flags] <path>...  Ingest documents from files or directories
  kotae schema [flags] [dsn]      Discover and print a database schema
  kotae history [flags]           Show recent query history
  kotae status [flags]            Show storage and configuration status
  kotae watch [flags] <dir>...    Watch directories and auto-ingest changes
  kotae version                   Show version
  kotae help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging

Query Flags:
  --server string      Server URL (default: http://localhost:8000). Use --server "" to run in-process.
  --connection string  Target database connection string (default from config/DATABASE_URL)
  --output string      Output format: text or json (default: text)

History Flags:
  --server string    Server URL (default: http://localhost:8000). Use --server "" to read storage directly.
  -n int             Number of records (default: 10)
  --output string    Output format: text or json

Status Flags:
  --server string    Server URL (default: http://localhost:8000). Use --server "" to read storage directly.
  --output string    Output format: text or json

Examples:
  kotae server
  kotae query "how many employees are in each department"
  kotae query --output json "show me resumes mentioning Go"
  kotae ingest ./docs
  kotae schema sqlite:///data/hr.db
  kotae history -n 20
  kotae status
  kotae watch ./inbox`)
}
