// Package engine orchestrates query processing end to end: per-target
// schema discovery, lane classification, SQL translation and execution,
// semantic document search, result fusion, response caching, and the
// execution history behind the usage metrics.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/adapter"
	"github.com/hyperjump/kotae/internal/discovery"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/observability"
	"github.com/hyperjump/kotae/internal/semantic"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/translate"
	"github.com/hyperjump/kotae/pkg/utils"
)

// recentWindow is the span counted as "recent" in usage metrics.
const recentWindow = time.Hour

// Engine routes natural-language queries against target databases and the
// document store. Target connections are opened lazily on first use and
// keep their discovered schema and response cache for the engine's
// lifetime.
type Engine struct {
	store    storage.Store
	searcher *semantic.Searcher
	logger   *zap.Logger

	defaultDSN    string
	cacheSize     int
	cacheTTL      time.Duration
	discoveryOpts []discovery.Option

	mu      sync.Mutex
	handles map[string]*handleSlot
}

// Handle is the per-target state built on first use: the live connection,
// its discovered schema, and the response cache.
type Handle struct {
	dsn    string
	conn   adapter.Connection
	schema *models.Schema
	cache  *QueryCache
}

// handleSlot makes per-target initialization single-flight: concurrent
// first queries for the same connection string share one discovery pass.
type handleSlot struct {
	once   sync.Once
	ready  atomic.Bool
	handle *Handle
	err    error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDefaultConnection sets the connection string used when a request
// carries none.
func WithDefaultConnection(dsn string) Option {
	return func(e *Engine) {
		e.defaultDSN = dsn
	}
}

// WithCacheSize sets the per-target response cache capacity.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cacheSize = n
		}
	}
}

// WithCacheTTL sets how long cached responses stay fresh.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.cacheTTL = ttl
		}
	}
}

// WithDiscoveryOptions sets the options applied to every schema discovery
// pass.
func WithDiscoveryOptions(opts ...discovery.Option) Option {
	return func(e *Engine) {
		e.discoveryOpts = append(e.discoveryOpts, opts...)
	}
}

// NewEngine creates an engine over the system store and document searcher.
func NewEngine(store storage.Store, searcher *semantic.Searcher, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		searcher: searcher,
		logger:   zap.NewNop(),
		handles:  make(map[string]*handleSlot),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessQuery runs one natural-language query and always returns a
// response. Failures never surface as Go errors: lane failures keep the
// lane's query type with the error text set, and anything that prevents
// processing at all comes back as an error-type response.
func (e *Engine) ProcessQuery(ctx context.Context, req *models.QueryRequest) *models.QueryResponse {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return models.NewErrorResponse(processingFailed(err), time.Since(start).Seconds())
	}

	dsn := req.ConnectionString
	if dsn == "" {
		dsn = e.defaultDSN
	}

	handle, err := e.handleFor(ctx, dsn)
	if err != nil {
		e.logger.Error("failed to prepare target database",
			zap.String("scheme", adapter.SchemeOf(dsn)),
			zap.Error(err))
		resp := models.NewErrorResponse(processingFailed(err), time.Since(start).Seconds())
		observability.ObserveQuery(string(resp.QueryType), false, time.Since(start))
		return resp
	}

	key := CacheKey(req.Query)
	if cached, ok := handle.cache.Get(key); ok {
		cached.CacheHit = true
		cached.ResponseTime = time.Since(start).Seconds()
		e.appendHistory(ctx, req.Query, cached)
		observability.ObserveQuery(string(cached.QueryType), true, time.Since(start))
		e.logger.Debug("query served from cache", zap.String("query", req.Query))
		return cached
	}

	lane := translate.Classify(req.Query)
	var resp *models.QueryResponse
	switch lane {
	case models.LaneSQL:
		resp = e.sqlLane(ctx, handle, req.Query)
	case models.LaneDocument:
		resp = e.documentLane(ctx, req.Query)
	default:
		resp = combineHybrid(
			e.sqlLane(ctx, handle, req.Query),
			e.documentLane(ctx, req.Query),
		)
	}

	resp.QueryType = lane
	resp.CacheHit = false
	resp.ResponseTime = time.Since(start).Seconds()

	handle.cache.Set(key, resp)
	e.appendHistory(ctx, req.Query, resp)
	observability.ObserveQuery(string(lane), false, time.Since(start))

	e.logger.Info("query processed",
		zap.String("type", string(lane)),
		zap.Int("results", resp.ResultsCount),
		zap.Float64("seconds", resp.ResponseTime))
	return resp
}

// sqlLane translates and executes the query against the target database.
// Failures fold into the response so a hybrid query can still return its
// document half.
func (e *Engine) sqlLane(ctx context.Context, h *Handle, query string) *models.QueryResponse {
	resp, err := e.runSQL(ctx, h, query)
	if err != nil {
		e.logger.Warn("SQL lane failed", zap.String("query", query), zap.Error(err))
		return &models.QueryResponse{
			Results: []any{},
			Error:   fmt.Sprintf("SQL query processing failed: %v", err),
		}
	}
	return resp
}

func (e *Engine) runSQL(ctx context.Context, h *Handle, query string) (*models.QueryResponse, error) {
	mapping := discovery.MapQuery(query, h.schema)
	translated, err := translate.Translate(query, mapping, h.schema)
	if err != nil {
		return nil, err
	}
	sqlText := translate.Format(translated.SQL)

	rs, err := h.conn.Query(ctx, h.conn.Rebind(sqlText), translated.Args...)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}

	rows := make([]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		rows = append(rows, row)
	}
	return &models.QueryResponse{
		Results:      rows,
		ResultsCount: len(rows),
		SQL:          &models.SQLPayload{Generated: sqlText, Mapping: mapping},
	}, nil
}

func (e *Engine) documentLane(ctx context.Context, query string) *models.QueryResponse {
	found, err := e.searcher.Search(ctx, query)
	if err != nil {
		e.logger.Warn("document lane failed", zap.String("query", query), zap.Error(err))
		return &models.QueryResponse{
			Results: []any{},
			Error:   fmt.Sprintf("Document search failed: %v", err),
		}
	}

	results := make([]any, 0, len(found.Results))
	for _, r := range found.Results {
		results = append(results, r)
	}
	return &models.QueryResponse{
		Results:      results,
		ResultsCount: len(results),
		Document: &models.DocumentPayload{
			Method:  semantic.Method,
			Message: found.Message,
		},
	}
}

// appendHistory records the query outcome. Hits and misses are both logged
// so the metrics reflect every request. A storage failure is logged and
// swallowed; history must never break a query.
func (e *Engine) appendHistory(ctx context.Context, query string, resp *models.QueryResponse) {
	rec := &models.HistoryRecord{
		Query:        query,
		QueryType:    string(resp.QueryType),
		ResultsCount: resp.ResultsCount,
		ResponseTime: resp.ResponseTime,
		CacheHit:     resp.CacheHit,
	}
	if err := e.store.AppendHistory(ctx, rec); err != nil {
		e.logger.Warn("failed to record query history", zap.Error(err))
	}
}

// handleFor returns the handle for a connection string, opening and
// discovering it on first use. Failed initializations are not pinned; the
// next request retries from scratch.
func (e *Engine) handleFor(ctx context.Context, dsn string) (*Handle, error) {
	if dsn == "" {
		return nil, errors.New("connection string is required")
	}

	e.mu.Lock()
	slot, ok := e.handles[dsn]
	if !ok {
		slot = &handleSlot{}
		e.handles[dsn] = slot
	}
	e.mu.Unlock()

	slot.once.Do(func() {
		slot.handle, slot.err = e.openHandle(ctx, dsn)
		if slot.err == nil {
			slot.ready.Store(true)
			observability.SetActiveConnections(e.ActiveConnections())
		}
	})

	if slot.err != nil {
		e.mu.Lock()
		if e.handles[dsn] == slot {
			delete(e.handles, dsn)
		}
		e.mu.Unlock()
		return nil, slot.err
	}
	return slot.handle, nil
}

func (e *Engine) openHandle(ctx context.Context, dsn string) (*Handle, error) {
	conn, err := adapter.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}

	schema, err := discovery.NewDiscoverer(conn, e.discoveryOpts...).Discover(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}

	e.logger.Info("target database connected",
		zap.String("adapter", conn.AdapterName()),
		zap.Int("tables", len(schema.Tables)),
		zap.Int("relationships", len(schema.Relationships)))

	return &Handle{
		dsn:    dsn,
		conn:   conn,
		schema: schema,
		cache:  NewQueryCache(e.cacheSize, e.cacheTTL),
	}, nil
}

// Connect opens the target database and runs schema discovery, reusing the
// handle when one already exists. It backs explicit database registration.
func (e *Engine) Connect(ctx context.Context, dsn string) (*models.Schema, error) {
	handle, err := e.handleFor(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return handle.schema, nil
}

// SchemaFor returns the discovered schema for an already-registered
// connection string without opening one.
func (e *Engine) SchemaFor(dsn string) (*models.Schema, bool) {
	e.mu.Lock()
	slot, ok := e.handles[dsn]
	e.mu.Unlock()
	if !ok || !slot.ready.Load() {
		return nil, false
	}
	return slot.handle.schema, true
}

// VisualizeSchema returns the graph form of a target schema, connecting
// first if needed. An empty connection string selects the default target.
func (e *Engine) VisualizeSchema(ctx context.Context, dsn string) (*models.SchemaGraph, error) {
	if dsn == "" {
		dsn = e.defaultDSN
	}
	handle, err := e.handleFor(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return discovery.Graph(handle.schema), nil
}

// GetHistory returns the most recent query records, newest first.
func (e *Engine) GetHistory(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	return e.store.RecentHistory(ctx, limit)
}

// GetMetrics aggregates usage statistics from the stored history. Averages
// are rounded to two decimals and the recent count covers the last hour.
func (e *Engine) GetMetrics(ctx context.Context) (*models.Metrics, error) {
	m, err := e.store.HistoryStats(ctx, time.Now().Add(-recentWindow))
	if err != nil {
		return nil, err
	}
	m.AverageResponseTime = utils.Round2(m.AverageResponseTime)
	m.CacheHitRate = utils.Round2(m.CacheHitRate)
	m.ActiveConnections = e.ActiveConnections()
	return m, nil
}

// ActiveConnections returns the number of initialized target connections.
func (e *Engine) ActiveConnections() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, slot := range e.handles {
		if slot.ready.Load() {
			n++
		}
	}
	return n
}

// Close releases every target connection. The system store is owned by the
// caller and stays open.
func (e *Engine) Close() error {
	e.mu.Lock()
	slots := make([]*handleSlot, 0, len(e.handles))
	for _, slot := range e.handles {
		slots = append(slots, slot)
	}
	e.handles = make(map[string]*handleSlot)
	e.mu.Unlock()

	var firstErr error
	for _, slot := range slots {
		if !slot.ready.Load() {
			continue
		}
		if err := slot.handle.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	observability.SetActiveConnections(0)
	return firstErr
}

func processingFailed(err error) string {
	return fmt.Sprintf("Query processing failed: %v", err)
}
