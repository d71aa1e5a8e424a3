package discovery

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/adapter"
	"github.com/hyperjump/kotae/internal/models"
)

const (
	defaultSampleRows  = 3
	defaultCallTimeout = 10 * time.Second
)

// Discoverer introspects a live connection into a Schema. Per-table failures
// are logged and leave that table partially described; only connectivity and
// full enumeration failures abort the run.
type Discoverer struct {
	conn        adapter.Connection
	sampleRows  int
	inferValues bool
	callTimeout time.Duration
	logger      *zap.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithLogger sets the logger used for per-table warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Discoverer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithSampleRows sets how many rows to sample per table. Zero disables
// sampling.
func WithSampleRows(n int) Option {
	return func(d *Discoverer) {
		d.sampleRows = n
	}
}

// WithValueInference enables the low-confidence relationship pass that
// samples distinct values from identifier-like columns.
func WithValueInference(enabled bool) Option {
	return func(d *Discoverer) {
		d.inferValues = enabled
	}
}

// WithCallTimeout bounds each individual store call.
func WithCallTimeout(timeout time.Duration) Option {
	return func(d *Discoverer) {
		d.callTimeout = timeout
	}
}

// NewDiscoverer builds a Discoverer over an open connection.
func NewDiscoverer(conn adapter.Connection, opts ...Option) *Discoverer {
	d := &Discoverer{
		conn:        conn,
		sampleRows:  defaultSampleRows,
		callTimeout: defaultCallTimeout,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover probes the connection and builds the full schema description:
// tables with classified purposes, sample rows, and resolved relationships.
// An empty database yields an empty schema, not an error.
func (d *Discoverer) Discover(ctx context.Context) (*models.Schema, error) {
	probeCtx, cancel := d.callCtx(ctx)
	err := d.conn.Ping(probeCtx)
	cancel()
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	tables, err := d.listTables(ctx)
	if err != nil {
		return nil, &DiscoveryError{Err: err}
	}
	sort.Strings(tables)

	schema := &models.Schema{
		Tables:  make(map[string]*models.Table, len(tables)),
		Samples: make(map[string][]map[string]any),
	}
	for _, name := range tables {
		schema.Tables[name] = d.inspectTable(ctx, name)
		if d.sampleRows <= 0 {
			continue
		}
		sampleCtx, cancel := d.callCtx(ctx)
		rows, err := d.conn.Sample(sampleCtx, name, d.sampleRows)
		cancel()
		if err != nil {
			d.logger.Warn("row sampling failed",
				zap.String("table", name),
				zap.Error(err))
			continue
		}
		schema.Samples[name] = rows
	}

	schema.Relationships = d.resolveRelationships(ctx, schema)

	d.logger.Info("schema discovered",
		zap.Int("tables", len(schema.Tables)),
		zap.Int("relationships", len(schema.Relationships)))
	return schema, nil
}

// listTables tries the driver's native enumeration first and falls back to
// the catalog query. A database that genuinely has no tables returns an
// empty list with no error.
func (d *Discoverer) listTables(ctx context.Context) ([]string, error) {
	nativeCtx, cancel := d.callCtx(ctx)
	tables, nativeErr := d.conn.Tables(nativeCtx)
	cancel()
	if nativeErr == nil && len(tables) > 0 {
		return tables, nil
	}
	if nativeErr != nil {
		d.logger.Warn("native table listing failed, trying catalog", zap.Error(nativeErr))
	}

	catalogCtx, cancel := d.callCtx(ctx)
	tables, catalogErr := d.conn.TablesFromCatalog(catalogCtx)
	cancel()
	if catalogErr == nil {
		return tables, nil
	}
	if nativeErr != nil {
		return nil, fmt.Errorf("listing tables: %w", catalogErr)
	}
	// Native listing succeeded and found nothing; the catalog failure does
	// not change that answer.
	return nil, nil
}

// inspectTable describes one table. Each introspection call fails
// independently so a single odd table cannot sink the whole discovery.
func (d *Discoverer) inspectTable(ctx context.Context, name string) *models.Table {
	table := &models.Table{Name: name}

	colCtx, cancel := d.callCtx(ctx)
	cols, err := d.conn.Columns(colCtx, name)
	cancel()
	if err != nil {
		d.logger.Warn("column introspection failed",
			zap.String("table", name),
			zap.Error(err))
	} else {
		table.Columns = cols
	}

	pkCtx, cancel := d.callCtx(ctx)
	pk, err := d.conn.PrimaryKey(pkCtx, name)
	cancel()
	if err != nil {
		d.logger.Warn("primary key introspection failed",
			zap.String("table", name),
			zap.Error(err))
	} else {
		table.PrimaryKey = pk
		markPrimaryColumns(table.Columns, pk)
	}

	fkCtx, cancel := d.callCtx(ctx)
	fks, err := d.conn.ForeignKeys(fkCtx, name)
	cancel()
	if err != nil {
		d.logger.Warn("foreign key introspection failed",
			zap.String("table", name),
			zap.Error(err))
	} else {
		table.ForeignKeys = fks
	}

	table.Purpose = ClassifyTable(name, table.Columns)
	return table
}

func (d *Discoverer) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.callTimeout)
}

func markPrimaryColumns(cols []models.Column, pk []string) {
	for _, name := range pk {
		for i := range cols {
			if cols[i].Name == name {
				cols[i].IsPrimaryKey = true
			}
		}
	}
}
