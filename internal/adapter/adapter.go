// Package adapter defines the driver interface for target relational stores
// and a registry keyed by DSN scheme. Driver packages register themselves in
// init(); importing a driver for side effects makes its scheme available.
package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// Adapter creates connections for one database dialect.
type Adapter interface {
	Name() string
	Connect(ctx context.Context, dsn string) (Connection, error)
}

// Connection is an open handle to a target store. Introspection methods feed
// schema discovery; Query runs generated statements with ?-style placeholders
// that the driver rebinds to its dialect.
type Connection interface {
	AdapterName() string
	Ping(ctx context.Context) error

	// Tables enumerates base tables via the dialect's native catalog.
	// TablesFromCatalog is the fallback, a direct query against the standard
	// catalog tables; discovery tries it when Tables yields nothing.
	Tables(ctx context.Context) ([]string, error)
	TablesFromCatalog(ctx context.Context) ([]string, error)

	Columns(ctx context.Context, table string) ([]models.Column, error)
	PrimaryKey(ctx context.Context, table string) ([]string, error)
	ForeignKeys(ctx context.Context, table string) ([]models.ForeignKey, error)

	// Sample returns up to limit rows of the table.
	Sample(ctx context.Context, table string, limit int) ([]map[string]any, error)
	// DistinctValues returns up to limit distinct values of one column,
	// rendered as strings.
	DistinctValues(ctx context.Context, table, column string, limit int) ([]string, error)

	// Query executes a statement with ? placeholders after Rebind.
	Query(ctx context.Context, query string, args ...any) (*ResultSet, error)
	// Rebind converts ? placeholders to the dialect's form.
	Rebind(query string) string

	Close() error
}

// ResultSet holds query output as ordered column names plus one map per row.
type ResultSet struct {
	Columns []string
	Rows    []map[string]any
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Adapter)
)

// Register makes an adapter available by name. Called from driver init().
func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[a.Name()] = a
}

// Get returns the adapter registered under name.
func Get(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := registry[name]
	return a, ok
}

// Names returns the registered adapter names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SchemeOf maps a DSN to an adapter name. URL-style DSNs pick by scheme;
// go-sql-driver tcp() DSNs resolve to mysql; everything else (bare paths,
// file: URIs, :memory:) resolves to sqlite, the default target dialect.
func SchemeOf(dsn string) string {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(lower, "mysql://"), strings.Contains(dsn, "@tcp("):
		return "mysql"
	default:
		return "sqlite"
	}
}

// Open resolves the adapter for dsn and connects.
func Open(ctx context.Context, dsn string) (Connection, error) {
	name := SchemeOf(dsn)
	a, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("no adapter registered for %q (have %v)", name, Names())
	}
	return a.Connect(ctx, dsn)
}

// ScanRows drains rows into a ResultSet, converting driver byte slices to
// strings and leaving NULLs as nil. All three dialects return text-ish
// values this way, which keeps downstream JSON rendering uniform.
func ScanRows(rows *sql.Rows) (*ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	rs := &ResultSet{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, rows.Err()
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
