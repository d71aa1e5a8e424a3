// Package sqlite implements the target-store adapter for SQLite databases
// using PRAGMA-based introspection.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/adapter"
	"github.com/hyperjump/kotae/internal/models"
)

func init() {
	adapter.Register(&sqliteAdapter{})
}

type sqliteAdapter struct{}

func (a *sqliteAdapter) Name() string { return "sqlite" }

func (a *sqliteAdapter) Connect(ctx context.Context, dsn string) (adapter.Connection, error) {
	path := normalizeDSN(dsn)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// An in-memory database exists per connection; more than one pooled
	// connection would each see their own empty database.
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	conn := &sqliteConn{db: db, path: path}
	if err := conn.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return conn, nil
}

// normalizeDSN strips a sqlite:// or sqlite3:// prefix, leaving file: URIs,
// :memory:, and plain paths unchanged.
func normalizeDSN(dsn string) string {
	lower := strings.ToLower(dsn)
	for _, prefix := range []string{"sqlite3://", "sqlite://"} {
		if strings.HasPrefix(lower, prefix) {
			rest := dsn[len(prefix):]
			// sqlite:///abs/path keeps the leading slash of the path.
			if strings.HasPrefix(rest, "/") {
				return rest
			}
			if rest == "" {
				return ":memory:"
			}
			return rest
		}
	}
	if dsn == "" {
		return ":memory:"
	}
	return dsn
}

type sqliteConn struct {
	db   *sql.DB
	path string
}

func (c *sqliteConn) AdapterName() string { return "sqlite" }

func (c *sqliteConn) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return err
	}
	var one int
	return c.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

func (c *sqliteConn) Close() error { return c.db.Close() }

func (c *sqliteConn) Tables(ctx context.Context) ([]string, error) {
	return c.tableNames(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
}

func (c *sqliteConn) TablesFromCatalog(ctx context.Context) ([]string, error) {
	return c.tableNames(ctx,
		`SELECT name FROM sqlite_schema WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
}

func (c *sqliteConn) tableNames(ctx context.Context, query string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *sqliteConn) Columns(ctx context.Context, table string) ([]models.Column, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []models.Column
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, models.Column{
			Name:         name,
			Type:         typ,
			Nullable:     notNull == 0,
			Default:      dflt.String,
			IsPrimaryKey: pk > 0,
		})
	}
	return cols, rows.Err()
}

func (c *sqliteConn) PrimaryKey(ctx context.Context, table string) ([]string, error) {
	cols, err := c.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	var pk []string
	for _, col := range cols {
		if col.IsPrimaryKey {
			pk = append(pk, col.Name)
		}
	}
	return pk, nil
}

func (c *sqliteConn) ForeignKeys(ctx context.Context, table string) ([]models.ForeignKey, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA foreign_key_list(%s)`, quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// foreign_key_list emits one row per column; rows sharing an id belong
	// to the same multi-column constraint.
	type fkPart struct {
		seq  int
		from string
		to   string
	}
	parts := make(map[int][]fkPart)
	targets := make(map[int]string)
	for rows.Next() {
		var (
			id, seq                   int
			refTable, from            string
			to                        sql.NullString
			onUpdate, onDelete, match string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		parts[id] = append(parts[id], fkPart{seq: seq, from: from, to: to.String})
		targets[id] = refTable
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(parts))
	for id := range parts {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var fks []models.ForeignKey
	for _, id := range ids {
		group := parts[id]
		sort.Slice(group, func(i, j int) bool { return group[i].seq < group[j].seq })
		fk := models.ForeignKey{RefTable: targets[id]}
		for _, p := range group {
			fk.Columns = append(fk.Columns, p.from)
			if p.to != "" {
				fk.RefColumns = append(fk.RefColumns, p.to)
			}
		}
		fks = append(fks, fk)
	}
	return fks, nil
}

func (c *sqliteConn) Sample(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	rs, err := c.Query(ctx, fmt.Sprintf(`SELECT * FROM %s LIMIT ?`, quoteIdent(table)), limit)
	if err != nil {
		return nil, err
	}
	return rs.Rows, nil
}

func (c *sqliteConn) DistinctValues(ctx context.Context, table, column string, limit int) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL LIMIT ?`,
		quoteIdent(column), quoteIdent(table), quoteIdent(column))
	rs, err := c.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		for _, v := range row {
			values = append(values, fmt.Sprint(v))
		}
	}
	return values, nil
}

func (c *sqliteConn) Query(ctx context.Context, query string, args ...any) (*adapter.ResultSet, error) {
	rows, err := c.db.QueryContext(ctx, c.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return adapter.ScanRows(rows)
}

// Rebind is a no-op; SQLite uses ? placeholders natively.
func (c *sqliteConn) Rebind(query string) string { return query }

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
