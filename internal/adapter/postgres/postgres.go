// Package postgres implements the target-store adapter for PostgreSQL using
// information_schema introspection over the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hyperjump/kotae/internal/adapter"
	"github.com/hyperjump/kotae/internal/models"
)

func init() {
	adapter.Register(&pgAdapter{})
}

type pgAdapter struct{}

func (a *pgAdapter) Name() string { return "postgres" }

func (a *pgAdapter) Connect(ctx context.Context, dsn string) (adapter.Connection, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	conn := &pgConn{db: db}
	if err := conn.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return conn, nil
}

type pgConn struct {
	db *sql.DB
}

func (c *pgConn) AdapterName() string { return "postgres" }

func (c *pgConn) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return err
	}
	var one int
	return c.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

func (c *pgConn) Close() error { return c.db.Close() }

func (c *pgConn) Tables(ctx context.Context) ([]string, error) {
	const q = `
SELECT table_name FROM information_schema.tables
WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
ORDER BY table_name`
	return c.tableNames(ctx, q)
}

func (c *pgConn) TablesFromCatalog(ctx context.Context) ([]string, error) {
	const q = `
SELECT c.relname FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE c.relkind = 'r' AND n.nspname NOT IN ('pg_catalog', 'information_schema')
ORDER BY c.relname`
	return c.tableNames(ctx, q)
}

func (c *pgConn) tableNames(ctx context.Context, query string) ([]string, error) {
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

func (c *pgConn) Columns(ctx context.Context, table string) ([]models.Column, error) {
	const q = `
SELECT column_name, data_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1
ORDER BY ordinal_position`
	rows, err := c.db.QueryContext(ctx, q, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []models.Column
	for rows.Next() {
		var (
			name, typ, nullable string
			dflt                sql.NullString
		)
		if err := rows.Scan(&name, &typ, &nullable, &dflt); err != nil {
			return nil, err
		}
		cols = append(cols, models.Column{
			Name:     name,
			Type:     typ,
			Nullable: strings.EqualFold(nullable, "YES"),
			Default:  dflt.String,
		})
	}
	return cols, rows.Err()
}

func (c *pgConn) PrimaryKey(ctx context.Context, table string) ([]string, error) {
	const q = `
SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
WHERE tc.constraint_type = 'PRIMARY KEY'
  AND tc.table_schema = current_schema() AND tc.table_name = $1
ORDER BY kcu.ordinal_position`
	rows, err := c.db.QueryContext(ctx, q, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		pk = append(pk, name)
	}
	return pk, rows.Err()
}

func (c *pgConn) ForeignKeys(ctx context.Context, table string) ([]models.ForeignKey, error) {
	const q = `
SELECT tc.constraint_name, kcu.column_name, ccu.table_name, ccu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
  AND tc.table_schema = current_schema() AND tc.table_name = $1
ORDER BY tc.constraint_name, kcu.ordinal_position`
	rows, err := c.db.QueryContext(ctx, q, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		fks     []models.ForeignKey
		current *models.ForeignKey
	)
	for rows.Next() {
		var constraint, column, refTable, refColumn string
		if err := rows.Scan(&constraint, &column, &refTable, &refColumn); err != nil {
			return nil, err
		}
		if current == nil || current.Name != constraint {
			fks = append(fks, models.ForeignKey{Name: constraint, RefTable: refTable})
			current = &fks[len(fks)-1]
		}
		current.Columns = append(current.Columns, column)
		current.RefColumns = append(current.RefColumns, refColumn)
	}
	return fks, rows.Err()
}

func (c *pgConn) Sample(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	rs, err := c.Query(ctx, fmt.Sprintf(`SELECT * FROM %s LIMIT ?`, quoteIdent(table)), limit)
	if err != nil {
		return nil, err
	}
	return rs.Rows, nil
}

func (c *pgConn) DistinctValues(ctx context.Context, table, column string, limit int) ([]string, error) {
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

func (c *pgConn) Query(ctx context.Context, query string, args ...any) (*adapter.ResultSet, error) {
	rows, err := c.db.QueryContext(ctx, c.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return adapter.ScanRows(rows)
}

// Rebind converts ? placeholders to $1, $2, ... skipping single-quoted
// string literals.
func (c *pgConn) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inString := false
	for _, r := range query {
		switch {
		case r == '\'':
			inString = !inString
			b.WriteRune(r)
		case r == '?' && !inString:
			n++
			fmt.Fprintf(&b, "$%d", n)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
