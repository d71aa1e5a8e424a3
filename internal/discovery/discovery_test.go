package discovery

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hyperjump/kotae/internal/adapter"
	_ "github.com/hyperjump/kotae/internal/adapter/sqlite"
	"github.com/hyperjump/kotae/internal/models"
)

// stubConn is a scriptable Connection for exercising the Discoverer without
// a real database.
type stubConn struct {
	pingErr     error
	tables      []string
	tablesErr   error
	catalog     []string
	catalogErr  error
	columns     map[string][]models.Column
	columnsErr  error
	pks         map[string][]string
	fks         map[string][]models.ForeignKey
	samples     map[string][]map[string]any
	distinct    map[string][]string
	distinctErr error
}

func (s *stubConn) AdapterName() string { return "stub" }

func (s *stubConn) Ping(context.Context) error { return s.pingErr }

func (s *stubConn) Close() error { return nil }

func (s *stubConn) Rebind(query string) string { return query }

func (s *stubConn) Tables(context.Context) ([]string, error) {
	return s.tables, s.tablesErr
}

func (s *stubConn) TablesFromCatalog(context.Context) ([]string, error) {
	return s.catalog, s.catalogErr
}

func (s *stubConn) Columns(_ context.Context, table string) ([]models.Column, error) {
	if s.columnsErr != nil {
		return nil, s.columnsErr
	}
	return s.columns[table], nil
}

func (s *stubConn) PrimaryKey(_ context.Context, table string) ([]string, error) {
	return s.pks[table], nil
}

func (s *stubConn) ForeignKeys(_ context.Context, table string) ([]models.ForeignKey, error) {
	return s.fks[table], nil
}

func (s *stubConn) Sample(_ context.Context, table string, _ int) ([]map[string]any, error) {
	return s.samples[table], nil
}

func (s *stubConn) DistinctValues(_ context.Context, table, column string, _ int) ([]string, error) {
	if s.distinctErr != nil {
		return nil, s.distinctErr
	}
	return s.distinct[table+"."+column], nil
}

func (s *stubConn) Query(context.Context, string, ...any) (*adapter.ResultSet, error) {
	return &adapter.ResultSet{}, nil
}

// hrStub models a two-table HR database with one declared foreign key.
func hrStub() *stubConn {
	return &stubConn{
		tables: []string{"employees", "departments"},
		columns: map[string][]models.Column{
			"employees": {
				{Name: "id", Type: "INTEGER"},
				{Name: "name", Type: "TEXT"},
				{Name: "department_id", Type: "INTEGER"},
				{Name: "salary", Type: "REAL"},
			},
			"departments": {
				{Name: "id", Type: "INTEGER"},
				{Name: "name", Type: "TEXT"},
			},
		},
		pks: map[string][]string{
			"employees":   {"id"},
			"departments": {"id"},
		},
		fks: map[string][]models.ForeignKey{
			"employees": {{
				Columns:    []string{"department_id"},
				RefTable:   "departments",
				RefColumns: []string{"id"},
			}},
		},
		samples: map[string][]map[string]any{
			"employees": {{"id": int64(1), "name": "Ada"}},
		},
	}
}

func TestDiscoverConnectionError(t *testing.T) {
	conn := &stubConn{pingErr: errors.New("connection refused")}
	_, err := NewDiscoverer(conn).Discover(context.Background())

	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if connErr.Retryable() {
		t.Error("refused connection reported as retryable")
	}
}

func TestDiscoverTimeoutIsRetryable(t *testing.T) {
	conn := &stubConn{pingErr: context.DeadlineExceeded}
	_, err := NewDiscoverer(conn).Discover(context.Background())

	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if !connErr.Retryable() {
		t.Error("deadline exceeded not reported as retryable")
	}
}

func TestDiscoverCatalogFallback(t *testing.T) {
	conn := &stubConn{
		tablesErr: errors.New("native listing not supported"),
		catalog:   []string{"orders"},
		columns:   map[string][]models.Column{"orders": {{Name: "id"}}},
	}
	schema, err := NewDiscoverer(conn).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if _, ok := schema.Tables["orders"]; !ok {
		t.Fatalf("catalog fallback table missing, have %v", schema.TableNames())
	}
}

func TestDiscoverBothListingsFail(t *testing.T) {
	conn := &stubConn{
		tablesErr:  errors.New("native failed"),
		catalogErr: errors.New("catalog failed"),
	}
	_, err := NewDiscoverer(conn).Discover(context.Background())

	var discErr *DiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("expected DiscoveryError, got %v", err)
	}
}

func TestDiscoverEmptyDatabase(t *testing.T) {
	schema, err := NewDiscoverer(&stubConn{}).Discover(context.Background())
	if err != nil {
		t.Fatalf("empty database must not fail: %v", err)
	}
	if len(schema.Tables) != 0 || len(schema.Relationships) != 0 {
		t.Errorf("expected empty schema, got %+v", schema)
	}
}

func TestDiscoverIsolatesPerTableFailures(t *testing.T) {
	conn := &stubConn{
		tables:     []string{"employees"},
		columnsErr: errors.New("permission denied"),
	}
	schema, err := NewDiscoverer(conn).Discover(context.Background())
	if err != nil {
		t.Fatalf("per-table failure escaped: %v", err)
	}
	table := schema.Tables["employees"]
	if table == nil {
		t.Fatal("failed table missing from schema")
	}
	if len(table.Columns) != 0 {
		t.Errorf("expected empty columns, got %v", table.Columns)
	}
	if table.Purpose != models.PurposeEmployee {
		t.Errorf("name-based classification lost: %q", table.Purpose)
	}
}

func TestDiscoverBuildsSchema(t *testing.T) {
	schema, err := NewDiscoverer(hrStub(), WithSampleRows(3)).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	emp := schema.Tables["employees"]
	if emp == nil {
		t.Fatal("employees table missing")
	}
	if emp.Purpose != models.PurposeEmployee {
		t.Errorf("employees purpose = %q", emp.Purpose)
	}
	if dept := schema.Tables["departments"]; dept == nil || dept.Purpose != models.PurposeDepartment {
		t.Errorf("departments purpose wrong: %+v", dept)
	}

	var idMarked bool
	for _, col := range emp.Columns {
		if col.Name == "id" && col.IsPrimaryKey {
			idMarked = true
		}
	}
	if !idMarked {
		t.Error("declared primary key not marked on the id column")
	}

	if len(schema.Samples["employees"]) != 1 {
		t.Errorf("expected 1 sample row, got %d", len(schema.Samples["employees"]))
	}
}

func TestRelationshipPasses(t *testing.T) {
	schema, err := NewDiscoverer(hrStub(), WithValueInference(true)).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if !hasRelationship(schema.Relationships, "employees", "departments", models.RelExplicit, models.ConfidenceHigh) {
		t.Error("declared foreign key missing from relationships")
	}
	if !hasRelationship(schema.Relationships, "employees", "departments", models.RelImplicit, models.ConfidenceMedium) {
		t.Error("department_id suffix match missing")
	}
	if !hasRelationship(schema.Relationships, "employees", "departments", models.RelImplicit, models.ConfidenceHigh) {
		t.Error("department token match missing")
	}
	if !hasRelationship(schema.Relationships, "departments", "employees", models.RelInferred, models.ConfidenceLow) {
		t.Error("value-inferred relationship missing")
	}
}

func TestRelationshipsAreDeterministic(t *testing.T) {
	first, err := NewDiscoverer(hrStub(), WithValueInference(true)).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	second, err := NewDiscoverer(hrStub(), WithValueInference(true)).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if !reflect.DeepEqual(first.Relationships, second.Relationships) {
		t.Errorf("relationship order unstable:\n%+v\nvs\n%+v", first.Relationships, second.Relationships)
	}
}

func TestValueInferenceSwallowsProbeFailures(t *testing.T) {
	conn := hrStub()
	conn.distinctErr = errors.New("table locked")
	schema, err := NewDiscoverer(conn, WithValueInference(true)).Discover(context.Background())
	if err != nil {
		t.Fatalf("probe failure escaped: %v", err)
	}
	for _, rel := range schema.Relationships {
		if rel.Kind == models.RelInferred {
			t.Fatalf("inferred relationship emitted despite probe failure: %+v", rel)
		}
	}
	// Naming-based passes are unaffected.
	if !hasRelationship(schema.Relationships, "employees", "departments", models.RelExplicit, models.ConfidenceHigh) {
		t.Error("explicit relationship lost")
	}
}

func TestGuessPrimaryKey(t *testing.T) {
	tests := []struct {
		name  string
		table *models.Table
		want  []string
	}{
		{
			"declared key wins",
			&models.Table{PrimaryKey: []string{"emp_no"}, Columns: []models.Column{{Name: "id"}}},
			[]string{"emp_no"},
		},
		{
			"falls back to a key-named column",
			&models.Table{Columns: []models.Column{{Name: "uuid"}, {Name: "code"}}},
			[]string{"code"},
		},
		{
			"falls back to the first column",
			&models.Table{Columns: []models.Column{{Name: "alpha"}, {Name: "beta"}}},
			[]string{"alpha"},
		},
		{"no columns at all", &models.Table{}, []string{"id"}},
		{"nil table", nil, []string{"id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := guessPrimaryKey(tt.table); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("guessPrimaryKey = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiscoverSQLite(t *testing.T) {
	conn, err := adapter.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	mustExec(t, conn, `CREATE TABLE departments (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)
	mustExec(t, conn, `CREATE TABLE employees (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		department_id INTEGER REFERENCES departments(id),
		salary REAL
	)`)
	mustExec(t, conn, `INSERT INTO departments (id, name) VALUES (1, 'Engineering'), (2, 'Sales')`)
	mustExec(t, conn, `INSERT INTO employees (id, name, department_id, salary)
		VALUES (1, 'Ada', 1, 95000), (2, 'Grace', 2, 90000)`)

	schema, err := NewDiscoverer(conn, WithValueInference(true)).Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if got := schema.TableNames(); len(got) != 2 {
		t.Fatalf("tables = %v, want departments and employees", got)
	}
	if p := schema.Tables["employees"].Purpose; p != models.PurposeEmployee {
		t.Errorf("employees purpose = %q", p)
	}
	if !hasRelationship(schema.Relationships, "employees", "departments", models.RelExplicit, models.ConfidenceHigh) {
		t.Error("foreign key not discovered")
	}
	if len(schema.Samples["employees"]) != 2 {
		t.Errorf("employee samples = %d, want 2", len(schema.Samples["employees"]))
	}
}

func hasRelationship(rels []models.Relationship, from, to string, kind models.RelationshipKind, conf models.Confidence) bool {
	for _, rel := range rels {
		if rel.FromTable == from && rel.ToTable == to && rel.Kind == kind && rel.Confidence == conf {
			return true
		}
	}
	return false
}

func mustExec(t *testing.T, conn adapter.Connection, stmt string) {
	t.Helper()
	if _, err := conn.Query(context.Background(), stmt); err != nil {
		t.Fatalf("exec %q: %v", stmt, err)
	}
}
