package models

import (
	"encoding/json"
	"testing"
)

func TestQueryRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   *QueryRequest
		wantErr bool
	}{
		{"empty query", &QueryRequest{Query: ""}, true},
		{"valid query", &QueryRequest{Query: "how many employees"}, false},
		{"connection string optional", &QueryRequest{Query: "list employees", ConnectionString: "sqlite://test.db"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSchema_TableNamesSorted(t *testing.T) {
	s := &Schema{Tables: map[string]*Table{
		"workers":   {Name: "workers"},
		"accounts":  {Name: "accounts"},
		"divisions": {Name: "divisions"},
	}}
	names := s.TableNames()
	want := []string{"accounts", "divisions", "workers"}
	if len(names) != len(want) {
		t.Fatalf("TableNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("TableNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestSchema_FirstTableWithPurpose(t *testing.T) {
	s := &Schema{Tables: map[string]*Table{
		"workers": {Name: "workers", Purpose: PurposeEmployee},
		"staff":   {Name: "staff", Purpose: PurposeEmployee},
		"teams":   {Name: "teams", Purpose: PurposeDepartment},
	}}
	// Two employee tables; the lexicographically first wins.
	if got := s.FirstTableWithPurpose(PurposeEmployee); got != "staff" {
		t.Errorf("FirstTableWithPurpose(employee) = %q, want %q", got, "staff")
	}
	if got := s.FirstTableWithPurpose(PurposeSalary); got != "" {
		t.Errorf("FirstTableWithPurpose(salary) = %q, want empty", got)
	}
}

func TestQueryResponse_MarshalFlattensSQLLane(t *testing.T) {
	resp := &QueryResponse{
		Results:      []any{map[string]any{"count": 42}},
		QueryType:    LaneSQL,
		ResponseTime: 0.05,
		ResultsCount: 1,
		SQL: &SQLPayload{
			Generated: "SELECT COUNT(*) AS count FROM employees",
			Mapping:   NewMapping(),
		},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out["query_type"] != "sql" {
		t.Errorf("query_type = %v, want sql", out["query_type"])
	}
	if out["sql_generated"] != "SELECT COUNT(*) AS count FROM employees" {
		t.Errorf("sql_generated = %v", out["sql_generated"])
	}
	if _, ok := out["mapping_used"]; !ok {
		t.Error("mapping_used missing from flattened response")
	}
	if _, ok := out["sql_results"]; ok {
		t.Error("sql_results should only appear on hybrid responses")
	}
	if _, ok := out["error"]; ok {
		t.Error("error should be omitted when empty")
	}
}

func TestQueryResponse_MarshalFlattensHybridLane(t *testing.T) {
	resp := &QueryResponse{
		Results:      []any{"a", "b", "c"},
		QueryType:    LaneHybrid,
		ResultsCount: 3,
		Hybrid: &HybridPayload{
			SQLResults:      []any{"a"},
			DocumentResults: []any{"b", "c"},
			SQLCount:        1,
			DocumentCount:   2,
			CombinedCount:   3,
		},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out["sql_count"] != float64(1) || out["document_count"] != float64(2) || out["combined_count"] != float64(3) {
		t.Errorf("counts = %v/%v/%v", out["sql_count"], out["document_count"], out["combined_count"])
	}
	if len(out["sql_results"].([]any)) != 1 {
		t.Errorf("sql_results = %v", out["sql_results"])
	}
}

func TestQueryResponse_ErrorResponseIsValidPayload(t *testing.T) {
	resp := NewErrorResponse("translation failed: no salary column found", 0.01)
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out["query_type"] != "error" {
		t.Errorf("query_type = %v, want error", out["query_type"])
	}
	if out["results_count"] != float64(0) {
		t.Errorf("results_count = %v, want 0", out["results_count"])
	}
	if _, ok := out["results"].([]any); !ok {
		t.Errorf("results should be an empty list, got %T", out["results"])
	}
	if out["error"] == "" {
		t.Error("error message missing")
	}
}

func TestQueryResponse_CloneLeavesOriginal(t *testing.T) {
	orig := &QueryResponse{QueryType: LaneSQL, CacheHit: false, ResponseTime: 1.5}
	cp := orig.Clone()
	cp.CacheHit = true
	cp.ResponseTime = 0.001
	if orig.CacheHit {
		t.Error("clone mutated the original cache flag")
	}
	if orig.ResponseTime != 1.5 {
		t.Errorf("clone mutated the original response time: %v", orig.ResponseTime)
	}
}
