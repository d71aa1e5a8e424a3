package discovery

import (
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func TestClassifyTable(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []models.Column
		want    models.Purpose
	}{
		{"plain employees", "employees", nil, models.PurposeEmployee},
		{"employee records", "employee_records", nil, models.PurposeEmployee},
		{"staff", "staff_members", nil, models.PurposeEmployee},
		{"departments", "departments", nil, models.PurposeDepartment},
		{"teams", "team_assignments", nil, models.PurposeDepartment},
		{"payroll", "payroll", nil, models.PurposeSalary},
		{"documents", "docs", nil, models.PurposeDocument},
		{"resumes", "resumes", nil, models.PurposeDocument},
		{"projects", "projects", nil, models.PurposeProject},
		{"vacations", "vacation_requests", nil, models.PurposeLeave},
		{"no signal at all", "widgets", []models.Column{{Name: "sku"}, {Name: "price"}}, models.PurposeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyTable(tt.table, tt.columns); got != tt.want {
				t.Errorf("ClassifyTable(%q) = %q, want %q", tt.table, got, tt.want)
			}
		})
	}
}

// Earlier vocabulary entries win: "user_documents" hits the employee entry
// via "user" before the document entry can see "doc", and "group_files"
// hits department via "group" before document sees "file".
func TestClassifyTableFirstPatternWins(t *testing.T) {
	if got := ClassifyTable("user_documents", nil); got != models.PurposeEmployee {
		t.Errorf("user_documents = %q, want employee", got)
	}
	if got := ClassifyTable("group_files", nil); got != models.PurposeDepartment {
		t.Errorf("group_files = %q, want department", got)
	}
}

func TestClassifyTableColumnFallback(t *testing.T) {
	tests := []struct {
		name    string
		columns []models.Column
		want    models.Purpose
	}{
		{"name column implies employee", []models.Column{{Name: "widget_name"}}, models.PurposeEmployee},
		{"email column implies employee", []models.Column{{Name: "email"}}, models.PurposeEmployee},
		{"phone column implies employee", []models.Column{{Name: "mobile_phone"}}, models.PurposeEmployee},
		{"salary column implies employee", []models.Column{{Name: "base_wage"}}, models.PurposeEmployee},
		{"id and position carry no signal", []models.Column{{Name: "record_id"}, {Name: "job_title"}}, models.PurposeUnknown},
		{"no columns", nil, models.PurposeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Table name chosen to miss every table pattern.
			if got := ClassifyTable("zzz", tt.columns); got != tt.want {
				t.Errorf("ClassifyTable(zzz, %v) = %q, want %q", tt.columns, got, tt.want)
			}
		})
	}
}

// A column that matches a non-signal role must not stop the scan; a later
// column with an employee-ish role still classifies the table.
func TestClassifyTableScansPastNonSignalColumns(t *testing.T) {
	columns := []models.Column{
		{Name: "code"},
		{Name: "title"},
		{Name: "hire_date"},
	}
	if got := ClassifyTable("zzz", columns); got != models.PurposeEmployee {
		t.Errorf("got %q, want employee via hire_date", got)
	}
}
