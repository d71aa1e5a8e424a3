package translate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// Result is an executable statement with its bound arguments. User-derived
// values travel in Args as ? placeholders, never spliced into SQL.
type Result struct {
	SQL  string
	Args []any
}

// Intent patterns, tested in this order. The order is part of the contract:
// list/show is checked before max/min, so "show the maximum salary" builds a
// projection rather than an aggregate.
var (
	countIntent = regexp.MustCompile(`how many|count`)
	avgIntent   = regexp.MustCompile(`average|avg|mean`)
	listIntent  = regexp.MustCompile(`list|show|display`)
	maxIntent   = regexp.MustCompile(`max|maximum|highest`)
	minIntent   = regexp.MustCompile(`min|minimum|lowest`)

	departmentName = regexp.MustCompile(`engineering|sales|marketing|hr|finance|it`)
)

// Translate renders a natural-language query into SQL using the schema
// mapping. Queries matching no intent pattern default to a projection.
func Translate(query string, mapping *models.Mapping, schema *models.Schema) (*Result, error) {
	lower := strings.ToLower(query)
	switch {
	case countIntent.MatchString(lower):
		return countQuery(mapping, schema)
	case avgIntent.MatchString(lower):
		return salaryAggregate(mapping, "AVG", "average_salary", "average")
	case listIntent.MatchString(lower):
		return selectQuery(lower, mapping, schema)
	case maxIntent.MatchString(lower):
		return salaryAggregate(mapping, "MAX", "max_salary", "max")
	case minIntent.MatchString(lower):
		return salaryAggregate(mapping, "MIN", "min_salary", "min")
	default:
		return selectQuery(lower, mapping, schema)
	}
}

// employeeTable resolves the target table for count and projection queries:
// the mapped employee table if the query mentioned one, otherwise the first
// table classified with employee purpose.
func employeeTable(mapping *models.Mapping, schema *models.Schema) string {
	if table := mapping.Tables["employee"]; table != "" {
		return table
	}
	return schema.FirstTableWithPurpose(models.PurposeEmployee)
}

func countQuery(mapping *models.Mapping, schema *models.Schema) (*Result, error) {
	table := employeeTable(mapping, schema)
	if table == "" {
		return nil, &TranslationError{Reason: "no employee table found for count query"}
	}
	return &Result{SQL: fmt.Sprintf("SELECT COUNT(*) AS count FROM %s", table)}, nil
}

func salaryAggregate(mapping *models.Mapping, fn, alias, intent string) (*Result, error) {
	ref, ok := mapping.Columns["salary"]
	if !ok {
		return nil, &TranslationError{Reason: fmt.Sprintf("no salary column found for %s query", intent)}
	}
	return &Result{SQL: fmt.Sprintf("SELECT %s(%s) AS %s FROM %s", fn, ref.Column, alias, ref.Table)}, nil
}

func selectQuery(lower string, mapping *models.Mapping, schema *models.Schema) (*Result, error) {
	table := employeeTable(mapping, schema)
	if table == "" {
		return nil, &TranslationError{Reason: "no suitable table found for select query"}
	}

	projection := "*"
	if t := schema.Tables[table]; t != nil && len(t.Columns) > 0 {
		names := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			names[i] = col.Name
		}
		projection = strings.Join(names, ", ")
	}

	where, args := whereClause(lower, mapping, table)
	sql := fmt.Sprintf("SELECT %s FROM %s", projection, table)
	if where != "" {
		sql += " WHERE " + where
	}
	sql += " LIMIT 100"
	return &Result{SQL: sql, Args: args}, nil
}

// whereClause scans the query for a known department name and emits a
// pattern-match condition on the mapped department column. The condition is
// only added when the department column lives on the table being queried.
func whereClause(lower string, mapping *models.Mapping, table string) (string, []any) {
	var conditions []string
	var args []any

	if strings.Contains(lower, "department") {
		if ref, ok := mapping.Columns["department"]; ok && ref.Table == table {
			if name := departmentName.FindString(lower); name != "" {
				conditions = append(conditions, ref.Column+" LIKE ?")
				args = append(args, "%"+name+"%")
			}
		}
	}

	return strings.Join(conditions, " AND "), args
}
