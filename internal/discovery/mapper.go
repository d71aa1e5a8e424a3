package discovery

import (
	"regexp"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// MapQuery resolves the roles mentioned in a natural-language query to
// concrete tables and columns of the discovered schema. Tables are walked in
// sorted order and the first match per role wins; later candidates never
// overwrite an established mapping, which keeps resolution stable across
// runs.
func MapQuery(query string, schema *models.Schema) *models.Mapping {
	mapping := models.NewMapping()
	queryLower := strings.ToLower(query)

	for _, name := range schema.TableNames() {
		role := string(schema.Tables[name].Purpose)
		if _, done := mapping.Tables[role]; done {
			continue
		}
		for _, re := range tablePatternsFor(role) {
			if !re.MatchString(queryLower) {
				continue
			}
			mapping.Tables[role] = name
			mapping.Entities = append(mapping.Entities, models.DetectedEntity{
				Type:     "table",
				Entity:   role,
				MappedTo: name,
			})
			break
		}
	}

	for _, name := range schema.TableNames() {
		for _, col := range schema.Tables[name].Columns {
			colLower := strings.ToLower(col.Name)
			for _, entry := range columnPatterns {
				if _, done := mapping.Columns[entry.purpose]; done {
					continue
				}
				if !matchesBoth(entry.patterns, colLower, queryLower) {
					continue
				}
				mapping.Columns[entry.purpose] = models.ColumnRef{Table: name, Column: col.Name}
				mapping.Entities = append(mapping.Entities, models.DetectedEntity{
					Type:     "column",
					Entity:   entry.purpose,
					MappedTo: name + "." + col.Name,
				})
			}
		}
	}

	return mapping
}

// tablePatternsFor returns the name patterns for a purpose, or nil for
// purposes outside the vocabulary (notably "unknown", which can never be
// mentioned in a query).
func tablePatternsFor(purpose string) []*regexp.Regexp {
	for _, entry := range tablePatterns {
		if entry.purpose == purpose {
			return entry.patterns
		}
	}
	return nil
}

// matchesBoth reports whether any single pattern hits the column name and
// the query text. The same pattern must match both sides; a column matching
// one pattern and the query another is not a mapping.
func matchesBoth(patterns []*regexp.Regexp, colName, query string) bool {
	for _, re := range patterns {
		if re.MatchString(colName) && re.MatchString(query) {
			return true
		}
	}
	return false
}
