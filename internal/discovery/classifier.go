package discovery

import (
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// ClassifyTable assigns a purpose to a table from its name, falling back to
// its column roles. Table-name patterns are checked first in vocabulary
// order; the first match wins even when a later entry would also match.
func ClassifyTable(name string, columns []models.Column) models.Purpose {
	lower := strings.ToLower(name)
	for _, entry := range tablePatterns {
		for _, re := range entry.patterns {
			if re.MatchString(lower) {
				return models.Purpose(entry.purpose)
			}
		}
	}
	return classifyByColumns(columns)
}

// classifyByColumns decides a purpose from column roles alone. A column
// matching an employee-ish role (name, salary, department, hire date, email,
// phone) marks the table as employee; id and position matches carry no signal
// on their own and scanning continues past them.
func classifyByColumns(columns []models.Column) models.Purpose {
	for _, col := range columns {
		lower := strings.ToLower(col.Name)
		for _, entry := range columnPatterns {
			for _, re := range entry.patterns {
				if !re.MatchString(lower) {
					continue
				}
				if employeeColumnRoles[entry.purpose] {
					return models.PurposeEmployee
				}
			}
		}
	}
	return models.PurposeUnknown
}
