package translate

import (
	"regexp"
	"strings"

	"github.com/hyperjump/kotae/pkg/utils"
)

// structuralKeywords are uppercased by Format. Aggregate function names are
// deliberately absent: uppercasing them would also rewrite aliases like
// "count" or "max_salary" and change result column keys across dialects.
var structuralKeywords = regexp.MustCompile(`(?i)\b(select|from|where|and|or|like|limit|as|order by|group by)\b`)

var aggregateMarkers = []string{"COUNT", "AVG", "SUM", "MAX", "MIN"}

// Format is the safety pass over a generated statement: collapse whitespace,
// uppercase structural keywords, and append a row cap to non-aggregate
// projections that lack one.
func Format(sql string) string {
	formatted := utils.NormalizeSpace(sql)
	formatted = structuralKeywords.ReplaceAllStringFunc(formatted, strings.ToUpper)

	upper := strings.ToUpper(formatted)
	if strings.Contains(upper, "SELECT") &&
		!strings.Contains(upper, "LIMIT") &&
		!containsAggregate(upper) {
		formatted += " LIMIT 100"
	}
	return formatted
}

func containsAggregate(upper string) bool {
	for _, marker := range aggregateMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}
