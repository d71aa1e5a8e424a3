package translate

import (
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// documentKeywords signal intent to search ingested documents.
var documentKeywords = []string{
	"resume", "cv", "document", "file", "review", "report", "pdf", "skill", "experience",
}

// structuredKeywords signal intent to query the relational store.
var structuredKeywords = []string{
	"count", "average", "sum", "max", "min", "list", "show", "how many", "salary", "department",
}

// Classify routes a query into a lane by keyword-set membership. Both sets
// present means hybrid, only document keywords means the document lane, and
// everything else (including no keywords at all) falls to the structured
// lane. Pure and order-independent.
func Classify(query string) models.Lane {
	lower := strings.ToLower(query)
	hasDoc := containsAny(lower, documentKeywords)
	hasStructured := containsAny(lower, structuredKeywords)

	switch {
	case hasDoc && hasStructured:
		return models.LaneHybrid
	case hasDoc:
		return models.LaneDocument
	default:
		return models.LaneSQL
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
