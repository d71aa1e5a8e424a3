package engine

import "github.com/hyperjump/kotae/internal/models"

// combineHybrid merges the two lane responses into a single payload: a flat
// concatenation of all results for uniform consumption, plus the per-lane
// lists and counts. A failed lane contributes zero results; its error text
// is carried so a half-failed hybrid still reports what went wrong.
func combineHybrid(sqlResp, docResp *models.QueryResponse) *models.QueryResponse {
	combined := make([]any, 0, len(sqlResp.Results)+len(docResp.Results))
	combined = append(combined, sqlResp.Results...)
	combined = append(combined, docResp.Results...)

	resp := &models.QueryResponse{
		Results:      combined,
		ResultsCount: sqlResp.ResultsCount + docResp.ResultsCount,
		Error:        joinErrors(sqlResp.Error, docResp.Error),
		Hybrid: &models.HybridPayload{
			SQLResults:      sqlResp.Results,
			DocumentResults: docResp.Results,
			SQLCount:        sqlResp.ResultsCount,
			DocumentCount:   docResp.ResultsCount,
			CombinedCount:   sqlResp.ResultsCount + docResp.ResultsCount,
		},
	}
	return resp
}

func joinErrors(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "; " + b
	}
}
