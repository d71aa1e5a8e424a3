package models

import "encoding/json"

// DocumentResult is one semantic search hit over a stored fragment.
type DocumentResult struct {
	DocumentID      string  `json:"document_id"`
	ChunkIndex      int     `json:"chunk_index"`
	Content         string  `json:"content"`
	Similarity      float64 `json:"similarity"`
	TokenCount      int     `json:"tokens_count"`
	ScorePercentage int     `json:"score_percentage"`
}

// SQLPayload carries the structured-lane extras of a response.
type SQLPayload struct {
	Generated string   `json:"sql_generated"`
	Mapping   *Mapping `json:"mapping_used,omitempty"`
}

// DocumentPayload carries the document-lane extras of a response.
// Message distinguishes "no documents ingested" from zero matches.
type DocumentPayload struct {
	Method  string `json:"search_method"`
	Message string `json:"message,omitempty"`
}

// HybridPayload carries both result sets plus their counts. Results in the
// envelope is always the order-preserving concatenation SQL ++ Document.
type HybridPayload struct {
	SQLResults      []any `json:"sql_results"`
	DocumentResults []any `json:"document_results"`
	SQLCount        int   `json:"sql_count"`
	DocumentCount   int   `json:"document_count"`
	CombinedCount   int   `json:"combined_count"`
}

// QueryResponse is the envelope returned for every processed query. Exactly
// one of SQL/Document/Hybrid is set for a successful response; all are nil
// for the error lane. The wire shape is flat (see MarshalJSON), the Go shape
// keeps the lane payloads separate.
type QueryResponse struct {
	Results      []any   `json:"results"`
	QueryType    Lane    `json:"query_type"`
	ResponseTime float64 `json:"response_time"`
	CacheHit     bool    `json:"cache_hit"`
	ResultsCount int     `json:"results_count"`
	Error        string  `json:"error,omitempty"`

	SQL      *SQLPayload      `json:"-"`
	Document *DocumentPayload `json:"-"`
	Hybrid   *HybridPayload   `json:"-"`
}

// NewErrorResponse builds a structurally valid empty-result response carrying
// the failure message. Transport callers always get 200 with this body.
func NewErrorResponse(message string, elapsed float64) *QueryResponse {
	return &QueryResponse{
		Results:      []any{},
		QueryType:    LaneError,
		ResponseTime: elapsed,
		ResultsCount: 0,
		Error:        message,
	}
}

// Clone returns a shallow copy sharing the lane payloads, which are treated
// as immutable once built. Cache hits clone before stamping fresh timing.
func (r *QueryResponse) Clone() *QueryResponse {
	cp := *r
	return &cp
}

// MarshalJSON flattens the envelope and the active lane payload into one
// object so the wire contract stays a single flat record.
func (r *QueryResponse) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"results":       r.Results,
		"query_type":    r.QueryType,
		"response_time": r.ResponseTime,
		"cache_hit":     r.CacheHit,
		"results_count": r.ResultsCount,
	}
	if r.Results == nil {
		out["results"] = []any{}
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	if r.SQL != nil {
		out["sql_generated"] = r.SQL.Generated
		if r.SQL.Mapping != nil {
			out["mapping_used"] = r.SQL.Mapping
		}
	}
	if r.Document != nil {
		if r.Document.Method != "" {
			out["search_method"] = r.Document.Method
		}
		if r.Document.Message != "" {
			out["message"] = r.Document.Message
		}
	}
	if r.Hybrid != nil {
		out["sql_results"] = emptyIfNil(r.Hybrid.SQLResults)
		out["document_results"] = emptyIfNil(r.Hybrid.DocumentResults)
		out["sql_count"] = r.Hybrid.SQLCount
		out["document_count"] = r.Hybrid.DocumentCount
		out["combined_count"] = r.Hybrid.CombinedCount
	}
	return json.Marshal(out)
}

func emptyIfNil(s []any) []any {
	if s == nil {
		return []any{}
	}
	return s
}
