package models

import (
	"fmt"
	"time"
)

// Lane is the routing decision for a query: structured SQL, document
// similarity search, or both.
type Lane string

const (
	LaneSQL      Lane = "sql"
	LaneDocument Lane = "document"
	LaneHybrid   Lane = "hybrid"
	// LaneError marks responses produced from an unrecoverable failure.
	LaneError Lane = "error"
)

// QueryRequest is a natural-language query against a target database.
type QueryRequest struct {
	Query            string `json:"query"`
	ConnectionString string `json:"connection_string,omitempty"`
}

// Validate rejects empty queries. The raw text is left untouched; it is the
// cache-key input and must reach the engine unchanged.
func (q *QueryRequest) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	return nil
}

// HistoryRecord is one append-only execution log entry.
type HistoryRecord struct {
	ID           int64     `json:"id"`
	Query        string    `json:"query_text"`
	QueryType    string    `json:"query_type"`
	ResultsCount int       `json:"results_count"`
	ResponseTime float64   `json:"response_time"`
	CacheHit     bool      `json:"cache_hit"`
	ExecutedAt   time.Time `json:"executed_at"`
}

// Metrics is the aggregate view over the execution history.
type Metrics struct {
	AverageResponseTime float64 `json:"avg_response_time"`
	CacheHitRate        float64 `json:"cache_hit_rate"`
	TotalQueries        int64   `json:"total_queries"`
	RecentQueries       int64   `json:"recent_queries"`
	ActiveConnections   int     `json:"active_connections"`
}
