// Package cli renders query engine output for terminal use.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OutputFormat selects between human-readable and machine-readable output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a -output flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteQueryResponse writes a processed query response to w.
func WriteQueryResponse(w io.Writer, resp *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	writeQueryResponseText(w, resp)
	return nil
}

func writeQueryResponseText(w io.Writer, resp *models.QueryResponse) {
	fmt.Fprintf(w, "\n[%s] %d result(s) in %.3fs", resp.QueryType, resp.ResultsCount, resp.ResponseTime)
	if resp.CacheHit {
		fmt.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)
	if resp.Error != "" {
		fmt.Fprintf(w, "error: %s\n", resp.Error)
	}
	if resp.SQL != nil && resp.SQL.Generated != "" {
		fmt.Fprintf(w, "sql: %s\n", resp.SQL.Generated)
	}
	if resp.Document != nil && resp.Document.Message != "" {
		fmt.Fprintf(w, "note: %s\n", resp.Document.Message)
	}
	if resp.Hybrid != nil {
		fmt.Fprintf(w, "combined: %d sql + %d document\n",
			resp.Hybrid.SQLCount, resp.Hybrid.DocumentCount)
	}
	if len(resp.Results) > 0 {
		fmt.Fprintln(w)
		for i, item := range resp.Results {
			writeResultItem(w, i+1, item)
		}
	}
}

// writeResultItem renders one envelope entry. Rows and document hits arrive
// as typed values in-process and as maps after a JSON round trip; both forms
// are handled.
func writeResultItem(w io.Writer, rank int, item any) {
	switch v := item.(type) {
	case models.DocumentResult:
		writeDocumentHit(w, rank, v.ScorePercentage, v.DocumentID, v.Content)
	case map[string]any:
		if isDocumentHit(v) {
			score, _ := v["score_percentage"].(float64)
			id, _ := v["document_id"].(string)
			content, _ := v["content"].(string)
			writeDocumentHit(w, rank, int(score), id, content)
			return
		}
		fmt.Fprintf(w, "%3d. %s\n", rank, compactJSON(v))
	default:
		fmt.Fprintf(w, "%3d. %s\n", rank, compactJSON(v))
	}
}

func writeDocumentHit(w io.Writer, rank, score int, docID, content string) {
	fmt.Fprintf(w, "%3d. [%d%%] %s\n", rank, score, docID)
	fmt.Fprintf(w, "     %s\n", utils.Truncate(utils.NormalizeSpace(content), 160))
}

func isDocumentHit(m map[string]any) bool {
	_, hasScore := m["score_percentage"]
	_, hasDoc := m["document_id"]
	return hasScore && hasDoc
}

// WriteHistory writes history records to w, newest first as given.
func WriteHistory(w io.Writer, recs []models.HistoryRecord, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(w, "no queries recorded")
		return nil
	}
	for _, rec := range recs {
		cached := ""
		if rec.CacheHit {
			cached = " cached"
		}
		fmt.Fprintf(w, "%s  %-8s %3d result(s) %7.3fs%s  %s\n",
			rec.ExecutedAt.Format("2006-01-02 15:04:05"),
			rec.QueryType, rec.ResultsCount, rec.ResponseTime, cached,
			utils.Truncate(rec.Query, 60))
	}
	return nil
}

// WriteSchema writes a discovered schema as a table dump.
func WriteSchema(w io.Writer, schema *models.Schema, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, schema)
	}
	names := schema.TableNames()
	fmt.Fprintf(w, "\n%d table(s), %d relationship(s)\n", len(names), len(schema.Relationships))
	for _, name := range names {
		table := schema.Tables[name]
		fmt.Fprintf(w, "\n%s (%s)\n", name, table.Purpose)
		for _, col := range table.Columns {
			fmt.Fprintf(w, "  %-24s %-12s%s\n", col.Name, col.Type, columnFlags(table, col))
		}
	}
	if len(schema.Relationships) > 0 {
		fmt.Fprintln(w)
		for _, rel := range schema.Relationships {
			fmt.Fprintf(w, "%s.%s -> %s.%s  (%s, %s)\n",
				rel.FromTable, strings.Join(rel.FromColumns, ","),
				rel.ToTable, strings.Join(rel.ToColumns, ","),
				rel.Kind, rel.Confidence)
		}
	}
	return nil
}

func columnFlags(table *models.Table, col models.Column) string {
	var flags []string
	if col.IsPrimaryKey {
		flags = append(flags, "PK")
	}
	for _, fk := range table.ForeignKeys {
		for _, c := range fk.Columns {
			if c == col.Name {
				flags = append(flags, "FK -> "+fk.RefTable)
			}
		}
	}
	if !col.Nullable {
		flags = append(flags, "NOT NULL")
	}
	if len(flags) == 0 {
		return ""
	}
	return "  " + strings.Join(flags, ", ")
}

// WriteMetrics writes the rolling query metrics.
func WriteMetrics(w io.Writer, m *models.Metrics, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, m)
	}
	fmt.Fprintf(w, "total_queries:       %d\n", m.TotalQueries)
	fmt.Fprintf(w, "recent_queries:      %d   # last hour\n", m.RecentQueries)
	fmt.Fprintf(w, "avg_response_time:   %.2fs\n", m.AverageResponseTime)
	fmt.Fprintf(w, "cache_hit_rate:      %.2f%%\n", m.CacheHitRate)
	fmt.Fprintf(w, "active_connections:  %d\n", m.ActiveConnections)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
