package models

import "sort"

// Purpose is the semantic role assigned to a table or column during discovery.
type Purpose string

// Known purposes. Classification always lands on one of these; tables that
// match no pattern stay PurposeUnknown.
const (
	PurposeEmployee   Purpose = "employee"
	PurposeDepartment Purpose = "department"
	PurposeSalary     Purpose = "salary"
	PurposeDocument   Purpose = "document"
	PurposeProject    Purpose = "project"
	PurposeLeave      Purpose = "leave"
	PurposeUnknown    Purpose = "unknown"
)

// Column describes one column of a discovered table.
type Column struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Nullable     bool   `json:"nullable"`
	Default      string `json:"default,omitempty"`
	IsPrimaryKey bool   `json:"primary_key"`
}

// ForeignKey is a declared foreign-key constraint.
type ForeignKey struct {
	Name       string   `json:"name,omitempty"`
	Columns    []string `json:"constrained_columns"`
	RefTable   string   `json:"referred_table"`
	RefColumns []string `json:"referred_columns"`
}

// Table is a discovered table with its classification.
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  []string     `json:"primary_key"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
	Purpose     Purpose      `json:"purpose"`
}

// RelationshipKind distinguishes how a relationship was detected.
type RelationshipKind string

const (
	// RelExplicit comes from a declared foreign-key constraint.
	RelExplicit RelationshipKind = "explicit"
	// RelImplicit comes from naming-convention inference (_id suffixes, shared tokens).
	RelImplicit RelationshipKind = "implicit"
	// RelInferred comes from value sampling and is expected to be noisy.
	RelInferred RelationshipKind = "inferred"
)

// Confidence grades a detected relationship.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Relationship links two tables. Several relationships may exist between the
// same pair (different kinds/confidences); consumers must tolerate duplicates.
type Relationship struct {
	FromTable   string           `json:"from_table"`
	FromColumns []string         `json:"from_columns"`
	ToTable     string           `json:"to_table"`
	ToColumns   []string         `json:"to_columns"`
	Kind        RelationshipKind `json:"kind"`
	Confidence  Confidence       `json:"confidence"`
}

// Schema is the full discovered shape of a target database.
type Schema struct {
	Tables        map[string]*Table           `json:"tables"`
	Relationships []Relationship              `json:"relationships"`
	Samples       map[string][]map[string]any `json:"sample_data,omitempty"`
}

// TableNames returns all table names in lexicographic order. Iteration over
// the Tables map is randomized by the runtime; ordered walks must go through
// this so classification and mapping stay reproducible.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FirstTableWithPurpose returns the lexicographically first table carrying
// the given purpose, or "" when none does.
func (s *Schema) FirstTableWithPurpose(p Purpose) string {
	for _, name := range s.TableNames() {
		if s.Tables[name].Purpose == p {
			return name
		}
	}
	return ""
}

// ColumnRef points at a concrete column in a concrete table.
type ColumnRef struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// DetectedEntity records one vocabulary hit found while mapping a query.
// Type is "table" or "column"; MappedTo carries the resolved table name or
// a table.column pair.
type DetectedEntity struct {
	Type     string `json:"type"`
	Entity   string `json:"entity"`
	MappedTo string `json:"mapped_to"`
}

// Mapping resolves roles mentioned in a natural-language query to concrete
// schema objects. Built fresh per query, never cached on its own.
type Mapping struct {
	Tables   map[string]string    `json:"table_mappings"`
	Columns  map[string]ColumnRef `json:"column_mappings"`
	Entities []DetectedEntity     `json:"detected_entities"`
}

// NewMapping returns an empty mapping with initialized maps.
func NewMapping() *Mapping {
	return &Mapping{
		Tables:  make(map[string]string),
		Columns: make(map[string]ColumnRef),
	}
}

// SchemaNode is one table in the visualization graph.
type SchemaNode struct {
	ID      string       `json:"id"`
	Type    string       `json:"type"`
	Purpose Purpose      `json:"purpose"`
	Columns []NodeColumn `json:"columns"`
}

// NodeColumn is the trimmed column shape used by the visualization graph.
type NodeColumn struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	PrimaryKey bool   `json:"primary_key"`
}

// LinkColumns names the joined columns on each side of a graph edge.
type LinkColumns struct {
	From []string `json:"from"`
	To   []string `json:"to"`
}

// SchemaLink is one relationship edge in the visualization graph.
type SchemaLink struct {
	Source  string      `json:"source"`
	Target  string      `json:"target"`
	Type    string      `json:"type"`
	Columns LinkColumns `json:"columns"`
}

// SchemaGraph is the node/link form of a schema consumed by visualization.
type SchemaGraph struct {
	Nodes         []SchemaNode        `json:"nodes"`
	Links         []SchemaLink        `json:"links"`
	PurposeGroups map[string][]string `json:"table_purposes"`
}
