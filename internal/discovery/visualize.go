package discovery

import "github.com/hyperjump/kotae/internal/models"

// purposeGroupNames are the visualization buckets. Salary, leave, and
// unknown tables all land in other_tables.
var purposeGroupNames = []string{
	"employee_tables",
	"department_tables",
	"document_tables",
	"project_tables",
	"other_tables",
}

// PurposeGroups buckets table names by their classified purpose, in
// table-name order within each bucket.
func PurposeGroups(schema *models.Schema) map[string][]string {
	groups := make(map[string][]string, len(purposeGroupNames))
	for _, name := range purposeGroupNames {
		groups[name] = []string{}
	}
	for _, name := range schema.TableNames() {
		group := purposeGroup(schema.Tables[name].Purpose)
		groups[group] = append(groups[group], name)
	}
	return groups
}

// Graph converts a schema into the node/link form served to visualization
// clients. Nodes appear in table-name order; links carry the kind the
// resolver assigned rather than collapsing everything to one edge type.
func Graph(schema *models.Schema) *models.SchemaGraph {
	graph := &models.SchemaGraph{
		Nodes:         make([]models.SchemaNode, 0, len(schema.Tables)),
		Links:         make([]models.SchemaLink, 0, len(schema.Relationships)),
		PurposeGroups: PurposeGroups(schema),
	}

	for _, name := range schema.TableNames() {
		table := schema.Tables[name]
		cols := make([]models.NodeColumn, len(table.Columns))
		for i, col := range table.Columns {
			cols[i] = models.NodeColumn{
				Name:       col.Name,
				Type:       col.Type,
				PrimaryKey: col.IsPrimaryKey,
			}
		}
		graph.Nodes = append(graph.Nodes, models.SchemaNode{
			ID:      name,
			Type:    "table",
			Purpose: table.Purpose,
			Columns: cols,
		})
	}

	for _, rel := range schema.Relationships {
		graph.Links = append(graph.Links, models.SchemaLink{
			Source: rel.FromTable,
			Target: rel.ToTable,
			Type:   string(rel.Kind),
			Columns: models.LinkColumns{
				From: rel.FromColumns,
				To:   rel.ToColumns,
			},
		})
	}

	return graph
}

func purposeGroup(p models.Purpose) string {
	switch p {
	case models.PurposeEmployee:
		return "employee_tables"
	case models.PurposeDepartment:
		return "department_tables"
	case models.PurposeDocument:
		return "document_tables"
	case models.PurposeProject:
		return "project_tables"
	default:
		return "other_tables"
	}
}
