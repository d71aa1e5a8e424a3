package discovery

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

const distinctProbeLimit = 10

// resolveRelationships runs the three detection passes and concatenates
// their output without deduplication. Tables are walked in lexicographic
// order in every pass so repeated discoveries of the same schema produce the
// same list.
func (d *Discoverer) resolveRelationships(ctx context.Context, schema *models.Schema) []models.Relationship {
	names := schema.TableNames()
	rels := explicitRelationships(schema, names)
	rels = append(rels, implicitRelationships(schema, names)...)
	if d.inferValues {
		rels = append(rels, d.inferredRelationships(ctx, schema, names)...)
	}
	return rels
}

// explicitRelationships emits one relationship per declared foreign key.
func explicitRelationships(schema *models.Schema, names []string) []models.Relationship {
	var rels []models.Relationship
	for _, name := range names {
		for _, fk := range schema.Tables[name].ForeignKeys {
			rels = append(rels, models.Relationship{
				FromTable:   name,
				FromColumns: fk.Columns,
				ToTable:     fk.RefTable,
				ToColumns:   fk.RefColumns,
				Kind:        models.RelExplicit,
				Confidence:  models.ConfidenceHigh,
			})
		}
	}
	return rels
}

// implicitRelationships detects links from naming conventions. A column
// "x_id" matching a table named x, xs, or containing x scores medium. A
// column carrying a dept token pointing at a table whose name contains
// "department" scores high. The two checks are independent, so a column
// like department_id can emit both.
func implicitRelationships(schema *models.Schema, names []string) []models.Relationship {
	var rels []models.Relationship
	for _, name := range names {
		for _, col := range schema.Tables[name].Columns {
			colLower := strings.ToLower(col.Name)

			if base := strings.TrimSuffix(colLower, "_id"); base != colLower && base != "" {
				for _, target := range names {
					targetLower := strings.ToLower(target)
					if targetLower == base || targetLower == base+"s" || strings.Contains(targetLower, base) {
						rels = append(rels, models.Relationship{
							FromTable:   name,
							FromColumns: []string{col.Name},
							ToTable:     target,
							ToColumns:   guessPrimaryKey(schema.Tables[target]),
							Kind:        models.RelImplicit,
							Confidence:  models.ConfidenceMedium,
						})
					}
				}
			}

			if strings.Contains(colLower, "dept") || strings.Contains(colLower, "department") {
				for _, target := range names {
					if !strings.Contains(strings.ToLower(target), "department") {
						continue
					}
					rels = append(rels, models.Relationship{
						FromTable:   name,
						FromColumns: []string{col.Name},
						ToTable:     target,
						ToColumns:   guessPrimaryKey(schema.Tables[target]),
						Kind:        models.RelImplicit,
						Confidence:  models.ConfidenceHigh,
					})
				}
			}
		}
	}
	return rels
}

// inferredRelationships probes identifier-like columns by sampling distinct
// values and pairs each against every other table's guessed primary key.
// The probe only confirms the column is selectable; value overlap is not
// verified, so this pass trades precision for recall. Probe failures skip
// the column and never abort discovery.
func (d *Discoverer) inferredRelationships(ctx context.Context, schema *models.Schema, names []string) []models.Relationship {
	var rels []models.Relationship
	for _, name := range names {
		for _, col := range schema.Tables[name].Columns {
			if !containsAny(strings.ToLower(col.Name), identifierTokens) {
				continue
			}
			probeCtx, cancel := d.callCtx(ctx)
			_, err := d.conn.DistinctValues(probeCtx, name, col.Name, distinctProbeLimit)
			cancel()
			if err != nil {
				d.logger.Debug("value probe failed",
					zap.String("table", name),
					zap.String("column", col.Name),
					zap.Error(err))
				continue
			}
			for _, target := range names {
				if target == name {
					continue
				}
				rels = append(rels, models.Relationship{
					FromTable:   name,
					FromColumns: []string{col.Name},
					ToTable:     target,
					ToColumns:   guessPrimaryKey(schema.Tables[target]),
					Kind:        models.RelInferred,
					Confidence:  models.ConfidenceLow,
				})
			}
		}
	}
	return rels
}

// guessPrimaryKey picks the best join target for a table: the declared
// primary key, then a column literally named id, code, or key, then the
// first column, then the bare token "id".
func guessPrimaryKey(table *models.Table) []string {
	if table == nil {
		return []string{"id"}
	}
	if len(table.PrimaryKey) > 0 {
		return table.PrimaryKey
	}
	for _, col := range table.Columns {
		switch strings.ToLower(col.Name) {
		case "id", "code", "key":
			return []string{col.Name}
		}
	}
	if len(table.Columns) > 0 {
		return []string{table.Columns[0].Name}
	}
	return []string{"id"}
}

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
