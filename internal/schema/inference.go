// Package schema infers the field layout of the cached documents.
package schema

import (
	"sort"

	"github.com/peternagy/fireview/internal/core"
	"github.com/peternagy/fireview/internal/fieldvalue"
	"github.com/peternagy/fireview/internal/types"
)

// Service handles schema inference operations.
type Service struct {
	state *core.Session
}

// NewService creates a new schema service.
func NewService(state *core.Session) *Service {
	return &Service{state: state}
}

// InferCachedSchema analyzes the document cache.
func (s *Service) InferCachedSchema() *types.SchemaResult {
	return Infer(s.state.CachedCollection(), s.state.Documents())
}

// Infer returns the top-level fields seen in docs, most common first.
// Fields with equal counts are ordered by name.
func Infer(collection string, docs []types.Document) *types.SchemaResult {
	fieldCounts := make(map[string]int)
	fieldTypes := make(map[string]map[string]bool) // field -> set of types

	for _, doc := range docs {
		for key, value := range doc.Data {
			fieldCounts[key]++
			if fieldTypes[key] == nil {
				fieldTypes[key] = make(map[string]bool)
			}
			fieldTypes[key][typeName(value)] = true
		}
	}

	fields := make([]types.SchemaField, 0, len(fieldCounts))
	for key, count := range fieldCounts {
		typeList := make([]string, 0, len(fieldTypes[key]))
		for t := range fieldTypes[key] {
			typeList = append(typeList, t)
		}
		sort.Strings(typeList)

		fields = append(fields, types.SchemaField{
			Name:       key,
			Types:      typeList,
			Count:      count,
			Occurrence: float64(count) / float64(len(docs)) * 100,
		})
	}
	sort.Slice(fields, func(i, j int) bool {
		if fields[i].Count != fields[j].Count {
			return fields[i].Count > fields[j].Count
		}
		return fields[i].Name < fields[j].Name
	})

	return &types.SchemaResult{
		Collection: collection,
		TotalDocs:  len(docs),
		Fields:     fields,
	}
}

// Columns returns the field names of result in order, for table headers and
// field filter suggestions.
func Columns(result *types.SchemaResult) []string {
	cols := make([]string, len(result.Fields))
	for i, f := range result.Fields {
		cols[i] = f.Name
	}
	return cols
}

// typeName returns a human-readable type name for a value. Arrays are named
// after their first element.
func typeName(v fieldvalue.Value) string {
	if v.Kind() == fieldvalue.KindSequence {
		if items := v.Items(); len(items) > 0 {
			return "array<" + typeName(items[0]) + ">"
		}
	}
	return v.Kind().String()
}
