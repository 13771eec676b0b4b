package document

import (
	"strings"

	"github.com/peternagy/fireview/internal/fieldvalue"
	"github.com/peternagy/fireview/internal/types"
)

// Filter narrows docs without touching the input slice. Inputs are trimmed.
// The field filter applies when both field and value are non-empty and keeps
// documents whose field contains the value; search then keeps documents whose
// ID or any field contains the term. Matching is a case-insensitive substring
// test on the rendered text, and null fields never match.
func Filter(docs []types.Document, opts types.FilterOptions) []types.Document {
	field := strings.TrimSpace(opts.Field)
	value := strings.ToLower(strings.TrimSpace(opts.Value))
	search := strings.ToLower(strings.TrimSpace(opts.Search))

	results := make([]types.Document, 0, len(docs))
	for _, doc := range docs {
		if field != "" && value != "" && !fieldMatches(doc, field, value) {
			continue
		}
		if search != "" && !searchMatches(doc, search) {
			continue
		}
		results = append(results, doc)
	}
	return results
}

func fieldMatches(doc types.Document, field, needle string) bool {
	v, ok := doc.Data[field]
	return ok && valueContains(v, needle)
}

func searchMatches(doc types.Document, needle string) bool {
	if strings.Contains(strings.ToLower(doc.ID), needle) {
		return true
	}
	for _, v := range doc.Data {
		if valueContains(v, needle) {
			return true
		}
	}
	return false
}

// valueContains expects needle already lower-cased.
func valueContains(v fieldvalue.Value, needle string) bool {
	if v.IsNull() {
		return false
	}
	return strings.Contains(strings.ToLower(v.Text()), needle)
}
