package document

import (
	"github.com/peternagy/fireview/internal/core"
	"github.com/peternagy/fireview/internal/fieldvalue"
)

// ParseFields parses a JSON object typed by the user into document fields.
// Blank input yields no fields.
func ParseFields(jsonStr string) (map[string]fieldvalue.Value, error) {
	fields, err := fieldvalue.ParseObject(jsonStr)
	if err != nil {
		return nil, &core.ValidationError{Field: "data", Message: err.Error()}
	}
	return fields, nil
}
