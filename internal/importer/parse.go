package importer

import (
	"fmt"

	"github.com/peternagy/fireview/internal/fieldvalue"
	"github.com/peternagy/fireview/internal/types"
)

// ParseError indicates the payload is not valid JSON or not an array.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string { return e.Message }
func (e *ParseError) Unwrap() error { return e.Err }

// ShapeError indicates an array element is not an object.
type ShapeError struct {
	Index int
	Got   fieldvalue.Kind
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("Each item in the array must be an object: item %d is %s.", e.Index, e.Got)
}

// ParsePayload validates a bulk import payload and splits each element into
// an ImportItem. Either every element parses or nothing is returned. A string
// "id" key becomes the item ID; an "id" of any other type is dropped and the
// store assigns the ID.
func ParsePayload(payload string) ([]types.ImportItem, error) {
	root, err := fieldvalue.Decode([]byte(payload))
	if err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("Invalid JSON: %v", err), Err: err}
	}
	if root.Kind() != fieldvalue.KindSequence {
		return nil, &ParseError{Message: fmt.Sprintf("Input must be a JSON array, got %s.", root.Kind())}
	}

	elements := root.Items()
	items := make([]types.ImportItem, 0, len(elements))
	for i, el := range elements {
		if el.Kind() != fieldvalue.KindMapping {
			return nil, &ShapeError{Index: i, Got: el.Kind()}
		}
		data := el.Fields()
		var id string
		if raw, ok := data["id"]; ok {
			if raw.Kind() == fieldvalue.KindString {
				id = raw.Str()
			}
			delete(data, "id")
		}
		items = append(items, types.ImportItem{ID: id, Data: data})
	}
	return items, nil
}
