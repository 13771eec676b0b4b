package schema

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/peternagy/fireview/internal/fieldvalue"
	"github.com/peternagy/fireview/internal/types"
)

func TestInfer(t *testing.T) {
	docs := []types.Document{
		{ID: "1", Data: map[string]fieldvalue.Value{
			"name": fieldvalue.String("Ann"),
			"age":  fieldvalue.Int(30),
			"tags": fieldvalue.Sequence(fieldvalue.String("a")),
		}},
		{ID: "2", Data: map[string]fieldvalue.Value{
			"name": fieldvalue.String("Bob"),
			"age":  fieldvalue.String("unknown"),
		}},
		{ID: "3", Data: map[string]fieldvalue.Value{
			"name":    fieldvalue.Null(),
			"created": fieldvalue.Timestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		}},
	}

	result := Infer("users", docs)

	if result.Collection != "users" || result.TotalDocs != 3 {
		t.Fatalf("result = %+v", result)
	}
	wantCols := []string{"name", "age", "created", "tags"}
	if got := Columns(result); !reflect.DeepEqual(got, wantCols) {
		t.Errorf("Columns() = %v, want %v", got, wantCols)
	}

	tests := []struct {
		field string
		types []string
		count int
	}{
		{"name", []string{"null", "string"}, 3},
		{"age", []string{"number", "string"}, 2},
		{"created", []string{"timestamp"}, 1},
		{"tags", []string{"array<string>"}, 1},
	}
	for i, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f := result.Fields[i]
			if f.Name != tt.field {
				t.Fatalf("field %d = %q, want %q", i, f.Name, tt.field)
			}
			if !reflect.DeepEqual(f.Types, tt.types) {
				t.Errorf("types = %v, want %v", f.Types, tt.types)
			}
			if f.Count != tt.count {
				t.Errorf("count = %d, want %d", f.Count, tt.count)
			}
		})
	}
	if occ := result.Fields[0].Occurrence; occ != 100 {
		t.Errorf("name occurrence = %v, want 100", occ)
	}
}

func TestInfer_Empty(t *testing.T) {
	result := Infer("empty", nil)
	if result.TotalDocs != 0 || len(result.Fields) != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	result := &types.SchemaResult{
		Collection: "users",
		TotalDocs:  1,
		Fields:     []types.SchemaField{{Name: "a", Types: []string{"number"}, Count: 1, Occurrence: 100}},
	}
	if err := WriteJSON(&buf, result); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var decoded types.SchemaResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if !reflect.DeepEqual(&decoded, result) {
		t.Errorf("decoded = %+v, want %+v", decoded, result)
	}
}
