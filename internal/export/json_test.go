package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peternagy/fireview/internal/core"
	"github.com/peternagy/fireview/internal/fieldvalue"
	"github.com/peternagy/fireview/internal/importer"
	"github.com/peternagy/fireview/internal/types"
)

func TestIndentJSON_Simple(t *testing.T) {
	input := []byte(`{"name":"Alice","age":30}`)
	result := string(indentJSON(input, "  "))

	if !strings.Contains(result, "\"name\":") {
		t.Errorf("expected indented output, got: %s", result)
	}
	if !strings.Contains(result, "\n") {
		t.Errorf("expected newlines in pretty output, got: %s", result)
	}
}

func TestIndentJSON_Nested(t *testing.T) {
	input := []byte(`{"user":{"name":"Alice","address":{"city":"NYC"}}}`)
	result := string(indentJSON(input, "  "))

	lines := strings.Split(result, "\n")
	if len(lines) < 5 {
		t.Errorf("expected multiple lines for nested object, got %d lines", len(lines))
	}
}

func TestIndentJSON_Array(t *testing.T) {
	input := []byte(`{"tags":["go","mongodb"]}`)
	result := string(indentJSON(input, "  "))

	if !strings.Contains(result, "\"go\"") {
		t.Errorf("expected array elements, got: %s", result)
	}
}

func TestIndentJSON_StringsWithSpecialChars(t *testing.T) {
	input := []byte(`{"msg":"hello \"world\"","path":"c:\\temp"}`)
	result := string(indentJSON(input, "  "))

	if !strings.Contains(result, `"hello \"world\""`) {
		t.Errorf("expected escaped quotes preserved, got: %s", result)
	}
	if !strings.Contains(result, `"c:\\temp"`) {
		t.Errorf("expected escaped backslash preserved, got: %s", result)
	}
}

func TestIndentJSON_ExtendedJSON(t *testing.T) {
	input := []byte(`{"_id":{"$oid":"507f1f77bcf86cd799439011"},"date":{"$date":"2023-01-01T00:00:00Z"}}`)
	result := string(indentJSON(input, "  "))

	if !strings.Contains(result, "$oid") {
		t.Errorf("expected Extended JSON preserved, got: %s", result)
	}
	if !strings.Contains(result, "$date") {
		t.Errorf("expected Extended JSON date preserved, got: %s", result)
	}
}

func TestIndentJSON_Empty(t *testing.T) {
	input := []byte(`{}`)
	result := string(indentJSON(input, "  "))

	if !strings.Contains(result, "{") || !strings.Contains(result, "}") {
		t.Errorf("expected empty object, got: %s", result)
	}
}

func sampleDocs() []types.Document {
	return []types.Document{
		{ID: "a", Data: map[string]fieldvalue.Value{
			"name": fieldvalue.String("Ann"),
			"age":  fieldvalue.Int(30),
			"id":   fieldvalue.String("shadowed"),
		}},
		{ID: "b", Data: map[string]fieldvalue.Value{
			"tags": fieldvalue.Sequence(fieldvalue.String("x")),
		}},
	}
}

func TestWriteDocuments_RoundTripsThroughImport(t *testing.T) {
	for _, opts := range []Options{{}, {Pretty: true}} {
		var buf bytes.Buffer
		if err := WriteDocuments(&buf, sampleDocs(), opts); err != nil {
			t.Fatalf("WriteDocuments(%+v) error = %v", opts, err)
		}

		items, err := importer.ParsePayload(buf.String())
		if err != nil {
			t.Fatalf("ParsePayload(%+v) error = %v\n%s", opts, err, buf.String())
		}
		if len(items) != 2 {
			t.Fatalf("items = %d, want 2", len(items))
		}
		if items[0].ID != "a" || items[1].ID != "b" {
			t.Errorf("ids = %q, %q", items[0].ID, items[1].ID)
		}
		if got := items[0].Data["age"].Int64(); got != 30 {
			t.Errorf("age = %d, want 30", got)
		}
	}
}

func TestWriteDocuments_NDJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDocuments(&buf, sampleDocs(), Options{NDJSON: true}); err != nil {
		t.Fatalf("WriteDocuments() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if lines[1] != `{"id":"b","tags":["x"]}` {
		t.Errorf("line = %s", lines[1])
	}
}

func TestWriteDocuments_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDocuments(&buf, nil, Options{}); err != nil {
		t.Fatalf("WriteDocuments() error = %v", err)
	}
	items, err := importer.ParsePayload(buf.String())
	if err != nil || len(items) != 0 {
		t.Errorf("items = %v, err = %v", items, err)
	}
}

func TestExportCached(t *testing.T) {
	state := core.NewSession()
	seq := state.BeginFetch("users")
	state.ApplyFetch(seq, sampleDocs())

	path, count, err := NewService(state).ExportCached(filepath.Join(t.TempDir(), "users"), Options{})
	if err != nil {
		t.Fatalf("ExportCached() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if !strings.HasSuffix(path, "users.json") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), `"name":"Ann"`) {
		t.Errorf("export = %s", data)
	}
}

func TestDefaultFilename(t *testing.T) {
	name := DefaultFilename("users/active list")
	if !strings.HasPrefix(name, "users_active_list_") || !strings.HasSuffix(name, ".json") {
		t.Errorf("DefaultFilename() = %q", name)
	}
	if got := DefaultFilename("***"); !strings.HasPrefix(got, "export_") {
		t.Errorf("DefaultFilename(***) = %q", got)
	}
}
