// Package export writes cached documents as JSON that the bulk importer
// accepts.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/peternagy/fireview/internal/core"
	"github.com/peternagy/fireview/internal/debug"
	"github.com/peternagy/fireview/internal/fieldvalue"
	"github.com/peternagy/fireview/internal/types"
)

// Options control the output layout.
type Options struct {
	NDJSON bool // one object per line instead of an array
	Pretty bool
}

// Service exports the document cache.
type Service struct {
	state *core.Session
}

// NewService creates a new export service.
func NewService(state *core.Session) *Service {
	return &Service{state: state}
}

// DefaultFilename returns a dated file name for collection.
func DefaultFilename(collection string) string {
	safeName := sanitizeFilename(collection)
	if len(safeName) > 30 {
		safeName = safeName[:30]
	}
	if safeName == "" {
		safeName = "export"
	}
	return fmt.Sprintf("%s_%s.json", safeName, time.Now().Format("2006-01-02"))
}

// ExportCached writes the cached documents to filePath. It returns the path
// actually written, with a .json extension appended when missing, and the
// document count.
func (s *Service) ExportCached(filePath string, opts Options) (string, int, error) {
	docs := s.state.Documents()
	if !strings.HasSuffix(strings.ToLower(filePath), ".json") {
		filePath += ".json"
	}

	file, err := os.Create(filePath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := WriteDocuments(file, docs, opts); err != nil {
		os.Remove(filePath)
		return "", 0, err
	}
	debug.LogDocument("Exported documents",
		zap.String("collection", s.state.CachedCollection()),
		zap.String("path", filePath),
		zap.Int("count", len(docs)),
	)
	return filePath, len(docs), nil
}

// WriteDocuments writes docs as a JSON array, or as NDJSON, of objects
// holding the document ID under "id" alongside its fields. The document ID
// wins over a field named "id" so that re-importing targets the same
// documents.
func WriteDocuments(w io.Writer, docs []types.Document, opts Options) error {
	writer := bufio.NewWriter(w)

	indent := ""
	if opts.Pretty {
		indent = "  "
	}

	if !opts.NDJSON {
		writer.WriteString("[\n")
	}

	for i, doc := range docs {
		jsonBytes, err := marshalDocument(doc)
		if err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}

		if !opts.NDJSON && i > 0 {
			writer.WriteString(",\n")
		}

		switch {
		case opts.NDJSON:
			writer.Write(jsonBytes)
			writer.WriteByte('\n')
		case opts.Pretty:
			// Indent each line by one level within array
			lines := strings.Split(string(indentJSON(jsonBytes, indent)), "\n")
			for j, line := range lines {
				writer.WriteString(indent)
				writer.WriteString(line)
				if j < len(lines)-1 {
					writer.WriteByte('\n')
				}
			}
		default:
			writer.WriteString("  ")
			writer.Write(jsonBytes)
		}
	}

	if !opts.NDJSON {
		writer.WriteString("\n]\n")
	}
	return writer.Flush()
}

func marshalDocument(doc types.Document) ([]byte, error) {
	fields := make(map[string]fieldvalue.Value, len(doc.Data)+1)
	for k, v := range doc.Data {
		fields[k] = v
	}
	fields["id"] = fieldvalue.String(doc.ID)
	return json.Marshal(fieldvalue.Mapping(fields))
}

// sanitizeFilename converts a string to a safe filename component.
func sanitizeFilename(name string) string {
	var sanitized strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			sanitized.WriteRune(r)
		} else if r == ' ' || r == '/' {
			sanitized.WriteRune('_')
		}
	}
	return sanitized.String()
}

// indentJSON formats compact JSON with the given indent string.
func indentJSON(data []byte, indent string) []byte {
	var buf strings.Builder
	level := 0
	inString := false
	escaped := false

	for i := 0; i < len(data); i++ {
		c := data[i]

		if escaped {
			buf.WriteByte(c)
			escaped = false
			continue
		}

		if c == '\\' && inString {
			buf.WriteByte(c)
			escaped = true
			continue
		}

		if c == '"' {
			inString = !inString
			buf.WriteByte(c)
			continue
		}

		if inString {
			buf.WriteByte(c)
			continue
		}

		switch c {
		case '{', '[':
			buf.WriteByte(c)
			level++
			buf.WriteByte('\n')
			for j := 0; j < level; j++ {
				buf.WriteString(indent)
			}
		case '}', ']':
			level--
			buf.WriteByte('\n')
			for j := 0; j < level; j++ {
				buf.WriteString(indent)
			}
			buf.WriteByte(c)
		case ',':
			buf.WriteByte(c)
			buf.WriteByte('\n')
			for j := 0; j < level; j++ {
				buf.WriteString(indent)
			}
		case ':':
			buf.WriteByte(c)
			buf.WriteByte(' ')
		case ' ', '\t', '\n', '\r':
			// skip whitespace
		default:
			buf.WriteByte(c)
		}
	}

	return []byte(buf.String())
}
