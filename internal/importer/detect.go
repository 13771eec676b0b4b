package importer

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/peternagy/fireview/internal/core"
)

// MaxImportFileSize is the largest import file accepted.
const MaxImportFileSize = 5 * 1024 * 1024

// ReadImportFile reads a .json import file of at most MaxImportFileSize and
// returns a payload for ParsePayload. The content is passed through as-is, so
// anything other than a JSON array fails in ParsePayload. With ndjson set,
// newline-delimited objects are joined into an array first.
func ReadImportFile(filePath string, ndjson bool) (string, error) {
	if strings.ToLower(filepath.Ext(filePath)) != ".json" {
		return "", &core.ValidationError{Field: "file", Message: "File must be a JSON (.json) file."}
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > MaxImportFileSize {
		return "", &core.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("File size must be less than %dMB.", MaxImportFileSize/(1024*1024)),
		}
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	// Skip BOM if present
	content := strings.TrimPrefix(string(data), "\xEF\xBB\xBF")

	if ndjson && DetectFormat(content) != "jsonarray" {
		return ndjsonToArray(content), nil
	}
	return content, nil
}

// DetectFormat inspects the leading structure of an import payload.
// Returns: "jsonarray", "ndjson", "object", "unknown"
func DetectFormat(content string) string {
	trimmed := strings.TrimLeftFunc(content, unicode.IsSpace)
	if len(trimmed) == 0 {
		return "unknown"
	}

	switch trimmed[0] {
	case '[':
		return "jsonarray"
	case '{':
		return detectJSONVariant(trimmed)
	}
	return "unknown"
}

// detectJSONVariant distinguishes between NDJSON and a single JSON object.
// NDJSON: multiple lines each starting with {
func detectJSONVariant(content string) string {
	scanner := bufio.NewScanner(strings.NewReader(content))
	// Use a larger buffer for potentially large JSON lines
	scanBuf := make([]byte, 1024*1024) // 1MB
	scanner.Buffer(scanBuf, MaxImportFileSize)

	lineCount := 0
	jsonLineCount := 0
	maxLines := 20 // Check first 20 lines

	for scanner.Scan() && lineCount < maxLines {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lineCount++

		if line[0] == '{' {
			jsonLineCount++
		}
	}

	// If every line checked starts with { and there are 2+, it's NDJSON
	if jsonLineCount >= 2 && jsonLineCount == lineCount {
		return "ndjson"
	}
	return "object"
}

func ndjsonToArray(content string) string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return "[" + strings.Join(lines, ",") + "]"
}
