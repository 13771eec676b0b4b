package schema

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/peternagy/fireview/internal/types"
)

// WriteJSON writes result as indented JSON.
func WriteJSON(w io.Writer, result *types.SchemaResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	return nil
}
