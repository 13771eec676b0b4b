package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/peternagy/fireview/internal/core"
	"github.com/peternagy/fireview/internal/debug"
	"github.com/peternagy/fireview/internal/types"
)

// ImportJSON parses payload and imports the items. A malformed payload is
// rejected before any write.
func (s *Service) ImportJSON(ctx context.Context, collection, payload string) (types.ImportResult, error) {
	items, err := ParsePayload(payload)
	if err != nil {
		s.state.NotifyError("Invalid JSON for Import", err.Error())
		return types.ImportResult{Errors: []string{}}, err
	}
	return s.Import(ctx, collection, items)
}

// Import writes items one at a time, in order. A failed item is recorded and
// the remaining items are still attempted. The collection is refetched once
// if at least one item was written.
//
// When not connected, or another import is running, nothing is written and
// every item counts as failed; the result is returned together with the error.
func (s *Service) Import(ctx context.Context, collection string, items []types.ImportItem) (types.ImportResult, error) {
	client, err := s.state.GetClient()
	if err != nil {
		s.state.NotifyError("Not Connected", "Please connect to the document store first.")
		return types.ImportResult{
			SuccessCount: 0,
			ErrorCount:   len(items),
			Errors:       []string{err.Error()},
		}, err
	}

	result := types.ImportResult{Errors: []string{}}
	if len(items) == 0 {
		s.state.Notify("Bulk Import", "No documents provided in the JSON array.")
		return result, nil
	}

	release, err := s.state.Flights.Begin(core.OpImport, "")
	if err != nil {
		s.state.NotifyError("Bulk Import", err.Error())
		return types.ImportResult{
			SuccessCount: 0,
			ErrorCount:   len(items),
			Errors:       []string{err.Error()},
		}, err
	}
	defer release()

	debug.LogImport("Import started", zap.String("collection", collection), zap.Int("items", len(items)))

	for i, item := range items {
		if _, err := client.CreateDocument(ctx, collection, item.Data, item.ID); err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("document %s: %s", item.Label(), err.Error()))
			debug.LogImport("Item failed", zap.Int("index", i), zap.String("id", item.Label()), zap.Error(err))
		} else {
			result.SuccessCount++
		}

		s.state.EmitEvent(core.EventImportProgress, types.ImportProgress{
			Collection: collection,
			Current:    i + 1,
			Total:      len(items),
			Succeeded:  result.SuccessCount,
			Failed:     result.ErrorCount,
		})
	}

	if result.SuccessCount > 0 {
		_ = s.docs.Fetch(ctx, collection)
	}

	debug.LogImport("Import finished",
		zap.String("collection", collection),
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", result.ErrorCount),
	)
	s.notifyResult(collection, result)
	s.state.EmitEvent(core.EventImportComplete, result)
	return result, nil
}

func (s *Service) notifyResult(collection string, result types.ImportResult) {
	if result.SuccessCount > 0 {
		s.state.Notify("Bulk Import Success",
			fmt.Sprintf("%d document(s) imported successfully to %s.", result.SuccessCount, collection))
	}
	if result.ErrorCount > 0 {
		desc := fmt.Sprintf("%d document(s) failed to import.", result.ErrorCount)
		if len(result.Errors) > 0 {
			desc += " First error: " + result.Errors[0]
		}
		if result.SuccessCount == 0 {
			s.state.NotifyError("Bulk Import Failed", desc)
		} else {
			s.state.NotifyError("Bulk Import Partially Failed", desc)
		}
	}
}
