// Package summary asks the prompt service for an overview of the cached
// documents of a collection.
package summary

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/peternagy/fireview/internal/core"
	"github.com/peternagy/fireview/internal/debug"
	"github.com/peternagy/fireview/internal/fieldvalue"
	"github.com/peternagy/fireview/internal/llm"
	"github.com/peternagy/fireview/internal/types"
)

// EmptyCollectionError is returned when there are no cached documents to summarize.
type EmptyCollectionError struct {
	Collection string
}

func (e *EmptyCollectionError) Error() string {
	return "No documents to summarize. Fetch documents first or collection is empty."
}

// Service generates collection summaries.
type Service struct {
	state      *core.Session
	summarizer llm.Summarizer
}

// NewService creates a new summary service.
func NewService(state *core.Session, summarizer llm.Summarizer) *Service {
	return &Service{state: state, summarizer: summarizer}
}

// Summarize sends the cached documents to the prompt service and stores the
// returned text as the current summary. On failure the previous summary is
// kept and the service error is returned unchanged.
func (s *Service) Summarize(ctx context.Context, collection string) (string, error) {
	docs := s.state.Documents()
	if len(docs) == 0 {
		err := &EmptyCollectionError{Collection: collection}
		s.state.NotifyError("No Documents", err.Error())
		return "", err
	}
	if s.summarizer == nil {
		err := &llm.ServiceError{Message: "No language model is configured."}
		s.state.NotifyError("Summarization Error", err.Error())
		return "", err
	}

	release, err := s.state.Flights.Begin(core.OpSummarize, "")
	if err != nil {
		return "", err
	}
	defer release()

	content, err := SerializeDocuments(docs)
	if err != nil {
		s.state.NotifyError("Summarization Error", err.Error())
		return "", err
	}

	debug.LogSummary("Requesting summary",
		zap.String("collection", collection),
		zap.Int("documents", len(docs)),
		zap.Int("bytes", len(content)),
	)

	text, err := s.summarizer.Summarize(ctx, llm.Prompt{
		Template: llm.TemplateSummarizeCollection,
		Vars: map[string]string{
			"collectionName":  collection,
			"documentContent": content,
		},
	})
	if err != nil {
		debug.LogSummary("Summary failed", zap.String("collection", collection), zap.Error(err))
		s.state.NotifyError("Summarization Error", err.Error())
		return "", err
	}

	s.state.SetSummary(text)
	s.state.Notify("Summary Generated", fmt.Sprintf("AI summary for %s is ready.", collection))
	return text, nil
}

// Current returns the last generated summary.
func (s *Service) Current() string {
	return s.state.Summary()
}

// SerializeDocuments renders docs as a JSON array of objects holding the
// document ID under "id" alongside its fields. A field named "id" wins over
// the document ID. Keys are sorted.
func SerializeDocuments(docs []types.Document) (string, error) {
	out := make([]fieldvalue.Value, 0, len(docs))
	for _, doc := range docs {
		fields := make(map[string]fieldvalue.Value, len(doc.Data)+1)
		fields["id"] = fieldvalue.String(doc.ID)
		for k, v := range doc.Data {
			fields[k] = v
		}
		out = append(out, fieldvalue.Mapping(fields))
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to serialize documents: %w", err)
	}
	return string(data), nil
}
