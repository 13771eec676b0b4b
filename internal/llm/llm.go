// Package llm defines the prompt service used to summarize collections.
package llm

import "context"

// Template names known to every Summarizer.
const (
	TemplateSummarizeCollection = "summarize_collection"
)

// Prompt selects a named template and the values for its placeholders.
type Prompt struct {
	Template string
	Vars     map[string]string
}

// Summarizer runs a templated prompt and returns the generated summary text.
type Summarizer interface {
	Summarize(ctx context.Context, prompt Prompt) (string, error)
}

// SummarizerFunc adapts a function to Summarizer.
type SummarizerFunc func(ctx context.Context, prompt Prompt) (string, error)

// Summarize implements Summarizer.
func (f SummarizerFunc) Summarize(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}

// ServiceError is a failure reported by the prompt service. Message is shown
// to the user as is.
type ServiceError struct {
	Message string
	Err     error
}

func (e *ServiceError) Error() string { return e.Message }
func (e *ServiceError) Unwrap() error { return e.Err }
