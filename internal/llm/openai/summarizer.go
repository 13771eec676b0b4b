// Package openai implements llm.Summarizer on an OpenAI-compatible chat API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/peternagy/fireview/internal/llm"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = openai.GPT4oMini

// Summarizer sends rendered prompts to a chat completion endpoint.
type Summarizer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Config holds the chat provider settings.
type Config struct {
	APIKey  string
	BaseURL string // empty uses the OpenAI default
	Model   string
	Logger  *zap.Logger
}

// NewSummarizer creates a Summarizer for an OpenAI-compatible API.
func NewSummarizer(cfg *Config) *Summarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger,
	}
}

// Summarize implements llm.Summarizer. Every failure is an *llm.ServiceError.
func (s *Summarizer) Summarize(ctx context.Context, p llm.Prompt) (string, error) {
	text, err := render(p)
	if err != nil {
		return "", &llm.ServiceError{Message: err.Error(), Err: err}
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		s.logger.Debug("chat completion failed", zap.String("template", p.Template), zap.Error(err))
		return "", parseAPIError(err)
	}
	s.logger.Debug("chat completion",
		zap.String("template", p.Template),
		zap.String("model", s.model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)

	if len(resp.Choices) == 0 {
		return "", &llm.ServiceError{Message: "The language model returned no output."}
	}
	return extractSummary(resp.Choices[0].Message.Content)
}

// extractSummary reads the "summary" field of a JSON reply. Plain text
// replies are returned trimmed.
func extractSummary(content string) (string, error) {
	content = strings.TrimSpace(content)
	var parsed struct {
		Summary *string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		if content == "" {
			return "", &llm.ServiceError{Message: "The language model returned an empty summary."}
		}
		return content, nil
	}
	if parsed.Summary == nil {
		return "", &llm.ServiceError{Message: "The language model reply has no summary field."}
	}
	return *parsed.Summary, nil
}

// parseAPIError extracts a human-readable message from the API response.
func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &llm.ServiceError{Message: apiErr.Message, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = strings.TrimSpace(string(reqErr.Body))
		}
		return &llm.ServiceError{
			Message: fmt.Sprintf("language model API error %d: %s", reqErr.HTTPStatusCode, detail),
			Err:     err,
		}
	}

	return &llm.ServiceError{Message: err.Error(), Err: err}
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
