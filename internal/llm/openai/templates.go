package openai

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/peternagy/fireview/internal/llm"
)

const summarizeCollectionText = `You are an AI assistant tasked with summarizing data from a document database collection.

Analyze the following document content and provide a concise summary of the key trends and insights.

Collection Name: {{.collectionName}}
Document Content: {{.documentContent}}

Respond with a JSON object of the form {"summary": "<text>"}.`

var templates = template.Must(
	template.New(llm.TemplateSummarizeCollection).Option("missingkey=error").Parse(summarizeCollectionText),
)

// render fills the named template with vars.
func render(p llm.Prompt) (string, error) {
	tmpl := templates.Lookup(p.Template)
	if tmpl == nil {
		return "", fmt.Errorf("unknown prompt template %q", p.Template)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, p.Vars); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", p.Template, err)
	}
	return sb.String(), nil
}
