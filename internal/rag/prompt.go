package rag

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"morocco-rag/internal/models"
)

var answerPrompt = prompts.PromptTemplate{
	Template:       models.PromptTemplate,
	InputVariables: []string{"context", "question"},
	TemplateFormat: prompts.TemplateFormatFString,
}

// FormatPrompt fills the answer template. Values are substituted verbatim.
func FormatPrompt(context, question string) (string, error) {
	out, err := answerPrompt.Format(map[string]any{
		"context":  context,
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return out, nil
}

// JoinContext concatenates the retrieved chunk texts in rank order
func JoinContext(results []models.SearchResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Content
	}
	return strings.Join(texts, models.ContextSeparator)
}

func formatSources(results []models.SearchResult) string {
	if len(results) == 0 {
		return "\n\n" + models.UserMessageNoSources
	}
	var b strings.Builder
	b.WriteString("\n\n**Sources:**\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\nSource %d: %s\n", i+1, r.Content)
	}
	return b.String()
}
