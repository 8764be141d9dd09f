package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"
)

// summaryTemplate is the enrichment prompt. The placeholder is replaced
// with the chunk text. Part of the chunk hash: editing it invalidates the
// enrichment cache.
const summaryTemplate = `Dưới đây là nội dung của phần:
{context_str}

Hãy tóm tắt các chủ đề và thực thể chính của phần này.

Tóm tắt:`

// Generator produces a short summary for a chunk of text. It is the
// expensive, fallible step of the pipeline; implementations call out to a
// language-generation service.
type Generator interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Summarizer generates chunk summaries through Genkit.
type Summarizer struct {
	g           *genkit.Genkit
	modelName   string
	temperature float32
}

// NewSummarizer creates a Summarizer bound to the given model.
func NewSummarizer(g *genkit.Genkit, modelName string, temperature float32) (*Summarizer, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	return &Summarizer{g: g, modelName: modelName, temperature: temperature}, nil
}

// Summarize renders the summary prompt for text and runs one generation.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	prompt := strings.ReplaceAll(summaryTemplate, "{context_str}", text)

	resp, err := genkit.Generate(ctx, s.g,
		ai.WithModelName(s.modelName),
		ai.WithPrompt(prompt),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr(s.temperature),
		}),
	)
	if err != nil {
		return "", fmt.Errorf("generating summary: %w", err)
	}

	return strings.TrimSpace(resp.Text()), nil
}
