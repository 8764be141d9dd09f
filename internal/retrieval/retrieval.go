// Package retrieval answers natural-language queries against the vector
// index and formats the retrieved passages for consumption by the agent.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ai-vietnam/minda/internal/index"
)

// Passage is one retrieved chunk, ordered by descending similarity.
type Passage struct {
	ID         string
	DocumentID string
	Seq        int
	Summary    string
	Content    string
	Similarity float32
}

// Engine retrieves the most similar passages for a query.
type Engine struct {
	idx    *index.Index
	topK   int
	logger *slog.Logger
}

// NewEngine creates a retrieval engine over an opened index. topK is the
// default result count when Query is called with k <= 0.
func NewEngine(idx *index.Index, topK int, logger *slog.Logger) (*Engine, error) {
	if idx == nil {
		return nil, fmt.Errorf("index is required")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{idx: idx, topK: topK, logger: logger}, nil
}

// Query embeds the query text and returns up to k passages by descending
// similarity. k <= 0 falls back to the engine default, and k is always
// clamped to the index size. An empty index yields no passages and no
// error.
func (e *Engine) Query(ctx context.Context, query string, k int) ([]Passage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is empty")
	}
	if k <= 0 {
		k = e.topK
	}
	if n := e.idx.Count(); n == 0 {
		e.logger.Warn("query against empty index", "query", query)
		return nil, nil
	} else if k > n {
		k = n
	}

	results, err := e.idx.Collection().Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	passages := make([]Passage, len(results))
	for i, r := range results {
		seq, _ := strconv.Atoi(r.Metadata[index.MetaSeq])
		passages[i] = Passage{
			ID:         r.ID,
			DocumentID: r.Metadata[index.MetaDocumentID],
			Seq:        seq,
			Summary:    r.Metadata[index.MetaSummary],
			Content:    r.Content,
			Similarity: r.Similarity,
		}
	}

	e.logger.Debug("retrieved passages", "query", query, "k", k, "returned", len(passages))
	return passages, nil
}

// Concat joins passage contents into a single context block, best match
// first, each tagged with its source document and position. Returns ""
// for no passages.
func Concat(passages []Passage) string {
	if len(passages) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, p := range passages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if p.DocumentID != "" {
			fmt.Fprintf(&sb, "[%s #%d]\n", p.DocumentID, p.Seq)
		}
		sb.WriteString(p.Content)
	}
	return sb.String()
}
