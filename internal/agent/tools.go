package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/ai-vietnam/minda/internal/retrieval"
	"github.com/ai-vietnam/minda/internal/scores"
)

type usernameKey struct{}

// WithUsername binds the acting username into ctx. Tool handlers read it
// from there, never from model-supplied input.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey{}, username)
}

// UsernameFromContext returns the username bound by WithUsername.
func UsernameFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(usernameKey{}).(string)
	return u, ok && u != ""
}

// Retriever answers reference queries. Satisfied by retrieval.Engine.
type Retriever interface {
	Query(ctx context.Context, query string, k int) ([]retrieval.Passage, error)
}

// Recorder appends assessments. Satisfied by scores.Ledger.
type Recorder interface {
	Append(username string, score scores.Category, content, totalGuess string) (scores.Entry, error)
}

// Tools implements the two capabilities the model can invoke.
type Tools struct {
	retriever Retriever
	recorder  Recorder
	logger    *slog.Logger
}

// NewTools wires the retrieval engine and score ledger behind the tool
// surface.
func NewTools(retriever Retriever, recorder Recorder, logger *slog.Logger) (*Tools, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{retriever: retriever, recorder: recorder, logger: logger}, nil
}

// Retrieve runs the dsm5 tool: fetch reference passages for the query
// and return them as one text block. No matches yields an explicit
// notice instead of an empty string, so the model does not hallucinate
// around silence.
func (t *Tools) Retrieve(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("dsm5 query is empty")
	}
	passages, err := t.retriever.Query(ctx, query, 0)
	if err != nil {
		return "", fmt.Errorf("dsm5 lookup: %w", err)
	}
	if len(passages) == 0 {
		return "Không tìm thấy tài liệu tham khảo phù hợp.", nil
	}
	return retrieval.Concat(passages), nil
}

// RecordScore runs the save_score tool. The category label is normalized
// before it reaches the ledger, and the username comes from ctx.
func (t *Tools) RecordScore(ctx context.Context, in SaveScoreInput) (string, error) {
	username, ok := UsernameFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("no username bound to context")
	}
	category, err := scores.ParseCategory(in.Score)
	if err != nil {
		return "", fmt.Errorf("save_score: %w", err)
	}
	entry, err := t.recorder.Append(username, category, in.Content, in.TotalGuess)
	if err != nil {
		return "", fmt.Errorf("save_score: %w", err)
	}
	t.logger.Info("assessment saved", "user", username, "score", entry.Score)
	return fmt.Sprintf("Đã lưu điểm số %s cho %s.", entry.Score, username), nil
}

// Register defines the dsm5 and save_score tools on g and returns their
// refs for generate calls.
func (t *Tools) Register(g *genkit.Genkit) []ai.ToolRef {
	dsm5 := genkit.DefineTool(g, ToolDSM5,
		"Tra cứu tài liệu tham khảo DSM-5 về sức khỏe tâm thần theo tóm tắt triệu chứng.",
		func(tc *ai.ToolContext, in RetrieveInput) (string, error) {
			return t.Retrieve(tc.Context, in.Query)
		})
	saveScore := genkit.DefineTool(g, ToolSaveScore,
		"Lưu điểm số đánh giá sức khỏe tâm thần (Kém, Trung bình, Bình thường, Tốt) cùng tóm tắt và chẩn đoán.",
		func(tc *ai.ToolContext, in SaveScoreInput) (string, error) {
			return t.RecordScore(tc.Context, in)
		})
	return []ai.ToolRef{dsm5, saveScore}
}
