package index

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	chromem "github.com/philippgille/chromem-go"
	"golang.org/x/time/rate"
)

// NewEmbeddingFunc bridges a Genkit ai.Embedder to chromem-go's
// EmbeddingFunc. chromem-go normalizes vectors itself, so no manual
// normalization is needed.
func NewEmbeddingFunc(embedder ai.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		req := &ai.EmbedRequest{
			Input: []*ai.Document{
				ai.DocumentFromText(text, nil),
			},
		}

		resp, err := embedder.Embed(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("embed failed: %w", err)
		}

		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
			return nil, fmt.Errorf("no embeddings returned")
		}

		return resp.Embeddings[0].Embedding, nil
	}
}

// rateLimited wraps an EmbeddingFunc so every attempt waits on the shared
// limiter. Embedding calls hit the same external quota as generation.
func rateLimited(ef chromem.EmbeddingFunc, limiter *rate.Limiter) chromem.EmbeddingFunc {
	if limiter == nil {
		return ef
	}
	return func(ctx context.Context, text string) ([]float32, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
		return ef(ctx, text)
	}
}
