package cmd

import (
	"context"
	"fmt"

	"github.com/ai-vietnam/minda/internal/app"
	"github.com/ai-vietnam/minda/internal/ingest"
)

// runIngest loads the configured source documents, enriches their
// chunks and publishes a fresh vector index.
func runIngest(ctx context.Context, a *app.App) error {
	loader := ingest.NewLoader(a.Config.SourceFiles, a.Logger)
	docs, err := loader.Load()
	if err != nil {
		return fmt.Errorf("loading source documents: %w", err)
	}
	a.Logger.Info("documents loaded", "count", len(docs))

	pipeline, err := a.NewPipeline()
	if err != nil {
		return err
	}
	chunks, err := pipeline.Run(ctx, docs)
	if err != nil {
		return fmt.Errorf("running ingestion pipeline: %w", err)
	}
	a.Logger.Info("chunks prepared", "count", len(chunks))

	builder, err := a.NewIndexBuilder()
	if err != nil {
		return err
	}
	ix, err := builder.Build(ctx, app.IndexChunks(chunks))
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	a.Logger.Info("ingestion complete", "indexed", ix.Count())
	return nil
}
