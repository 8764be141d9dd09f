package ingest

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Pipeline runs the chunking and enrichment transformations over a batch
// of documents. Enrichment calls are fanned out over a bounded worker pool
// behind a shared rate limiter; results for unchanged chunks come from the
// cache without touching the generation service.
type Pipeline struct {
	splitter Splitter
	gen      Generator
	cache    *Cache
	limiter  *rate.Limiter
	workers  int
	logger   *slog.Logger
}

// PipelineConfig contains the required parameters for a Pipeline.
type PipelineConfig struct {
	Splitter  Splitter
	Generator Generator
	Cache     *Cache
	Workers   int           // enrichment pool width, defaults to 4
	Limiter   *rate.Limiter // nil = 5 req/s sustained, burst 10
	Logger    *slog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(5, 10)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		splitter: cfg.Splitter,
		gen:      cfg.Generator,
		cache:    cfg.Cache,
		limiter:  limiter,
		workers:  workers,
		logger:   logger,
	}
}

// Run splits docs into chunks and attaches a summary to each. Cached
// summaries are reused without a generation call. A single chunk's
// enrichment failure is retried once and then degraded to an empty
// summary with a warning; it never aborts the batch. The cache is
// persisted at the end of the run.
func (p *Pipeline) Run(ctx context.Context, docs []Document) ([]Chunk, error) {
	var chunks []Chunk
	for _, doc := range docs {
		chunks = append(chunks, p.splitter.Split(doc)...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range chunks {
		c := &chunks[i]
		if entry, ok := p.cache.Get(c.Hash); ok {
			c.Summary = entry.Summary
			continue
		}
		g.Go(func() error {
			summary, err := p.enrich(gctx, c.Text)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				// Degraded, not fatal: the chunk ships without a summary.
				// The failure is not cached, so the next run retries it.
				p.logger.Warn("chunk enrichment failed, proceeding without summary",
					"chunk", c.ID, "error", err)
				return nil
			}
			c.Summary = summary
			p.cache.Put(c.Hash, CacheEntry{Summary: summary})
			return nil
		})
	}

	// Workers only return errors for context cancellation.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := p.cache.Persist(); err != nil {
		p.logger.Warn("persisting ingestion cache", "error", err)
	}

	p.logger.Info("ingestion pipeline finished", "documents", len(docs), "chunks", len(chunks))
	return chunks, nil
}

// enrich performs one rate-limited summary generation with a single retry.
func (p *Pipeline) enrich(ctx context.Context, text string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", err
		}
		summary, err := p.gen.Summarize(ctx, text)
		if err == nil {
			return summary, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", lastErr
}
