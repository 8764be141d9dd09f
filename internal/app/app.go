// Package app assembles the application from its parts: Genkit and the
// Gemini plugin, tracing, the ingestion pipeline, the vector index and
// the conversation agent. Commands call Setup once and pick the pieces
// they need.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"golang.org/x/time/rate"

	"github.com/ai-vietnam/minda/internal/agent"
	"github.com/ai-vietnam/minda/internal/chatstore"
	"github.com/ai-vietnam/minda/internal/config"
	"github.com/ai-vietnam/minda/internal/index"
	"github.com/ai-vietnam/minda/internal/ingest"
	"github.com/ai-vietnam/minda/internal/observability"
	"github.com/ai-vietnam/minda/internal/retrieval"
	"github.com/ai-vietnam/minda/internal/scores"
	"github.com/ai-vietnam/minda/internal/users"
)

// App holds the shared runtime pieces.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	// limiter is shared by generation and embedding calls, which draw
	// on the same provider quota.
	limiter *rate.Limiter

	tracingShutdown func(context.Context) error
}

// Setup initializes Genkit with the Gemini plugin, the embedder and
// tracing. The API key must already be validated by config.Load.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	// The googlegenai plugin reads the key from the environment.
	if os.Getenv("GEMINI_API_KEY") == "" {
		_ = os.Setenv("GEMINI_API_KEY", cfg.APIKey)
	}

	shutdown := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
	}, logger)

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, fmt.Errorf("genkit initialization failed")
	}

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	logger.Debug("application initialized", "model", cfg.ModelName, "embedder", cfg.EmbedderModel)
	return &App{
		Config:          cfg,
		Logger:          logger,
		Genkit:          g,
		Embedder:        embedder,
		limiter:         rate.NewLimiter(5, 10),
		tracingShutdown: shutdown,
	}, nil
}

// Close flushes pending telemetry.
func (a *App) Close(ctx context.Context) error {
	if a.tracingShutdown == nil {
		return nil
	}
	return a.tracingShutdown(ctx)
}

// NewPipeline builds the document ingestion pipeline.
func (a *App) NewPipeline() (*ingest.Pipeline, error) {
	summarizer, err := ingest.NewSummarizer(a.Genkit, a.Config.ModelName, a.Config.Temperature)
	if err != nil {
		return nil, fmt.Errorf("creating summarizer: %w", err)
	}
	return ingest.NewPipeline(ingest.PipelineConfig{
		Splitter: ingest.Splitter{
			ChunkSize:    a.Config.ChunkSize,
			ChunkOverlap: a.Config.ChunkOverlap,
			Separator:    a.Config.Separator,
		},
		Generator: summarizer,
		Cache:     ingest.LoadCache(a.Config.CacheFile, a.Logger),
		Workers:   a.Config.Workers,
		Limiter:   a.limiter,
		Logger:    a.Logger,
	}), nil
}

// NewIndexBuilder builds the vector index builder over the configured
// directory.
func (a *App) NewIndexBuilder() (*index.Builder, error) {
	return index.NewBuilder(a.Config.IndexDir, a.Embedder, a.limiter, a.Logger)
}

// IndexChunks converts ingested chunks into index input.
func IndexChunks(chunks []ingest.Chunk) []index.Chunk {
	out := make([]index.Chunk, len(chunks))
	for i, c := range chunks {
		out[i] = index.Chunk{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Seq:        c.Seq,
			Text:       c.Text,
			Summary:    c.Summary,
			Hash:       c.Hash,
		}
	}
	return out
}

// Session is a ready-to-chat assembly.
type Session struct {
	Agent    *agent.Agent
	Registry *users.Registry
	Ledger   *scores.Ledger
}

// NewSession opens the persisted index and wires the conversation
// agent. A missing index is a user-facing setup error: ingestion has to
// run first.
func (a *App) NewSession(ctx context.Context) (*Session, error) {
	builder, err := a.NewIndexBuilder()
	if err != nil {
		return nil, err
	}
	ix, err := builder.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("no knowledge index at %s, run ingest first: %w", a.Config.IndexDir, err)
	}

	engine, err := retrieval.NewEngine(ix, a.Config.TopK, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating retrieval engine: %w", err)
	}
	store, err := chatstore.New(a.Config.ConversationFile, a.Config.TokenBudget, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating history store: %w", err)
	}
	ledger, err := scores.NewLedger(a.Config.ScoresFile, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating score ledger: %w", err)
	}
	registry, err := users.NewRegistry(a.Config.UsersFile, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating user registry: %w", err)
	}

	tools, err := agent.NewTools(engine, ledger, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating tools: %w", err)
	}
	caller, err := agent.NewGenkitCaller(a.Genkit, a.Config.ModelName, a.Config.Temperature)
	if err != nil {
		return nil, fmt.Errorf("creating model caller: %w", err)
	}
	ag, err := agent.New(agent.Config{
		Caller:   caller,
		Tools:    tools,
		ToolRefs: tools.Register(a.Genkit),
		Store:    store,
		MaxTurns: a.Config.MaxTurns,
		Limiter:  a.limiter,
		Logger:   a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}

	return &Session{Agent: ag, Registry: registry, Ledger: ledger}, nil
}
