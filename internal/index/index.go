// Package index builds and loads the durable vector index over ingested
// chunks. The index is a chromem-go collection persisted to a directory
// and identified by a fixed logical name, so a restart reloads it
// deterministically instead of re-embedding the corpus.
//
// Loading and rebuilding are separate, explicit actions: a successful load
// returns the persisted index unchanged regardless of what the current
// ingestion run produced. Rebuilds write to a scratch directory and
// publish with a rename, so readers never observe a half-built index.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/firebase/genkit/go/ai"
	chromem "github.com/philippgille/chromem-go"
	"golang.org/x/time/rate"
)

// LogicalID is the fixed identifier under which the index is persisted
// and loaded. Unique per deployment.
const LogicalID = "vector"

// ErrNotFound indicates no index with the logical identifier exists at
// the configured location, or that what is there does not match it.
var ErrNotFound = errors.New("index not found")

// Chunk is the subset of an ingested chunk the index stores. Deliberately
// a local type: the index does not depend on the ingestion package.
type Chunk struct {
	ID         string
	DocumentID string
	Seq        int
	Text       string
	Summary    string
	Hash       string
}

// Metadata keys stored alongside each indexed chunk.
const (
	MetaDocumentID = "document_id"
	MetaSeq        = "seq"
	MetaSummary    = "summary"
	MetaHash       = "hash"
)

// Index is an opened vector index. Read-only at serve time; safe for
// concurrent readers.
type Index struct {
	col *chromem.Collection
}

// FromCollection wraps an already-open collection. Used by callers that
// manage the chromem database themselves.
func FromCollection(col *chromem.Collection) *Index {
	return &Index{col: col}
}

// Collection exposes the underlying chromem collection for querying.
func (ix *Index) Collection() *chromem.Collection {
	return ix.col
}

// Count returns the number of indexed chunks.
func (ix *Index) Count() int {
	return ix.col.Count()
}

// Builder loads or rebuilds the persistent index at a fixed directory.
type Builder struct {
	dir     string
	embed   chromem.EmbeddingFunc
	workers int
	logger  *slog.Logger
}

// NewBuilder creates a Builder. The limiter, when non-nil, paces every
// embedding call during a rebuild and at query time.
func NewBuilder(dir string, embedder ai.Embedder, limiter *rate.Limiter, logger *slog.Logger) (*Builder, error) {
	if dir == "" {
		return nil, fmt.Errorf("index directory is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		dir:     dir,
		embed:   rateLimited(NewEmbeddingFunc(embedder), limiter),
		workers: 2,
		logger:  logger,
	}, nil
}

// Open loads the persisted index by its logical identifier. A missing
// directory, unreadable storage, or an identifier mismatch all return
// ErrNotFound (wrapped) instead of silently serving wrong data.
func (b *Builder) Open(_ context.Context) (*Index, error) {
	if _, err := os.Stat(b.dir); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, b.dir)
	}

	db, err := chromem.NewPersistentDB(b.dir, false)
	if err != nil {
		return nil, fmt.Errorf("%w: opening storage: %v", ErrNotFound, err)
	}

	col := db.GetCollection(LogicalID, b.embed)
	if col == nil {
		return nil, fmt.Errorf("%w: no collection %q in %s", ErrNotFound, LogicalID, b.dir)
	}

	b.logger.Info("index loaded from storage", "id", LogicalID, "chunks", col.Count())
	return &Index{col: col}, nil
}

// Build embeds the given chunks into a fresh index and publishes it
// atomically at the builder's directory. A publish failure is logged and
// the in-memory index returned, still usable for the rest of the process.
func (b *Builder) Build(ctx context.Context, chunks []Chunk) (*Index, error) {
	scratch := b.dir + ".rebuild"
	if err := os.RemoveAll(scratch); err != nil {
		return nil, fmt.Errorf("clearing scratch dir: %w", err)
	}

	db, err := chromem.NewPersistentDB(scratch, false)
	if err != nil {
		return nil, fmt.Errorf("creating index storage: %w", err)
	}

	col, err := db.CreateCollection(LogicalID, map[string]string{"index_id": LogicalID}, b.embed)
	if err != nil {
		return nil, fmt.Errorf("creating collection %q: %w", LogicalID, err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:      c.ID,
			Content: c.Text,
			Metadata: map[string]string{
				MetaDocumentID: c.DocumentID,
				MetaSeq:        strconv.Itoa(c.Seq),
				MetaSummary:    c.Summary,
				MetaHash:       c.Hash,
			},
		}
	}
	if len(docs) > 0 {
		if err := col.AddDocuments(ctx, docs, b.workers); err != nil {
			return nil, fmt.Errorf("embedding and indexing chunks: %w", err)
		}
	}

	// Publish: move the previous index aside, rename the scratch in, then
	// drop the old copy. A crash mid-publish leaves either the old or the
	// new index on disk, never neither. In-flight readers keep their
	// already-open collection.
	prev := b.dir + ".old"
	if err := os.RemoveAll(prev); err != nil {
		b.logger.Error("failed to clear previous index copy, serving in-memory index", "error", err)
		return &Index{col: col}, nil
	}
	if err := os.Rename(b.dir, prev); err != nil && !errors.Is(err, os.ErrNotExist) {
		b.logger.Error("failed to move previous index aside, serving in-memory index", "error", err)
		return &Index{col: col}, nil
	}
	if err := os.Rename(scratch, b.dir); err != nil {
		b.logger.Error("failed to publish index, serving in-memory index", "error", err)
		if restoreErr := os.Rename(prev, b.dir); restoreErr != nil && !errors.Is(restoreErr, os.ErrNotExist) {
			b.logger.Error("failed to restore previous index", "error", restoreErr)
		}
		return &Index{col: col}, nil
	}
	if err := os.RemoveAll(prev); err != nil {
		b.logger.Warn("failed to remove previous index copy", "dir", prev, "error", err)
	}

	b.logger.Info("new index created and persisted", "id", LogicalID, "chunks", len(docs))

	// Reopen from the published location to verify the round trip.
	ix, err := b.Open(ctx)
	if err != nil {
		b.logger.Warn("reopening published index, serving in-memory index", "error", err)
		return &Index{col: col}, nil
	}
	return ix, nil
}

// LoadOrBuild returns the persisted index when one exists, otherwise
// builds one from chunks. On the load path the chunks argument is
// ignored: rebuilding is an explicit action, not a side effect of a new
// ingestion run.
func (b *Builder) LoadOrBuild(ctx context.Context, chunks []Chunk) (*Index, error) {
	ix, err := b.Open(ctx)
	if err == nil {
		return ix, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	b.logger.Warn("could not load index, building new index", "error", err)
	return b.Build(ctx, chunks)
}
