package index

import (
	"context"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ai-vietnam/minda/internal/log"
)

// fakeEmbed returns a deterministic embedding derived from the text and
// counts every call, so tests can assert when embedding happens.
func fakeEmbed(calls *atomic.Int64) func(ctx context.Context, text string) ([]float32, error) {
	return func(_ context.Context, text string) ([]float32, error) {
		calls.Add(1)
		sum := sha256.Sum256([]byte(text))
		vec := make([]float32, 8)
		for i := range vec {
			vec[i] = float32(sum[i]) + 1
		}
		return vec, nil
	}
}

func testChunks() []Chunk {
	return []Chunk{
		{ID: "guide.txt_0", DocumentID: "guide.txt", Seq: 0, Text: "anxiety and persistent worry", Summary: "about anxiety", Hash: "h0"},
		{ID: "guide.txt_1", DocumentID: "guide.txt", Seq: 1, Text: "sleep hygiene and routines", Summary: "about sleep", Hash: "h1"},
		{ID: "guide.txt_2", DocumentID: "guide.txt", Seq: 2, Text: "depressive episodes and mood", Summary: "about mood", Hash: "h2"},
	}
}

func newTestBuilder(t *testing.T, dir string, calls *atomic.Int64) *Builder {
	t.Helper()
	return &Builder{
		dir:     dir,
		embed:   fakeEmbed(calls),
		workers: 1,
		logger:  log.NewNop(),
	}
}

func TestBuilder_OpenMissing(t *testing.T) {
	var calls atomic.Int64
	b := newTestBuilder(t, filepath.Join(t.TempDir(), "index_storage"), &calls)

	if _, err := b.Open(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open on missing dir: got %v, want ErrNotFound", err)
	}
}

func TestBuilder_BuildThenOpenWithoutReembedding(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index_storage")
	ctx := context.Background()

	var buildCalls atomic.Int64
	b := newTestBuilder(t, dir, &buildCalls)

	ix, err := b.Build(ctx, testChunks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := ix.Count(); got != 3 {
		t.Fatalf("Count after build = %d, want 3", got)
	}
	if buildCalls.Load() == 0 {
		t.Fatal("Build never called the embedder")
	}

	// Opening the persisted index must not embed anything.
	var openCalls atomic.Int64
	b2 := newTestBuilder(t, dir, &openCalls)
	ix2, err := b2.Open(ctx)
	if err != nil {
		t.Fatalf("Open after build: %v", err)
	}
	if got := ix2.Count(); got != 3 {
		t.Fatalf("Count after reopen = %d, want 3", got)
	}
	if got := openCalls.Load(); got != 0 {
		t.Fatalf("Open embedded %d texts, want 0", got)
	}
}

func TestBuilder_BuildPublishesAtomically(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index_storage")
	ctx := context.Background()

	var calls atomic.Int64
	b := newTestBuilder(t, dir, &calls)
	if _, err := b.Build(ctx, testChunks()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("published index dir missing: %v", err)
	}
	if _, err := os.Stat(dir + ".rebuild"); !os.IsNotExist(err) {
		t.Fatalf("scratch dir still present after publish: %v", err)
	}
	if _, err := os.Stat(dir + ".old"); !os.IsNotExist(err) {
		t.Fatalf("previous index copy still present after publish: %v", err)
	}
}

func TestBuilder_RebuildReplacesExistingIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index_storage")
	ctx := context.Background()

	var calls atomic.Int64
	b := newTestBuilder(t, dir, &calls)
	if _, err := b.Build(ctx, testChunks()); err != nil {
		t.Fatalf("first Build: %v", err)
	}

	ix, err := b.Build(ctx, []Chunk{
		{ID: "new.txt_0", DocumentID: "new.txt", Seq: 0, Text: "grounding techniques", Summary: "about grounding", Hash: "n0"},
	})
	if err != nil {
		t.Fatalf("rebuild over existing index: %v", err)
	}
	if got := ix.Count(); got != 1 {
		t.Fatalf("Count after rebuild = %d, want 1", got)
	}
	if _, err := os.Stat(dir + ".old"); !os.IsNotExist(err) {
		t.Fatalf("previous index copy still present after rebuild: %v", err)
	}

	// The published directory holds only the new corpus.
	var openCalls atomic.Int64
	ix2, err := newTestBuilder(t, dir, &openCalls).Open(ctx)
	if err != nil {
		t.Fatalf("Open after rebuild: %v", err)
	}
	if got := ix2.Count(); got != 1 {
		t.Fatalf("reopened Count = %d, want 1", got)
	}
}

func TestBuilder_BuildPreservesMetadata(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index_storage")
	ctx := context.Background()

	var calls atomic.Int64
	b := newTestBuilder(t, dir, &calls)
	ix, err := b.Build(ctx, testChunks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	res, err := ix.Collection().Query(ctx, "sleep hygiene and routines", 1, nil, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("Query returned %d results, want 1", len(res))
	}
	got := res[0]
	if got.ID != "guide.txt_1" {
		t.Errorf("result ID = %q, want guide.txt_1", got.ID)
	}
	if got.Metadata[MetaSummary] != "about sleep" {
		t.Errorf("summary metadata = %q, want %q", got.Metadata[MetaSummary], "about sleep")
	}
	if got.Metadata[MetaDocumentID] != "guide.txt" {
		t.Errorf("document metadata = %q, want guide.txt", got.Metadata[MetaDocumentID])
	}
	if got.Metadata[MetaSeq] != "1" {
		t.Errorf("seq metadata = %q, want 1", got.Metadata[MetaSeq])
	}
}

func TestBuilder_LoadOrBuild(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index_storage")
	ctx := context.Background()

	var first atomic.Int64
	b := newTestBuilder(t, dir, &first)
	if _, err := b.LoadOrBuild(ctx, testChunks()); err != nil {
		t.Fatalf("first LoadOrBuild: %v", err)
	}
	if first.Load() == 0 {
		t.Fatal("first LoadOrBuild should have built and embedded")
	}

	// Second call loads the persisted index, ignoring the new chunks.
	var second atomic.Int64
	b2 := newTestBuilder(t, dir, &second)
	ix, err := b2.LoadOrBuild(ctx, []Chunk{{ID: "other_0", DocumentID: "other", Text: "unrelated"}})
	if err != nil {
		t.Fatalf("second LoadOrBuild: %v", err)
	}
	if got := second.Load(); got != 0 {
		t.Fatalf("second LoadOrBuild embedded %d texts, want 0", got)
	}
	if got := ix.Count(); got != 3 {
		t.Fatalf("second LoadOrBuild Count = %d, want the original 3", got)
	}
}

func TestBuilder_BuildEmpty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index_storage")
	var calls atomic.Int64
	b := newTestBuilder(t, dir, &calls)

	ix, err := b.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build with no chunks: %v", err)
	}
	if got := ix.Count(); got != 0 {
		t.Fatalf("Count = %d, want 0", got)
	}
	if got := calls.Load(); got != 0 {
		t.Fatalf("embedder called %d times for empty build, want 0", got)
	}
}
