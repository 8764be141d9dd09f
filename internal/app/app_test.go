package app

import (
	"testing"

	"github.com/ai-vietnam/minda/internal/ingest"
)

func TestIndexChunks(t *testing.T) {
	in := []ingest.Chunk{
		{ID: "d_0", DocumentID: "d", Seq: 0, Text: "t0", Summary: "s0", Hash: "h0"},
		{ID: "d_1", DocumentID: "d", Seq: 1, Text: "t1", Summary: "s1", Hash: "h1"},
	}
	out := IndexChunks(in)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	for i := range in {
		if out[i].ID != in[i].ID || out[i].Text != in[i].Text || out[i].Summary != in[i].Summary {
			t.Errorf("chunk %d mismatch: %+v vs %+v", i, in[i], out[i])
		}
		if out[i].Seq != in[i].Seq || out[i].Hash != in[i].Hash || out[i].DocumentID != in[i].DocumentID {
			t.Errorf("chunk %d metadata mismatch", i)
		}
	}
}

func TestIndexChunks_Empty(t *testing.T) {
	if got := IndexChunks(nil); len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}
