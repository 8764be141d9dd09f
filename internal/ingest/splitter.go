package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Chunk is a contiguous span of a document's text, sized for retrieval.
// Hash is a pure function of the chunk text and the transformation
// parameters that produced it, so changing any parameter forces
// recomputation of cached enrichment.
type Chunk struct {
	ID         string
	DocumentID string
	Seq        int
	Text       string
	Summary    string
	Hash       string
}

// Splitter splits text into overlapping windows. Lengths are measured in
// runes. Cuts land on Separator boundaries; an empty Separator means exact
// rune windows. A trailing chunk shorter than ChunkSize is kept as-is.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separator    string
}

// Split returns the chunks of doc in document order.
func (s Splitter) Split(doc Document) []Chunk {
	var texts []string
	if s.Separator == "" {
		texts = s.splitRunes(doc.Text)
	} else {
		texts = s.splitUnits(doc.Text)
	}

	chunks := make([]Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = Chunk{
			ID:         fmt.Sprintf("%s_%d", doc.ID, i),
			DocumentID: doc.ID,
			Seq:        i,
			Text:       text,
			Hash:       s.hash(text),
		}
	}
	return chunks
}

// splitRunes produces exact windows: for text of length L this yields
// ceil((L-O)/(C-O)) chunks.
func (s Splitter) splitRunes(text string) []string {
	runes := []rune(text)
	l := len(runes)
	if l == 0 {
		return nil
	}
	if l <= s.ChunkSize {
		return []string{text}
	}

	// Overlap at or above the chunk size would stall the window, so the
	// step is clamped to always advance.
	step := max(s.ChunkSize-s.ChunkOverlap, 1)
	res := make([]string, 0, l/step+1)
	pos := 0
	for {
		end := min(pos+s.ChunkSize, l)
		res = append(res, string(runes[pos:end]))
		if end >= l {
			break
		}
		pos += step
	}
	return res
}

// splitUnits windows over separator-delimited units so no cut falls inside
// a unit. Units longer than ChunkSize become chunks of their own.
func (s Splitter) splitUnits(text string) []string {
	if text == "" {
		return nil
	}
	units := splitKeep(text, s.Separator)

	var res []string
	var cur []string
	curLen := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		res = append(res, strings.Join(cur, ""))
		// Carry trailing units totalling at most ChunkOverlap runes into
		// the next window to preserve local context across the boundary.
		keep := 0
		keepLen := 0
		for i := len(cur) - 1; i >= 0; i-- {
			n := utf8.RuneCountInString(cur[i])
			if keepLen+n > s.ChunkOverlap {
				break
			}
			keepLen += n
			keep++
		}
		cur = append([]string(nil), cur[len(cur)-keep:]...)
		curLen = keepLen
	}

	for _, u := range units {
		n := utf8.RuneCountInString(u)
		if curLen+n > s.ChunkSize && curLen > 0 {
			flush()
		}
		cur = append(cur, u)
		curLen += n
	}
	// Every flush is followed by appending a unit, so cur always holds at
	// least one unit no earlier chunk ends with.
	if len(cur) > 0 {
		res = append(res, strings.Join(cur, ""))
	}
	return res
}

// splitKeep splits text by sep, keeping the separator attached to the
// preceding unit so that rejoining units reproduces the original text.
func splitKeep(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	// SplitAfter can yield a trailing empty string when text ends with sep.
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}

// hash derives the cache key for a chunk: sha256 over the chunk text and
// every transformation parameter, including the summary prompt template.
func (s Splitter) hash(text string) string {
	h := sha256.New()
	h.Write([]byte(text))
	fmt.Fprintf(h, "\x00%d\x00%d\x00%s\x00%s", s.ChunkSize, s.ChunkOverlap, s.Separator, summaryTemplate)
	return hex.EncodeToString(h.Sum(nil))
}
