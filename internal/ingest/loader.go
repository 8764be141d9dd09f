package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv/v2"
)

// Document is a loaded reference document. Immutable once loaded.
type Document struct {
	ID   string // stable identifier derived from the source file name
	Path string
	Text string
}

// binaryExtensions are formats routed through docconv for text extraction.
var binaryExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".odt":  true,
	".rtf":  true,
}

// Loader reads raw source documents from disk.
type Loader struct {
	paths  []string
	logger *slog.Logger
}

// NewLoader creates a Loader over the given source file paths.
func NewLoader(paths []string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{paths: paths, logger: logger}
}

// Load reads every configured source file. Any unreadable file aborts the
// load: ingestion is a batch job and a partial corpus would build a
// misleading index.
func (l *Loader) Load() ([]Document, error) {
	docs := make([]Document, 0, len(l.paths))
	for _, path := range l.paths {
		text, err := readDocument(path)
		if err != nil {
			return nil, fmt.Errorf("loading document %s: %w", path, err)
		}
		doc := Document{
			ID:   filepath.Base(path),
			Path: path,
			Text: text,
		}
		l.logger.Info("loaded document", "id", doc.ID, "chars", len(doc.Text))
		docs = append(docs, doc)
	}
	return docs, nil
}

// readDocument extracts plain text from a source file. Binary document
// formats go through docconv; everything else is read as UTF-8 text.
func readDocument(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if binaryExtensions[ext] {
		res, err := docconv.ConvertPath(path)
		if err != nil {
			return "", fmt.Errorf("converting %s: %w", ext, err)
		}
		return res.Body, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
