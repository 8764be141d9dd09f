// Package scores keeps the append-only ledger of mental-health
// assessments. Entries are never rewritten: each conversation that ends
// in an assessment adds one row, and history stays byte-for-byte stable.
//
// The JSON field names are part of the on-disk contract shared with
// earlier deployments, including the legacy "usename" spelling.
package scores

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/ai-vietnam/minda/internal/storage"
)

// Category is the assessed mental-health level.
type Category string

const (
	Poor    Category = "Poor"
	Average Category = "Average"
	Normal  Category = "Normal"
	Good    Category = "Good"
)

// ErrUnknownCategory indicates a score string outside the four levels.
var ErrUnknownCategory = errors.New("unknown score category")

// vietnameseCategories maps the assessment labels the model produces in
// Vietnamese onto the canonical categories.
var vietnameseCategories = map[string]Category{
	"kém":         Poor,
	"trung bình":  Average,
	"bình thường": Normal,
	"tốt":         Good,
}

// ParseCategory normalizes a score label. It accepts the canonical
// English names case-insensitively and the Vietnamese labels the
// assessment prompt uses.
func ParseCategory(s string) (Category, error) {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "poor":
		return Poor, nil
	case "average":
		return Average, nil
	case "normal":
		return Normal, nil
	case "good":
		return Good, nil
	}
	if c, ok := vietnameseCategories[strings.ToLower(trimmed)]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// TimeLayout is the timestamp format of ledger entries.
const TimeLayout = "2006-01-02 15:04:05"

// Entry is one assessment row.
type Entry struct {
	ID         string   `json:"id"`
	Username   string   `json:"usename"`
	Time       string   `json:"Time"`
	Score      Category `json:"Score"`
	Content    string   `json:"Content"`
	TotalGuess string   `json:"Total guess"`
}

// Ledger is the file-backed append-only store of entries.
type Ledger struct {
	path   string
	fl     *flock.Flock
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewLedger creates a ledger persisting at path.
func NewLedger(path string, logger *slog.Logger) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		path:   path,
		fl:     storage.NewLock(path),
		logger: logger,
		now:    time.Now,
	}, nil
}

// Append records one assessment for username and returns the stored
// entry. Existing entries are read back and rewritten unchanged.
func (l *Ledger) Append(username string, score Category, content, totalGuess string) (Entry, error) {
	if username == "" {
		return Entry{}, fmt.Errorf("username is required")
	}
	if _, err := ParseCategory(string(score)); err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:         uuid.NewString(),
		Username:   username,
		Time:       l.now().Format(TimeLayout),
		Score:      score,
		Content:    content,
		TotalGuess: totalGuess,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := storage.WithLock(l.fl, func() error {
		entries, err := l.read()
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding ledger: %w", err)
		}
		return storage.WriteFileAtomic(l.path, data)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("appending score: %w", err)
	}

	l.logger.Info("score recorded", "user", username, "score", score)
	return entry, nil
}

// Entries returns username's assessments in the order they were
// recorded.
func (l *Ledger) Entries(username string) ([]Entry, error) {
	all, err := l.All()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if e.Username == username {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every ledger entry in recorded order.
func (l *Ledger) All() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []Entry
	err := storage.WithLock(l.fl, func() error {
		var err error
		entries, err = l.read()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	return entries, nil
}

// read loads the ledger file. Missing is an empty ledger; corrupt is an
// error, because appending over a corrupt ledger would destroy history.
func (l *Ledger) read() ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading ledger file: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("ledger file %s is corrupt: %w", l.path, err)
	}
	return entries, nil
}
