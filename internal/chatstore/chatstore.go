// Package chatstore persists per-user conversation history in a single
// JSON file and enforces a token budget per user. The budget is applied
// on write: after every append the oldest messages are evicted until the
// stored history fits, so rehydrating a session never overruns the model
// context.
package chatstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gofrs/flock"

	"github.com/ai-vietnam/minda/internal/storage"
)

// Message roles. RoleUser is what the person typed, RoleAssistant the
// model's reply.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a stored conversation.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// EstimateTokens approximates the token count of a text. Intentionally
// rough (about two runes per token) and always an overcount for typical
// Vietnamese and English text, so the budget errs on the safe side.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 2
}

// Store is a file-backed conversation history keyed by username.
// Concurrent processes are serialized through a file lock, concurrent
// goroutines through a mutex.
type Store struct {
	path   string
	budget int
	fl     *flock.Flock
	logger *slog.Logger

	mu sync.Mutex
}

// New creates a Store persisting at path. budget is the maximum stored
// token estimate per user and must be positive.
func New(path string, budget int, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history path is required")
	}
	if budget <= 0 {
		return nil, fmt.Errorf("token budget must be positive, got %d", budget)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		budget: budget,
		fl:     storage.NewLock(path),
		logger: logger,
	}, nil
}

// History returns the stored messages for username, oldest first. A
// missing or unreadable file yields an empty history, never an error:
// losing context is recoverable, refusing to chat is not.
func (s *Store) History(username string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all map[string][]Message
	err := storage.WithLock(s.fl, func() error {
		all = s.read()
		return nil
	})
	if err != nil {
		s.logger.Warn("could not lock history file, starting empty", "error", err)
		return nil
	}
	return all[username]
}

// Append adds messages to username's history and evicts the oldest
// stored messages until the per-user token estimate fits the budget.
func (s *Store) Append(username string, msgs ...Message) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return storage.WithLock(s.fl, func() error {
		all := s.read()
		if all == nil {
			all = make(map[string][]Message)
		}
		history := append(all[username], msgs...)
		all[username] = s.evict(username, history)

		data, err := json.MarshalIndent(all, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding history: %w", err)
		}
		if err := storage.WriteFileAtomic(s.path, data); err != nil {
			return fmt.Errorf("writing history: %w", err)
		}
		return nil
	})
}

// read loads the full history file. Corrupt or missing content degrades
// to an empty map with a log line.
func (s *Store) read() map[string][]Message {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("could not read history file, starting empty", "path", s.path, "error", err)
		}
		return nil
	}
	var all map[string][]Message
	if err := json.Unmarshal(data, &all); err != nil {
		s.logger.Warn("history file is corrupt, starting empty", "path", s.path, "error", err)
		return nil
	}
	return all
}

// evict drops the oldest messages until the history's token estimate
// fits the budget. The newest message is always kept, even when it alone
// exceeds the budget.
func (s *Store) evict(username string, history []Message) []Message {
	total := 0
	for _, m := range history {
		total += EstimateTokens(m.Content)
	}

	evicted := 0
	for total > s.budget && len(history) > 1 {
		total -= EstimateTokens(history[0].Content)
		history = history[1:]
		evicted++
	}
	if evicted > 0 {
		s.logger.Debug("evicted old messages to fit token budget",
			"user", username, "evicted", evicted, "remaining", len(history))
	}
	return history
}
