// Package users keeps the YAML registry of known users. A profile is
// written once at first login and never overwritten afterwards, so the
// self-description a person gave on day one stays authoritative.
package users

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/ai-vietnam/minda/internal/storage"
)

// Profile holds what a user told us about themselves.
type Profile struct {
	Info string `yaml:"info"`
}

// Registry is the file-backed user store. The file maps username to
// profile.
type Registry struct {
	path   string
	fl     *flock.Flock
	logger *slog.Logger

	mu sync.Mutex
}

// NewRegistry creates a registry persisting at path.
func NewRegistry(path string, logger *slog.Logger) (*Registry, error) {
	if path == "" {
		return nil, fmt.Errorf("registry path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		path:   path,
		fl:     storage.NewLock(path),
		logger: logger,
	}, nil
}

// Lookup returns the stored profile for username.
func (r *Registry) Lookup(username string) (Profile, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		p  Profile
		ok bool
	)
	err := storage.WithLock(r.fl, func() error {
		all, err := r.read()
		if err != nil {
			return err
		}
		p, ok = all[username]
		return nil
	})
	if err != nil {
		return Profile{}, false, err
	}
	return p, ok, nil
}

// Ensure returns username's profile, creating it with info on first
// login. An existing profile is returned unchanged and info ignored.
func (r *Registry) Ensure(username, info string) (Profile, error) {
	if username == "" {
		return Profile{}, fmt.Errorf("username is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var result Profile
	err := storage.WithLock(r.fl, func() error {
		all, err := r.read()
		if err != nil {
			return err
		}
		if existing, ok := all[username]; ok {
			result = existing
			return nil
		}

		if all == nil {
			all = make(map[string]Profile)
		}
		result = Profile{Info: info}
		all[username] = result

		data, err := yaml.Marshal(all)
		if err != nil {
			return fmt.Errorf("encoding registry: %w", err)
		}
		if err := storage.WriteFileAtomic(r.path, data); err != nil {
			return fmt.Errorf("writing registry: %w", err)
		}
		r.logger.Info("new user registered", "user", username)
		return nil
	})
	if err != nil {
		return Profile{}, err
	}
	return result, nil
}

// read loads the registry file. Missing is empty; corrupt is an error,
// because registering over a corrupt file would drop every known user.
func (r *Registry) read() (map[string]Profile, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading registry file: %w", err)
	}
	var all map[string]Profile
	if err := yaml.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("registry file %s is corrupt: %w", r.path, err)
	}
	return all, nil
}
