package config

import (
	"errors"
	"testing"
)

func validConfig() *Config {
	return &Config{
		ModelName:     DefaultModelName,
		EmbedderModel: DefaultEmbedderModel,
		ChunkSize:     DefaultChunkSize,
		ChunkOverlap:  DefaultChunkOverlap,
		TopK:          DefaultTopK,
		TokenBudget:   DefaultTokenBudget,
		SourceFiles:   []string{"data/dsm5.docx"},
		APIKey:        "test-key",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"missing api key", func(c *Config) { c.APIKey = "" }, ErrMissingAPIKey},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, ErrInvalidChunking},
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, ErrInvalidChunking},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, ErrInvalidChunking},
		{"top-k zero", func(c *Config) { c.TopK = 0 }, ErrInvalidTopK},
		{"top-k too large", func(c *Config) { c.TopK = 11 }, ErrInvalidTopK},
		{"zero token budget", func(c *Config) { c.TokenBudget = 0 }, ErrInvalidTokenBudget},
		{"no sources", func(c *Config) { c.SourceFiles = nil }, ErrNoSourceFiles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolvePaths(t *testing.T) {
	cfg := validConfig()
	cfg.DataDir = "/var/minda"
	cfg.CacheFile = "cache/pipeline_cache.json"
	cfg.ScoresFile = "/abs/scores.json"
	cfg.resolvePaths()

	if got, want := cfg.CacheFile, "/var/minda/cache/pipeline_cache.json"; got != want {
		t.Errorf("CacheFile = %q, want %q", got, want)
	}
	// Absolute paths stay untouched.
	if got, want := cfg.ScoresFile, "/abs/scores.json"; got != want {
		t.Errorf("ScoresFile = %q, want %q", got, want)
	}
}

func TestLoad_MissingAPIKeyFailsFast(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("MINDA_DATA", t.TempDir())

	_, err := Load()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Load() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestLoad_DefaultsApply(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("MINDA_DATA", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.ChunkSize != DefaultChunkSize {
		t.Errorf("ChunkSize = %d, want %d", cfg.ChunkSize, DefaultChunkSize)
	}
	if cfg.TopK != DefaultTopK {
		t.Errorf("TopK = %d, want %d", cfg.TopK, DefaultTopK)
	}
	if cfg.TokenBudget != DefaultTokenBudget {
		t.Errorf("TokenBudget = %d, want %d", cfg.TokenBudget, DefaultTokenBudget)
	}
}
