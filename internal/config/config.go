// Package config provides application configuration with multi-source priority.
//
// Sources (highest to lowest priority):
//  1. Environment variables (MINDA_* plus GEMINI_API_KEY)
//  2. Config file (<data dir>/config.yaml or ./config.yaml)
//  3. Default values
//
// The Gemini API key is never stored in the config file; it is read from the
// environment only and its absence is a fatal startup condition for both the
// ingestion path and the conversational agent.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates no Gemini credential is present.
	ErrMissingAPIKey = errors.New("missing API key: set GEMINI_API_KEY or GOOGLE_API_KEY")

	// ErrInvalidChunking indicates chunk size/overlap values that cannot split.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidTopK indicates an out-of-range retrieval depth.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidTokenBudget indicates a non-positive conversation token budget.
	ErrInvalidTokenBudget = errors.New("invalid token budget")

	// ErrNoSourceFiles indicates the ingestion path has nothing to read.
	ErrNoSourceFiles = errors.New("no source files configured")
)

// Defaults mirror the reference deployment of the assistant.
const (
	DefaultModelName     = "googleai/gemini-2.0-flash"
	DefaultEmbedderModel = "embedding-001"
	DefaultChunkSize     = 512
	DefaultChunkOverlap  = 20
	DefaultTopK          = 3
	DefaultTokenBudget   = 3000
	DefaultMaxTurns      = 5
	DefaultWorkers       = 4
)

// Config stores application configuration.
// APIKey is populated from the environment, never from the config file,
// and must not be logged.
type Config struct {
	// Generation configuration
	ModelName     string  `mapstructure:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature"`
	MaxTurns      int     `mapstructure:"max_turns"`

	// Ingestion configuration
	SourceFiles  []string `mapstructure:"source_files"`
	ChunkSize    int      `mapstructure:"chunk_size"`
	ChunkOverlap int      `mapstructure:"chunk_overlap"`
	Separator    string   `mapstructure:"separator"`
	Workers      int      `mapstructure:"workers"`

	// Retrieval configuration
	TopK int `mapstructure:"top_k"`

	// Conversation memory configuration
	TokenBudget int `mapstructure:"token_budget"`

	// Storage paths (resolved against DataDir when relative)
	DataDir          string `mapstructure:"data_dir"`
	CacheFile        string `mapstructure:"cache_file"`
	IndexDir         string `mapstructure:"index_dir"`
	ConversationFile string `mapstructure:"conversation_file"`
	ScoresFile       string `mapstructure:"scores_file"`
	UsersFile        string `mapstructure:"users_file"`

	// Observability (empty endpoint disables tracing)
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`

	// Credential, environment only. SENSITIVE: never log.
	APIKey string `mapstructure:"-"`
}

// Load reads configuration from defaults, an optional config file and the
// environment, then validates it.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir := os.Getenv("MINDA_DATA"); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("MINDA")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if dir := os.Getenv("MINDA_DATA"); dir != "" {
		cfg.DataDir = dir
	}

	cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
	}

	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("max_turns", DefaultMaxTurns)

	v.SetDefault("source_files", []string{"data/dsm5.docx"})
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("separator", " ")
	v.SetDefault("workers", DefaultWorkers)

	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("token_budget", DefaultTokenBudget)

	v.SetDefault("data_dir", "data")
	v.SetDefault("cache_file", "cache/pipeline_cache.json")
	v.SetDefault("index_dir", "index_storage")
	v.SetDefault("conversation_file", "cache/chat_history.json")
	v.SetDefault("scores_file", "user_storage/scores.json")
	v.SetDefault("users_file", "user_storage/users.yaml")

	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("service_name", "minda")
}

// resolvePaths anchors relative storage paths under DataDir.
func (c *Config) resolvePaths() {
	anchor := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(c.DataDir, p)
	}
	c.CacheFile = anchor(c.CacheFile)
	c.IndexDir = anchor(c.IndexDir)
	c.ConversationFile = anchor(c.ConversationFile)
	c.ScoresFile = anchor(c.ScoresFile)
	c.UsersFile = anchor(c.UsersFile)
}

// Validate checks the configuration for values that would fail later in a
// less obvious way. The API key check makes credential absence a fail-fast
// startup error instead of a mid-request surprise.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_size=%d chunk_overlap=%d (need 0 <= overlap < size)",
			ErrInvalidChunking, c.ChunkSize, c.ChunkOverlap)
	}
	if c.TopK < 1 || c.TopK > 10 {
		return fmt.Errorf("%w: %d (need 1-10)", ErrInvalidTopK, c.TopK)
	}
	if c.TokenBudget <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTokenBudget, c.TokenBudget)
	}
	if len(c.SourceFiles) == 0 {
		return ErrNoSourceFiles
	}
	return nil
}
