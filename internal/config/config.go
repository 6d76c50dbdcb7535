// Package config handles configuration loading and management for Tempo.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Tempo.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Comment   CommentConfig   `mapstructure:"comment"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Store     StoreConfig     `mapstructure:"store"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	MaxTokens  int64  `mapstructure:"max_tokens"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	Provider       string `mapstructure:"provider"`
	OllamaEndpoint string `mapstructure:"ollama_endpoint"`
	OllamaModel    string `mapstructure:"ollama_model"`
	GenAIAPIKey    string `mapstructure:"genai_api_key"`
	GenAIModel     string `mapstructure:"genai_model"`
}

// MatchingConfig tunes semantic matching.
type MatchingConfig struct {
	// CollisionThreshold is the cosine similarity at or above which a new
	// task is flagged as a duplicate of an existing one.
	CollisionThreshold float64 `mapstructure:"collision_threshold"`
	// AmbiguityMargin is the score band below the best semantic match
	// within which other candidates count as equally plausible.
	AmbiguityMargin float64 `mapstructure:"ambiguity_margin"`
	// TopK caps how many candidates a semantic search considers.
	TopK int `mapstructure:"top_k"`
}

// CommentConfig tunes the commentary feature.
type CommentConfig struct {
	// Radius is the half-width of the time window around now within which
	// scheduled tasks are pulled into commentary.
	Radius time.Duration `mapstructure:"radius"`
}

// RetryConfig bounds external service calls.
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Backoff  time.Duration `mapstructure:"backoff"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Path is the SQLite database file. Empty means .tempo/tasks.db under
	// the working directory.
	Path string `mapstructure:"path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, GENAI_API_KEY)
// 2. Project config (.tempo.yaml in current directory or parent)
// 3. User config (~/.config/tempo/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("embedding.genai_api_key", "GENAI_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.Embedding.GenAIAPIKey = expandEnv(cfg.Embedding.GenAIAPIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.Embedding.GenAIAPIKey = expandEnv(cfg.Embedding.GenAIAPIKey)

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// DBPath resolves the database file path, defaulting to .tempo/tasks.db
// under the working directory.
func (c *Config) DBPath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(".tempo", "tasks.db")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.ollama_endpoint", "http://localhost:11434")
	v.SetDefault("embedding.ollama_model", "nomic-embed-text")
	v.SetDefault("embedding.genai_api_key", "")
	v.SetDefault("embedding.genai_model", "gemini-embedding-001")

	v.SetDefault("matching.collision_threshold", 0.85)
	v.SetDefault("matching.ambiguity_margin", 0.05)
	v.SetDefault("matching.top_k", 5)

	v.SetDefault("comment.radius", "1h")

	v.SetDefault("retry.attempts", 2)
	v.SetDefault("retry.backoff", "500ms")

	v.SetDefault("store.path", "")
}

// getUserConfigDir returns the XDG config directory for Tempo.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "tempo")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "tempo")
	}
	return filepath.Join(home, ".config", "tempo")
}

// findProjectConfig searches for .tempo.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".tempo.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			MaxTokens: 1024,
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "nomic-embed-text",
			GenAIModel:     "gemini-embedding-001",
		},
		Matching: MatchingConfig{
			CollisionThreshold: 0.85,
			AmbiguityMargin:    0.05,
			TopK:               5,
		},
		Comment: CommentConfig{
			Radius: time.Hour,
		},
		Retry: RetryConfig{
			Attempts: 2,
			Backoff:  500 * time.Millisecond,
		},
	}
}
