package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Matching.CollisionThreshold != 0.85 {
		t.Errorf("collision threshold = %f, want 0.85", cfg.Matching.CollisionThreshold)
	}
	if cfg.Matching.AmbiguityMargin != 0.05 {
		t.Errorf("ambiguity margin = %f, want 0.05", cfg.Matching.AmbiguityMargin)
	}
	if cfg.Matching.TopK != 5 {
		t.Errorf("top_k = %d, want 5", cfg.Matching.TopK)
	}
	if cfg.Comment.Radius != time.Hour {
		t.Errorf("comment radius = %v, want 1h", cfg.Comment.Radius)
	}
	if cfg.Embedding.Provider != "ollama" {
		t.Errorf("embedding provider = %q, want ollama", cfg.Embedding.Provider)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
anthropic:
  model: claude-sonnet-4-20250514
  use_bedrock: true
  aws_region: us-west-2
embedding:
  provider: genai
  genai_model: gemini-embedding-001
matching:
  collision_threshold: 0.9
  top_k: 10
comment:
  radius: 30m
retry:
  attempts: 4
  backoff: 250ms
store:
  path: /tmp/tempo-test.db
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if !cfg.Anthropic.UseBedrock {
		t.Error("use_bedrock not set")
	}
	if cfg.Anthropic.AWSRegion != "us-west-2" {
		t.Errorf("aws_region = %q", cfg.Anthropic.AWSRegion)
	}
	if cfg.Embedding.Provider != "genai" {
		t.Errorf("provider = %q, want genai", cfg.Embedding.Provider)
	}
	if cfg.Matching.CollisionThreshold != 0.9 {
		t.Errorf("collision threshold = %f, want 0.9", cfg.Matching.CollisionThreshold)
	}
	if cfg.Matching.TopK != 10 {
		t.Errorf("top_k = %d, want 10", cfg.Matching.TopK)
	}
	// Unset keys keep their defaults.
	if cfg.Matching.AmbiguityMargin != 0.05 {
		t.Errorf("ambiguity margin = %f, want default 0.05", cfg.Matching.AmbiguityMargin)
	}
	if cfg.Comment.Radius != 30*time.Minute {
		t.Errorf("comment radius = %v, want 30m", cfg.Comment.Radius)
	}
	if cfg.Retry.Attempts != 4 {
		t.Errorf("retry attempts = %d, want 4", cfg.Retry.Attempts)
	}
	if cfg.DBPath() != "/tmp/tempo-test.db" {
		t.Errorf("db path = %q", cfg.DBPath())
	}
}

func TestLoadFromPathExpandsEnv(t *testing.T) {
	t.Setenv("TEMPO_TEST_KEY", "sk-test-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "anthropic:\n  api_key: ${TEMPO_TEST_KEY}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-test-123" {
		t.Errorf("api_key = %q, want expanded value", cfg.Anthropic.APIKey)
	}
}

func TestDBPathDefault(t *testing.T) {
	cfg := Default()
	want := filepath.Join(".tempo", "tasks.db")
	if cfg.DBPath() != want {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath(), want)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
