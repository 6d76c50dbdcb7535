// Package embedding turns task text into dense vectors for semantic
// matching. Two backends are supported: a local Ollama server and Google's
// GenAI API. Similarity math lives here too so callers never touch raw
// vectors beyond storing them.
package embedding

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Embedder produces a vector for a piece of text. Vectors from the same
// embedder are comparable with Cosine; vectors from different embedders or
// models are not.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Name identifies the backend and model, e.g. "ollama:nomic-embed-text".
	Name() string
}

// Config selects and configures the embedding backend.
type Config struct {
	// Provider is "ollama" or "genai".
	Provider string

	OllamaEndpoint string
	OllamaModel    string

	GenAIAPIKey string
	GenAIModel  string
}

// DefaultConfig returns the local-first defaults.
func DefaultConfig() Config {
	return Config{
		Provider:       "ollama",
		OllamaEndpoint: "http://localhost:11434",
		OllamaModel:    "nomic-embed-text",
		GenAIModel:     "gemini-embedding-001",
	}
}

// New creates an embedder for the configured provider.
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllama(cfg.OllamaEndpoint, cfg.OllamaModel), nil
	case "genai":
		return NewGenAI(cfg.GenAIAPIKey, cfg.GenAIModel)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q (use \"ollama\" or \"genai\")", cfg.Provider)
	}
}

// Cosine computes the cosine similarity of two vectors. Returns an error on
// dimension mismatch or a zero-magnitude vector.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d != %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("empty vectors")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero-magnitude vector")
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Scored pairs an index into the candidate set with its similarity score.
type Scored struct {
	Index int
	Score float64
}

// TopK ranks candidates by cosine similarity to query, descending, and
// returns at most k results. Candidates with mismatched dimensions are
// skipped rather than failing the whole search.
func TopK(query []float32, candidates [][]float32, k int) []Scored {
	if k <= 0 {
		return nil
	}

	scored := make([]Scored, 0, len(candidates))
	for i, cand := range candidates {
		score, err := Cosine(query, cand)
		if err != nil {
			continue
		}
		scored = append(scored, Scored{Index: i, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
