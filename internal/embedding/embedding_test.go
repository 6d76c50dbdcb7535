package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCosineIdenticalVectors(t *testing.T) {
	v := []float32{0.5, 0.5, 0.7}
	score, err := Cosine(v, v)
	if err != nil {
		t.Fatalf("Cosine failed: %v", err)
	}
	if math.Abs(score-1.0) > 1e-9 {
		t.Errorf("score = %f, want 1.0", score)
	}
}

func TestCosineOrthogonalVectors(t *testing.T) {
	score, err := Cosine([]float32{1, 0}, []float32{0, 1})
	if err != nil {
		t.Fatalf("Cosine failed: %v", err)
	}
	if math.Abs(score) > 1e-9 {
		t.Errorf("score = %f, want 0", score)
	}
}

func TestCosineDimensionMismatch(t *testing.T) {
	if _, err := Cosine([]float32{1, 0}, []float32{1, 0, 0}); err == nil {
		t.Error("expected error for mismatched dimensions")
	}
}

func TestCosineZeroVector(t *testing.T) {
	if _, err := Cosine([]float32{0, 0}, []float32{1, 0}); err == nil {
		t.Error("expected error for zero-magnitude vector")
	}
}

func TestTopKRanksDescending(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{0, 1},        // orthogonal
		{1, 0.1},      // close
		{1, 0},        // identical
		{-1, 0},       // opposite
		{0.7, 0.7},    // middling
		{1, 0, 0, 0},  // wrong dimensions, skipped
	}

	got := TopK(query, candidates, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Index != 2 {
		t.Errorf("best index = %d, want 2", got[0].Index)
	}
	if got[1].Index != 1 {
		t.Errorf("second index = %d, want 1", got[1].Index)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

func TestTopKZeroK(t *testing.T) {
	if got := TopK([]float32{1}, [][]float32{{1}}, 0); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Prompt != "Description: buy milk | Date: unscheduled | Time: unscheduled" {
			t.Errorf("prompt = %q", req.Prompt)
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	emb := NewOllama(srv.URL, "nomic-embed-text")
	vec, err := emb.Embed(context.Background(), "Description: buy milk | Date: unscheduled | Time: unscheduled")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("len = %d, want 3", len(vec))
	}
}

func TestOllamaEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	emb := NewOllama(srv.URL, "missing-model")
	if _, err := emb.Embed(context.Background(), "text"); err == nil {
		t.Error("expected error for non-200 status")
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	if _, err := New(Config{Provider: "pinecone"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
