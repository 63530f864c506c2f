package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avasilkov/knowledge-retrieval/internal/infrastructure/resilience"
)

func TestEmbedReturnsVectorPerInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Fatalf("unexpected model %q", req.Model)
		}
		vectors := make([][]float32, len(req.Input))
		for i := range vectors {
			vectors[i] = []float32{float32(i), 1}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": vectors})
	}))
	defer server.Close()

	e := New(server.URL, "nomic-embed-text", Options{})
	vectors, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
}

func TestEmbedRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{1}}})
	}))
	defer server.Close()

	e := New(server.URL, "nomic-embed-text", Options{})
	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected error for embedding count mismatch")
	}
}

func TestEmbedRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts < 2 {
			http.Error(w, "overloaded", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{1}}})
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		MaxAttempts:    3,
		InitialBackoff: 1,
		MaxBackoff:     2,
		Multiplier:     2,
		BreakerEnabled: false,
	})
	e := New(server.URL, "nomic-embed-text", Options{Executor: executor})

	vectors, err := e.EmbedQuery(context.Background(), "q")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("expected 1-dim vector, got %v", vectors)
	}
	if attempts != 2 {
		t.Fatalf("expected retry after 500, got %d attempts", attempts)
	}
}

func TestClassifyErrorBadRequestNotRetryable(t *testing.T) {
	class := classifyError(&HTTPStatusError{StatusCode: http.StatusBadRequest, Status: "400 Bad Request"})
	if class.Retryable {
		t.Fatalf("4xx must not be retryable")
	}
	class = classifyError(&HTTPStatusError{StatusCode: http.StatusTooManyRequests, Status: "429"})
	if !class.Retryable {
		t.Fatalf("429 must be retryable")
	}
}
