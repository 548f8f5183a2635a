package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"scholarbot/src/core/rag"
	"scholarbot/src/infrastructure/integrations/ollama"
)

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("request path = %s, want /embeddings", r.URL.Path)
		}
		var req ollama.EmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" || req.Prompt != "hello" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(ollama.EmbeddingResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	client := ollama.NewClient(srv.URL, srv.Client())
	got, err := client.Embed(context.Background(), "nomic-embed-text", "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Embed() returned %d dimensions, want 3", len(got))
	}
	if got[0] != 0.1 {
		t.Errorf("Embed()[0] = %v, want 0.1", got[0])
	}
}

func TestEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := ollama.NewClient(srv.URL, srv.Client())
	_, err := client.Embed(context.Background(), "m", "text")
	if !errors.Is(err, rag.ErrModelUnavailable) {
		t.Errorf("Embed() error = %v, want ErrModelUnavailable", err)
	}
}

func TestGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		enc.Encode(ollama.GenerateResponse{Response: "Hello"})
		enc.Encode(ollama.GenerateResponse{Response: " world"})
		enc.Encode(ollama.GenerateResponse{Done: true})
	}))
	defer srv.Close()

	client := ollama.NewClient(srv.URL, srv.Client())
	stream, err := client.GenerateStream(context.Background(), "llama3.1", "system", "prompt", nil)
	if err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}

	var tokens string
	var done bool
	for chunk := range stream {
		if chunk.Err != nil {
			t.Fatalf("stream chunk error = %v", chunk.Err)
		}
		tokens += chunk.Content
		if chunk.Done {
			done = true
		}
	}
	if tokens != "Hello world" {
		t.Errorf("streamed tokens = %q, want %q", tokens, "Hello world")
	}
	if !done {
		t.Error("stream closed without a done marker")
	}
}

func TestGenerateStreamTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Body ends before the done marker arrives.
		json.NewEncoder(w).Encode(ollama.GenerateResponse{Response: "partial"})
	}))
	defer srv.Close()

	client := ollama.NewClient(srv.URL, srv.Client())
	stream, err := client.GenerateStream(context.Background(), "m", "s", "p", nil)
	if err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}

	var last rag.StreamChunk
	for chunk := range stream {
		last = chunk
	}
	if !errors.Is(last.Err, rag.ErrModelUnavailable) {
		t.Errorf("final chunk error = %v, want ErrModelUnavailable", last.Err)
	}
}

func TestModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tags" {
			t.Errorf("request path = %s, want /tags", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"llama3.1"},{"name":"nomic-embed-text"}]}`))
	}))
	defer srv.Close()

	client := ollama.NewClient(srv.URL, srv.Client())
	got, err := client.Models(context.Background())
	if err != nil {
		t.Fatalf("Models() error = %v", err)
	}
	if len(got) != 2 || got[0] != "llama3.1" {
		t.Errorf("Models() = %v", got)
	}
}
