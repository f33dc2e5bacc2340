package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"SelfChat/internal/config"
)

func TestOllamaComplete(t *testing.T) {
	requests := make(chan OllamaRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		var req OllamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		requests <- req
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model":   "llama3",
			"message": map[string]any{"role": "assistant", "content": "Snails hum in B flat."},
			"done":    true,
		})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL+"/", "llama3", 0, nil, nil)
	reply, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "You are Jim."},
		{Role: "user", Content: "hello"},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if reply != "Snails hum in B flat." {
		t.Errorf("reply = %q", reply)
	}
	got := <-requests
	if got.Model != "llama3" || got.Stream {
		t.Errorf("request model/stream = %q/%v, want llama3/false", got.Model, got.Stream)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("request messages = %+v", got.Messages)
	}
}

func TestOllamaCompleteRuntimeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'llama3' not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "llama3", 0, nil, nil)
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("Complete() should fail on 404")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want runtime body included", err)
	}
}

func TestOllamaCompleteUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewOllamaClient(url, "llama3", 0, nil, nil)
	if _, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Fatal("Complete() should fail when runtime is unreachable")
	}
}

func TestOllamaCompleteEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"message": map[string]any{"role": "assistant", "content": ""}})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "llama3", 0, nil, nil)
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("error = %v, want ErrEmptyResponse", err)
	}
}

func TestOllamaReady(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{{"name": "llama3:latest"}, {"name": "mistral:7b"}},
		})
	}))
	defer server.Close()

	tests := []struct {
		model   string
		wantErr bool
	}{
		{"llama3", false},
		{"llama3:latest", false},
		{"mistral:7b", false},
		{"mistral:latest", true},
		{"phi3", true},
	}
	for _, tc := range tests {
		t.Run(tc.model, func(t *testing.T) {
			err := NewOllamaClient(server.URL, tc.model, 0, nil, nil).Ready(context.Background())
			if (err != nil) != tc.wantErr {
				t.Fatalf("Ready() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestOpenAIComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Hello!"}},
			},
		})
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL+"/v1", "test-model", "test-key", 0, nil, nil)
	reply, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if reply != "Hello!" {
		t.Errorf("reply = %q, want %q", reply, "Hello!")
	}
}

func TestOpenAICompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "m", "", 0, nil, nil)
	if _, err := client.Complete(context.Background(), nil); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("error = %v, want ErrEmptyResponse", err)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	c, err := New(config.Config{Backend: config.BackendOllama, OllamaURL: "http://x", OllamaModel: "llama3"}, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Name() != "ollama" {
		t.Fatalf("Name() = %q, want ollama", c.Name())
	}
	if _, ok := c.(Readier); !ok {
		t.Fatal("ollama client should implement Readier")
	}

	c, err = New(config.Config{Backend: config.BackendOpenAI}, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Name() != "openai" {
		t.Fatalf("Name() = %q, want openai", c.Name())
	}

	if _, err := New(config.Config{Backend: "grok"}, nil, nil); err == nil {
		t.Fatal("New() with unknown backend should fail")
	}
}
