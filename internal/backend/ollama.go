package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// OllamaRequest represents the request body for Ollama API
type OllamaRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// OllamaResponse represents the response from Ollama API
type OllamaResponse struct {
	Model     string  `json:"model"`
	CreatedAt string  `json:"created_at"`
	Message   Message `json:"message"`
	Done      bool    `json:"done"`
}

// OllamaTagsResponse represents the response from Ollama /api/tags endpoint
type OllamaTagsResponse struct {
	Models []OllamaModel `json:"models"`
}

// OllamaModel represents a single model in the Ollama tags response
type OllamaModel struct {
	Name       string `json:"name"`
	ModifiedAt string `json:"modified_at"`
	Size       int64  `json:"size"`
	Digest     string `json:"digest"`
}

// OllamaClient talks to a locally running Ollama runtime
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
	instruments
}

// NewOllamaClient creates a client for baseURL (e.g. http://localhost:11434).
// A zero timeout leaves the call bounded only by the runtime and ctx.
func NewOllamaClient(baseURL, model string, timeout time.Duration, tracer trace.Tracer, meter metric.Meter) *OllamaClient {
	return &OllamaClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		httpClient:  &http.Client{Timeout: timeout},
		instruments: newInstruments(tracer, meter),
	}
}

func (c *OllamaClient) Name() string { return "ollama" }

// Model returns the configured model specification
func (c *OllamaClient) Model() string { return c.model }

// Complete calls /api/chat with streaming disabled
func (c *OllamaClient) Complete(ctx context.Context, messages []Message) (string, error) {
	reqBody := OllamaRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	}

	var apiResp OllamaResponse
	if err := c.postJSON(ctx, c.httpClient, "ollama_api_call", c.baseURL+"/api/chat", nil, reqBody, &apiResp); err != nil {
		return "", err
	}
	if apiResp.Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return apiResp.Message.Content, nil
}

// ListModels fetches the list of available Ollama models
func (c *OllamaClient) ListModels(ctx context.Context) ([]OllamaModel, error) {
	var tagsResp OllamaTagsResponse
	if err := doJSON(ctx, c.httpClient, http.MethodGet, c.baseURL+"/api/tags", nil, nil, &tagsResp); err != nil {
		return nil, fmt.Errorf("failed to list models (is Ollama running?): %w", err)
	}
	return tagsResp.Models, nil
}

// Ready reports whether the runtime is reachable and has the configured model pulled.
// A model given without a tag matches any tag of that name.
func (c *OllamaClient) Ready(ctx context.Context) error {
	models, err := c.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		if m.Name == c.model {
			return nil
		}
		if !strings.Contains(c.model, ":") && strings.SplitN(m.Name, ":", 2)[0] == c.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not found, pull it with: ollama pull %s", c.model, c.model)
}
