package backend

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIRequest represents the request body for OpenAI-compatible APIs
type OpenAIRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// OpenAIResponse represents the response from OpenAI-compatible APIs
type OpenAIResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int     `json:"index"`
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage map[string]interface{} `json:"usage"`
}

// OpenAIClient calls any /chat/completions compatible server
// (llama.cpp, vLLM, LM Studio or OpenAI itself)
type OpenAIClient struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	instruments
}

func NewOpenAIClient(baseURL, model, apiKey string, timeout time.Duration, tracer trace.Tracer, meter metric.Meter) *OpenAIClient {
	return &OpenAIClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: timeout},
		instruments: newInstruments(tracer, meter),
	}
}

func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	reqBody := OpenAIRequest{
		Model:    c.model,
		Messages: messages,
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	var apiResp OpenAIResponse
	if err := c.postJSON(ctx, c.httpClient, "openai_api_call", c.baseURL+"/chat/completions", headers, reqBody, &apiResp); err != nil {
		return "", err
	}
	if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return apiResp.Choices[0].Message.Content, nil
}
