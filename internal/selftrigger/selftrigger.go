package selftrigger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DepthHeader carries how many self-triggered hops led to a request
const DepthHeader = "X-Self-Trigger-Depth"

// Trigger feeds a reply back into the chat endpoint as a new human message and
// returns what that call answered. depth is the hop count the callee will see.
type Trigger interface {
	Trigger(ctx context.Context, message string, depth int) (string, error)
}

// Func adapts a function to Trigger
type Func func(ctx context.Context, message string, depth int) (string, error)

func (f Func) Trigger(ctx context.Context, message string, depth int) (string, error) {
	return f(ctx, message, depth)
}

// StatusError reports a self-call answered with a non-200 status.
// Callers treat it as data, not as a failure of their own request.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Error in external call: %d - %s", e.StatusCode, e.Body)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	InitialLLMResponse string `json:"initial_llm_response"`
}

// HTTPTrigger posts to the service's own /chat endpoint over loopback
type HTTPTrigger struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
}

func NewHTTPTrigger(url string, timeout time.Duration, logger *slog.Logger, tracer trace.Tracer) *HTTPTrigger {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer("selfchat")
	}
	return &HTTPTrigger{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		tracer:     tracer,
	}
}

// Trigger returns *StatusError for non-200 answers and a plain error for
// transport or decoding failures.
func (t *HTTPTrigger) Trigger(ctx context.Context, message string, depth int) (string, error) {
	ctx, span := t.tracer.Start(ctx, "self_trigger_call", trace.WithAttributes(
		attribute.String("http.url", t.url),
		attribute.Int("self_trigger.depth", depth),
	))
	defer span.End()

	jsonData, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set(DepthHeader, strconv.Itoa(depth))

	t.logger.Info("making external call", "url", t.url, "depth", depth, "message_chars", len(message))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		t.logger.Warn("external call returned non-200", "status", resp.StatusCode, "error", statusErr.Error())
		return "", statusErr
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return out.InitialLLMResponse, nil
}

// ParseDepth reads DepthHeader; missing or malformed values count as 0.
func ParseDepth(r *http.Request) int {
	n, err := strconv.Atoi(r.Header.Get(DepthHeader))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
