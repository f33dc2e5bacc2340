package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Message is a role-tagged prompt entry (system|user|assistant)
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client produces a completion for an assembled prompt.
// One attempt per call, no retries.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Name() string
}

// CompleterFunc adapts a plain function to Client
type CompleterFunc func(ctx context.Context, messages []Message) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}

func (f CompleterFunc) Name() string { return "func" }

var ErrEmptyResponse = errors.New("empty response from model")

// instruments carries the otel tracer and duration histogram shared by all backends
type instruments struct {
	tracer   trace.Tracer
	duration metric.Float64Histogram
}

func newInstruments(tracer trace.Tracer, meter metric.Meter) instruments {
	if tracer == nil {
		tracer = otel.Tracer("selfchat")
	}
	if meter == nil {
		meter = otel.Meter("selfchat")
	}
	histogram, err := meter.Float64Histogram(
		"llm.request.duration",
		metric.WithDescription("LLM request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		otel.Handle(err)
	}
	return instruments{tracer: tracer, duration: histogram}
}

// postJSON sends body to url and decodes a 200 response into out.
// Non-200 responses become errors carrying status and body.
func (in instruments) postJSON(ctx context.Context, client *http.Client, spanName, url string, headers map[string]string, body, out any) error {
	ctx, span := in.tracer.Start(ctx, spanName, trace.WithAttributes(attribute.String("http.url", url)))
	defer span.End()

	start := time.Now()
	err := doJSON(ctx, client, http.MethodPost, url, headers, body, out)
	if in.duration != nil {
		in.duration.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attribute.String("span", spanName)))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error: %s - %s", resp.Status, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
