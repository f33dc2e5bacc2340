package backend

import (
	"context"
	"fmt"

	"SelfChat/internal/config"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Readier is implemented by backends that can check the runtime before serving
type Readier interface {
	Ready(ctx context.Context) error
}

// New builds the client selected by cfg.Backend
func New(cfg config.Config, tracer trace.Tracer, meter metric.Meter) (Client, error) {
	switch cfg.Backend {
	case config.BackendOllama:
		return NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel, cfg.ModelTimeout, tracer, meter), nil
	case config.BackendOpenAI:
		return NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAIAPIKey, cfg.ModelTimeout, tracer, meter), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
}
