package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"SelfChat/internal/backend"
	"SelfChat/internal/prompt"
	"SelfChat/internal/session"
	"SelfChat/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Runner drives one history-aware generation step for a session
type Runner struct {
	store    session.Store
	locks    *session.KeyedMutex
	template prompt.Template
	model    backend.Client
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *telemetry.Metrics
}

// NewRunner creates a Runner. metrics and tracer may be nil.
func NewRunner(store session.Store, template prompt.Template, model backend.Client, logger *slog.Logger, tracer trace.Tracer, metrics *telemetry.Metrics) *Runner {
	if tracer == nil {
		tracer = otel.Tracer("selfchat")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:    store,
		locks:    session.NewKeyedMutex(),
		template: template,
		model:    model,
		logger:   logger,
		tracer:   tracer,
		metrics:  metrics,
	}
}

// Respond appends the human turn, asks the model, appends the reply and returns it.
// The whole step holds the session lock, so each human turn is directly followed by
// its own reply. If the model fails the human turn stays recorded.
func (r *Runner) Respond(ctx context.Context, key, message string) (string, error) {
	ctx, span := r.tracer.Start(ctx, "runner_respond", trace.WithAttributes(attribute.String("session_id", key)))
	defer span.End()

	unlock := r.locks.Lock(key)
	defer unlock()

	history, err := r.store.History(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}
	if len(history) == 0 {
		r.logger.Info("created new session", "session_id", key)
	}

	if err := r.store.Append(ctx, key, session.NewTurn(session.RoleHuman, message)); err != nil {
		return "", fmt.Errorf("failed to record human turn: %w", err)
	}
	r.metrics.AddTurns(1)

	messages := r.template.Build(history, message)
	r.logger.Debug("invoking model", "session_id", key, "backend", r.model.Name(), "prompt_messages", len(messages))

	start := time.Now()
	reply, err := r.model.Complete(ctx, messages)
	r.metrics.ObserveModel(r.model.Name(), time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("model call failed: %w", err)
	}

	if err := r.store.Append(ctx, key, session.NewTurn(session.RoleAssistant, reply)); err != nil {
		return "", fmt.Errorf("failed to record assistant turn: %w", err)
	}
	r.metrics.AddTurns(1)

	r.logger.Info("assistant replied", "session_id", key, "history_turns", len(history)+2, "duration_ms", time.Since(start).Milliseconds())
	return reply, nil
}

// History returns the recorded turns of a session
func (r *Runner) History(ctx context.Context, key string) ([]session.Turn, error) {
	return r.store.History(ctx, key)
}

// Sessions lists known session keys
func (r *Runner) Sessions(ctx context.Context) ([]string, error) {
	return r.store.Sessions(ctx)
}
