package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"SelfChat/internal/backend"
	"SelfChat/internal/chat"
	"SelfChat/internal/config"
	"SelfChat/internal/convolog"
	"SelfChat/internal/httpapi"
	"SelfChat/internal/prompt"
	"SelfChat/internal/selftrigger"
	"SelfChat/internal/session"
	"SelfChat/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.BindAddr, "addr", cfg.BindAddr, "Listen address")
	flag.StringVar(&cfg.Backend, "backend", cfg.Backend, "LLM backend (ollama|openai)")
	flag.StringVar(&cfg.OllamaModel, "ollama-model", cfg.OllamaModel, "Ollama model specification (format: model:version)")
	flag.StringVar(&cfg.SessionID, "session-id", cfg.SessionID, "Session that every request is recorded under")
	flag.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "Session store (memory|sqlite|redis)")
	flag.StringVar(&cfg.SelfTriggerMode, "self-trigger", cfg.SelfTriggerMode, "Self-trigger mode (http|inprocess)")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")
	flag.Parse()

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	// Flags may have changed the bind address; re-derive the loopback URL unless SELF_URL was explicit.
	if os.Getenv("SELF_URL") == "" {
		cfg.SelfURL = ""
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, logFile, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logFile.Close()

	if cfg.Debug {
		logger.Info("Debug mode enabled")
	}

	ctx := context.Background()
	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer cleanup()

	metrics := telemetry.NewMetrics(cfg.MetricsNamespace)

	store, err := session.Open(cfg.StoreBackend, cfg.SQLitePath, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	defer store.Close()

	model, err := backend.New(cfg, tracer, meter)
	if err != nil {
		return err
	}

	convo := convolog.Open(cfg.ConvoLogPath, cfg.PersonaName)
	defer convo.Close()

	runner := chat.NewRunner(store, prompt.Template{
		Persona: cfg.PersonaPrompt,
		Window:  cfg.HistoryWindow,
	}, model, logger, tracer, metrics)

	var trigger selftrigger.Trigger
	if cfg.SelfTriggerMode == config.SelfTriggerHTTP {
		trigger = selftrigger.NewHTTPTrigger(cfg.SelfURL, cfg.SelfCallTimeout, logger, tracer)
	}

	var readier backend.Readier
	if r, ok := model.(backend.Readier); ok {
		readier = r
	}

	api := httpapi.New(cfg, runner, trigger, convo, readier, metrics, logger)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", cfg.BindAddr,
			"backend", model.Name(),
			"store", cfg.StoreBackend,
			"session_id", cfg.SessionID,
			"self_trigger", cfg.SelfTriggerMode,
			"self_url", cfg.SelfURL,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen error: %w", err)
		}
		return nil
	case <-sigCh:
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		_ = httpServer.Close()
	}

	logger.Info("shutdown complete")
	return nil
}
