package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":5001" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":5001")
	}
	if cfg.SelfURL != "http://127.0.0.1:5001/chat" {
		t.Fatalf("SelfURL = %q, want loopback on bind port", cfg.SelfURL)
	}
	if cfg.SessionID != "jim" {
		t.Fatalf("SessionID = %q, want %q", cfg.SessionID, "jim")
	}
	if cfg.Backend != BackendOllama || cfg.OllamaModel != "llama3" {
		t.Fatalf("backend = %q/%q, want ollama/llama3", cfg.Backend, cfg.OllamaModel)
	}
	if cfg.StoreBackend != StoreMemory {
		t.Fatalf("StoreBackend = %q, want %q", cfg.StoreBackend, StoreMemory)
	}
	if cfg.SelfTriggerMode != SelfTriggerHTTP || cfg.MaxSelfTriggerDepth != 1 {
		t.Fatalf("self-trigger = %q depth %d, want http depth 1", cfg.SelfTriggerMode, cfg.MaxSelfTriggerDepth)
	}
	if cfg.HistoryWindow != 0 {
		t.Fatalf("HistoryWindow = %d, want 0", cfg.HistoryWindow)
	}
	if cfg.PersonaPrompt != DefaultPersonaPrompt {
		t.Fatalf("PersonaPrompt should default to the Jim persona")
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Fatalf("ShutdownTimeout = %v, want 15s", cfg.ShutdownTimeout)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	setEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", "127.0.0.1:9090")
	t.Setenv("SELF_TRIGGER_MODE", "InProcess")
	t.Setenv("HISTORY_WINDOW", "6")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("MODEL_TIMEOUT", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SelfURL != "http://127.0.0.1:9090/chat" {
		t.Fatalf("SelfURL = %q", cfg.SelfURL)
	}
	if cfg.SelfTriggerMode != SelfTriggerInProcess {
		t.Fatalf("SelfTriggerMode = %q, want %q", cfg.SelfTriggerMode, SelfTriggerInProcess)
	}
	if cfg.HistoryWindow != 6 {
		t.Fatalf("HistoryWindow = %d, want 6", cfg.HistoryWindow)
	}
	if cfg.StoreBackend != StoreSQLite {
		t.Fatalf("StoreBackend = %q, want sqlite", cfg.StoreBackend)
	}
	if cfg.ModelTimeout != 30*time.Second {
		t.Fatalf("ModelTimeout = %v, want 30s", cfg.ModelTimeout)
	}
}

func TestLoadKeepsExplicitSelfURL(t *testing.T) {
	setEnvEmpty(t)
	t.Setenv("SELF_URL", "http://example.internal:8000/chat")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SelfURL != "http://example.internal:8000/chat" {
		t.Fatalf("SelfURL = %q, want explicit value", cfg.SelfURL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"backend", "LLM_BACKEND", "gemini"},
		{"store", "STORE_BACKEND", "postgres"},
		{"mode", "SELF_TRIGGER_MODE", "carrier-pigeon"},
		{"depth", "MAX_SELF_TRIGGER_DEPTH", "-1"},
		{"depth not int", "MAX_SELF_TRIGGER_DEPTH", "one"},
		{"window", "HISTORY_WINDOW", "-4"},
		{"timeout", "MODEL_TIMEOUT", "soon"},
		{"debug", "APP_DEBUG", "maybe"},
		{"bind addr", "APP_BIND_ADDR", "nonsense"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setEnvEmpty(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%q should fail", tc.key, tc.value)
			}
		})
	}
}

func setEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_DEBUG",
		"SELF_URL",
		"SELF_TRIGGER_MODE",
		"MAX_SELF_TRIGGER_DEPTH",
		"SELF_CALL_TIMEOUT",
		"SESSION_ID",
		"PERSONA_NAME",
		"PERSONA_PROMPT",
		"HISTORY_WINDOW",
		"LLM_BACKEND",
		"OLLAMA_URL",
		"OLLAMA_MODEL",
		"OPENAI_BASE_URL",
		"OPENAI_MODEL",
		"OPENAI_API_KEY",
		"MODEL_TIMEOUT",
		"STORE_BACKEND",
		"SQLITE_PATH",
		"REDIS_URL",
		"CONVO_LOG_PATH",
		"LOG_DIR",
		"METRICS_NAMESPACE",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
