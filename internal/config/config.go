package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

const (
	SelfTriggerHTTP      = "http"
	SelfTriggerInProcess = "inprocess"
)

// DefaultPersonaPrompt is the system instruction given to the model on every turn.
const DefaultPersonaPrompt = "Your name is Jim, you like to talk about obscure topics, be creative with your background and interests and make up random stories, you were never a snail trainer, you dont ask questions you state facts but still contribute to the conversation.  Dont be too verbose but keep it interesting.  This is a conversation not a lecture."

// Config holds application configuration
type Config struct {
	BindAddr        string
	ShutdownTimeout time.Duration

	// Self-trigger
	SelfURL             string // Loopback endpoint used for the self-triggered call
	SelfTriggerMode     string // http|inprocess
	MaxSelfTriggerDepth int    // 0 disables the self-trigger entirely
	SelfCallTimeout     time.Duration

	// Conversation
	SessionID     string
	PersonaName   string
	PersonaPrompt string
	HistoryWindow int // Max historical turns fed to the model, 0 means all

	// Model runtime
	Backend       string
	OllamaURL     string
	OllamaModel   string // Model specification in format "model:version" (e.g., "llama3:latest")
	OpenAIBaseURL string
	OpenAIModel   string
	OpenAIAPIKey  string
	ModelTimeout  time.Duration

	// Session storage
	StoreBackend string
	SQLitePath   string
	RedisURL     string

	// Output
	ConvoLogPath     string
	LogDir           string
	MetricsNamespace string
	Debug            bool
}

// Load reads .env (if present) and the environment, applying defaults.
func Load() (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":5001"),
		SelfURL:          trimmedEnv("SELF_URL"),
		SelfTriggerMode:  strings.ToLower(envOrDefault("SELF_TRIGGER_MODE", SelfTriggerHTTP)),
		SessionID:        envOrDefault("SESSION_ID", "jim"),
		PersonaName:      envOrDefault("PERSONA_NAME", "Jim"),
		PersonaPrompt:    envOrDefault("PERSONA_PROMPT", DefaultPersonaPrompt),
		Backend:          strings.ToLower(envOrDefault("LLM_BACKEND", BackendOllama)),
		OllamaURL:        envOrDefault("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:      envOrDefault("OLLAMA_MODEL", "llama3"),
		OpenAIBaseURL:    envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:      envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIAPIKey:     trimmedEnv("OPENAI_API_KEY"),
		StoreBackend:     strings.ToLower(envOrDefault("STORE_BACKEND", StoreMemory)),
		SQLitePath:       envOrDefault("SQLITE_PATH", "selfchat.db"),
		RedisURL:         envOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		ConvoLogPath:     envOrDefault("CONVO_LOG_PATH", "convo.txt"),
		LogDir:           envOrDefault("LOG_DIR", "logs"),
		MetricsNamespace: envOrDefault("METRICS_NAMESPACE", "selfchat"),
	}

	var err error
	if cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SelfCallTimeout, err = durationFromEnv("SELF_CALL_TIMEOUT", 0); err != nil {
		return Config{}, err
	}
	if cfg.ModelTimeout, err = durationFromEnv("MODEL_TIMEOUT", 0); err != nil {
		return Config{}, err
	}
	if cfg.MaxSelfTriggerDepth, err = intFromEnv("MAX_SELF_TRIGGER_DEPTH", 1); err != nil {
		return Config{}, err
	}
	if cfg.HistoryWindow, err = intFromEnv("HISTORY_WINDOW", 0); err != nil {
		return Config{}, err
	}
	if cfg.Debug, err = boolFromEnv("APP_DEBUG", false); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings and fills SelfURL from BindAddr when unset.
// It is called again by the binary after flag overrides.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOllama, BackendOpenAI:
	default:
		return fmt.Errorf("unknown backend: %s (expected ollama|openai)", c.Backend)
	}
	switch c.StoreBackend {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unknown store backend: %s (expected memory|sqlite|redis)", c.StoreBackend)
	}
	switch c.SelfTriggerMode {
	case SelfTriggerHTTP, SelfTriggerInProcess:
	default:
		return fmt.Errorf("unknown self-trigger mode: %s (expected http|inprocess)", c.SelfTriggerMode)
	}
	if c.MaxSelfTriggerDepth < 0 {
		return fmt.Errorf("MAX_SELF_TRIGGER_DEPTH must be >= 0")
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("HISTORY_WINDOW must be >= 0")
	}
	if strings.TrimSpace(c.SessionID) == "" {
		return fmt.Errorf("SESSION_ID must not be empty")
	}
	if c.SelfURL == "" {
		u, err := loopbackURL(c.BindAddr)
		if err != nil {
			return err
		}
		c.SelfURL = u
	}
	return nil
}

// loopbackURL derives http://127.0.0.1:<port>/chat from a listen address.
func loopbackURL(bindAddr string) (string, error) {
	_, port, err := net.SplitHostPort(bindAddr)
	if err != nil {
		return "", fmt.Errorf("APP_BIND_ADDR parse error: %w", err)
	}
	if port == "" {
		return "", fmt.Errorf("APP_BIND_ADDR must include a port")
	}
	return "http://" + net.JoinHostPort("127.0.0.1", port) + "/chat", nil
}

func envOrDefault(key, fallback string) string {
	v := trimmedEnv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
