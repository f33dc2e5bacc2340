package chatbot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"SelfChat/internal/session"
)

// Reply mirrors the /chat response body
type Reply struct {
	InitialLLMResponse    string  `json:"initial_llm_response"`
	SelfTriggeredMessage  *string `json:"self_triggered_message,omitempty"`
	SelfTriggeredResponse *string `json:"self_triggered_response,omitempty"`
	Error                 string  `json:"error,omitempty"`
}

// ChatBot is an interactive terminal client for a running SelfChat server
type ChatBot struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
	logger     *slog.Logger
	in         io.Reader
	out        io.Writer
}

// NewChatBot creates a client for baseURL (e.g. http://127.0.0.1:5001)
func NewChatBot(baseURL, sessionID string, logger *slog.Logger, in io.Reader, out io.Writer) *ChatBot {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatBot{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessionID:  sessionID,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		logger:     logger,
		in:         in,
		out:        out,
	}
}

// Send posts one message and returns the decoded reply.
// Non-200 responses are returned as errors carrying the server's error text.
func (cb *ChatBot) Send(ctx context.Context, message string) (Reply, error) {
	jsonData, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return Reply{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cb.baseURL+"/chat", bytes.NewReader(jsonData))
	if err != nil {
		return Reply{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := cb.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to send request (is the server running?): %w", err)
	}
	defer resp.Body.Close()

	var reply Reply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Reply{}, fmt.Errorf("API error: %s - %s", resp.Status, reply.Error)
	}
	return reply, nil
}

// History fetches the recorded turns of the configured session
func (cb *ChatBot) History(ctx context.Context) ([]session.Turn, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cb.baseURL+"/sessions/"+cb.sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := cb.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	var out struct {
		Turns []session.Turn `json:"turns"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return out.Turns, nil
}

// handleCommand handles special commands
func (cb *ChatBot) handleCommand(ctx context.Context, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/history":
		turns, err := cb.History(ctx)
		if err != nil {
			return false, err
		}
		if len(turns) == 0 {
			fmt.Fprintln(cb.out, "No turns recorded yet")
			return false, nil
		}
		for _, t := range turns {
			fmt.Fprintf(cb.out, "[%s] %s: %s\n", t.Timestamp.Format(time.RFC3339), t.Role, t.Content)
		}
		return false, nil

	case "/help":
		fmt.Fprintln(cb.out, "Available commands:")
		fmt.Fprintln(cb.out, "  /quit, /exit        - Exit the client")
		fmt.Fprintln(cb.out, "  /history            - Show the session history")
		fmt.Fprintln(cb.out, "  /help               - Show this help message")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s", parts[0])
	}
}

// Run reads lines until EOF or /quit, sending each non-command line to the server
func (cb *ChatBot) Run(ctx context.Context) error {
	fmt.Fprintln(cb.out, "=== SelfChat ===")
	fmt.Fprintf(cb.out, "Server: %s\n", cb.baseURL)
	fmt.Fprintf(cb.out, "Session: %s\n", cb.sessionID)
	fmt.Fprintln(cb.out, "Type /help for commands, /quit to exit")
	fmt.Fprintln(cb.out)

	scanner := bufio.NewScanner(cb.in)
	for {
		fmt.Fprint(cb.out, "You: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldQuit, err := cb.handleCommand(ctx, input)
			if err != nil {
				fmt.Fprintf(cb.out, "Error: %v\n", err)
				cb.logger.Error("command error", "error", err)
			}
			if shouldQuit {
				break
			}
			continue
		}

		reply, err := cb.Send(ctx, input)
		if err != nil {
			fmt.Fprintf(cb.out, "Error: %v\n", err)
			cb.logger.Error("failed to send message", "error", err)
			continue
		}

		fmt.Fprintf(cb.out, "Bot: %s\n", reply.InitialLLMResponse)
		if reply.SelfTriggeredResponse != nil {
			fmt.Fprintf(cb.out, "Bot (self-triggered): %s\n", *reply.SelfTriggeredResponse)
		}
		fmt.Fprintln(cb.out)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	fmt.Fprintln(cb.out, "Goodbye!")
	return nil
}
