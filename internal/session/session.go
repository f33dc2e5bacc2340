package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role tags who produced a turn
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Turn represents a single message in a conversation history
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents a named conversation and its turns
type Session struct {
	ID    string `json:"session_id"`
	Turns []Turn `json:"turns"`
}

// Store maps a session key to an ordered, append-only sequence of turns.
// History of an unknown key is empty, not an error.
type Store interface {
	History(ctx context.Context, key string) ([]Turn, error)
	Append(ctx context.Context, key string, turns ...Turn) error
	Sessions(ctx context.Context) ([]string, error)
	Close() error
}

// NewTurn builds a turn with a fresh ID and timestamp
func NewTurn(role Role, content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}
