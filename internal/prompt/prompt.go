package prompt

import (
	"SelfChat/internal/backend"
	"SelfChat/internal/session"
)

// Template combines a persona instruction with a session history.
// Window limits how many historical turns reach the model; 0 keeps all of them.
type Template struct {
	Persona string
	Window  int
}

// Build returns system, then history in order, then the new human message.
// Content is passed through verbatim.
func (t Template) Build(history []session.Turn, message string) []backend.Message {
	if t.Window > 0 && len(history) > t.Window {
		history = history[len(history)-t.Window:]
	}

	messages := make([]backend.Message, 0, len(history)+2)
	messages = append(messages, backend.Message{Role: "system", Content: t.Persona})
	for _, turn := range history {
		messages = append(messages, backend.Message{Role: roleFor(turn.Role), Content: turn.Content})
	}
	messages = append(messages, backend.Message{Role: "user", Content: message})
	return messages
}

func roleFor(r session.Role) string {
	if r == session.RoleAssistant {
		return "assistant"
	}
	return "user"
}
