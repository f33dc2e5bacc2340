package prompt

import (
	"testing"

	"SelfChat/internal/session"
)

func TestBuild(t *testing.T) {
	tpl := Template{Persona: "You are Jim."}
	history := []session.Turn{
		{Role: session.RoleHuman, Content: "prev question"},
		{Role: session.RoleAssistant, Content: "prev answer"},
	}
	result := tpl.Build(history, "new question")

	if len(result) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(result))
	}
	if result[0].Role != "system" || result[0].Content != "You are Jim." {
		t.Errorf("unexpected system message: %+v", result[0])
	}
	if result[1].Role != "user" || result[1].Content != "prev question" {
		t.Errorf("unexpected history[0]: %+v", result[1])
	}
	if result[2].Role != "assistant" || result[2].Content != "prev answer" {
		t.Errorf("unexpected history[1]: %+v", result[2])
	}
	if result[3].Role != "user" || result[3].Content != "new question" {
		t.Errorf("unexpected user message: %+v", result[3])
	}
}

func TestBuildEmptyHistory(t *testing.T) {
	result := Template{Persona: "system"}.Build(nil, "hello")
	if len(result) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(result))
	}
	if result[1].Role != "user" || result[1].Content != "hello" {
		t.Errorf("unexpected user message: %+v", result[1])
	}
}

func TestBuildWindowKeepsMostRecent(t *testing.T) {
	history := []session.Turn{
		{Role: session.RoleHuman, Content: "h1"},
		{Role: session.RoleAssistant, Content: "a1"},
		{Role: session.RoleHuman, Content: "h2"},
		{Role: session.RoleAssistant, Content: "a2"},
	}
	result := Template{Persona: "p", Window: 2}.Build(history, "h3")

	if len(result) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(result))
	}
	if result[1].Content != "h2" || result[2].Content != "a2" {
		t.Errorf("window kept %q, %q; want h2, a2", result[1].Content, result[2].Content)
	}
	if len(history) != 4 {
		t.Errorf("Build must not modify the caller's history")
	}
}

func TestBuildPassesContentVerbatim(t *testing.T) {
	raw := "  {curly} <b>tags</b>\n\ttabs  "
	result := Template{Persona: "p"}.Build(nil, raw)
	if result[1].Content != raw {
		t.Errorf("content = %q, want %q", result[1].Content, raw)
	}
}
