package generation

import (
	"context"
	"errors"
	"os/exec"
	"testing"
)

func TestClaudeBackend_Name(t *testing.T) {
	if got := NewClaudeBackend("").Name(); got != "claude/haiku" {
		t.Errorf("Name() = %s, want claude/haiku", got)
	}
	if got := NewClaudeBackend("sonnet").Name(); got != "claude/sonnet" {
		t.Errorf("Name() = %s, want claude/sonnet", got)
	}
}

func TestClaudeBackend_Generate(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	b := NewClaudeBackend("haiku")
	b.command = "echo"

	text, err := b.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "--model haiku -p hello" {
		t.Errorf("Generate() = %q", text)
	}
}

func TestClaudeBackend_MissingBinary(t *testing.T) {
	b := NewClaudeBackend("haiku")
	b.command = "skb-no-such-binary"

	_, err := b.Generate(context.Background(), "hello")
	if !IsError(err) {
		t.Fatalf("expected generation error, got %v", err)
	}
	var genErr *Error
	errors.As(err, &genErr)
	if genErr.Backend != "claude/haiku" {
		t.Errorf("Backend = %s", genErr.Backend)
	}
}
