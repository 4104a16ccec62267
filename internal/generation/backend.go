// Package generation provides text-generation backends that turn a prompt
// into a completion.
package generation

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when a backend answers with no text.
var ErrEmptyResponse = errors.New("backend returned an empty response")

// Backend generates text from a prompt.
// Implementations are slow and may fail transiently; all of them honor ctx.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)

	// Name identifies the backend and model, e.g. "ollama/llama3.2".
	Name() string
}

// HealthChecker is implemented by backends served by a local process that
// can be checked before a prompt is sent.
type HealthChecker interface {
	Ping(ctx context.Context) error
	HasModel(ctx context.Context) (bool, error)
}

// Error reports a generation failure.
type Error struct {
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generation with %s failed: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsError reports whether err is a generation failure.
func IsError(err error) bool {
	var genErr *Error
	return errors.As(err, &genErr)
}

var (
	_ Backend = (*OllamaBackend)(nil)
	_ Backend = (*GeminiBackend)(nil)
	_ Backend = (*ClaudeBackend)(nil)

	_ HealthChecker = (*OllamaBackend)(nil)
)
