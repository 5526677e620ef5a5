package ai

import (
	"context"
	"errors"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is a hosted chat-completion backend.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// StreamProvider is implemented by providers that can emit the reply in
// chunks. Only OpenRouter does today.
type StreamProvider interface {
	StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error)
}

// ErrNoProviderConfigured is returned when none of the providers has both a
// credential and a model.
var ErrNoProviderConfigured = errors.New("ai: no chat provider configured")

// ProviderError reports a failed call to the selected provider. It is
// terminal for the request; callers must not fall through to another
// provider.
type ProviderError struct {
	Provider string
	Status   int
	Detail   string
	Err      error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Provider, e.Detail)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

func providerErr(provider string, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Detail: err.Error(), Err: err}
}
