package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat completion request.
type Message struct {
	Role    string
	Content string
}

// Client abstracts chat completion providers.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Provider() string
}

// ErrNotConfigured is returned when no provider is configured.
var ErrNotConfigured = errors.New("llm not configured")

// ErrEmptyResponse is returned when the provider answered without content.
var ErrEmptyResponse = errors.New("llm response empty")

type operationKey struct{}

// WithOperation labels the calls made with ctx for metrics and breakers.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFromContext returns the label set by WithOperation, or "complete".
func OperationFromContext(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey{}).(string); ok && op != "" {
		return op
	}
	return "complete"
}

// SplitSystem separates system turns from the conversation. Providers without
// a system role fold the result into the first user turn.
func SplitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
