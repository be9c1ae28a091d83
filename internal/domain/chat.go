package domain

import "context"

// ChatRole is the author of a chat message.
type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is a single turn sent to the chat model.
type ChatMessage struct {
	Role    ChatRole
	Content string
}

// ChatRequest is a bounded chat completion call.
type ChatRequest struct {
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
	Stop        []string
	// JSON asks the provider for a single JSON object response.
	JSON bool
}

// ChatModel produces a completion for a list of messages.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}
