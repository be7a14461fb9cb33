package models

// Conversation roles accepted by the chat endpoint.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single turn in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat. The last message is the
// current user turn; everything before it is history.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}
