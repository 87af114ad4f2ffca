package chat

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single conversation turn. Content is immutable once created;
// ordering within a conversation is creation order.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	TokensUsed     int       `json:"tokens_used,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Conversation is a credential-scoped summary of one chat thread.
type Conversation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary,omitempty"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ConversationWithMessages is a conversation summary plus its full ordered
// message history.
type ConversationWithMessages struct {
	Conversation
	Messages []Message `json:"messages"`
}

// ChatRequest is the body of POST /chat. ConversationID is a pointer so the
// field is omitted entirely when no conversation is identified yet; that
// omission is the signal for the backend to create a new conversation.
type ChatRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id,omitempty"`
	Title          string  `json:"title,omitempty"`
}

// ChatResponse is the body of a successful POST /chat. Message echoes the
// persisted user turn; Response is the bot reply.
type ChatResponse struct {
	ConversationID string  `json:"conversation_id"`
	Message        Message `json:"message"`
	Response       Message `json:"response"`
}

// CreateConversationRequest is the body of POST /conversations.
type CreateConversationRequest struct {
	Title string `json:"title,omitempty"`
}

// UpdateConversationRequest is the body of PUT /conversations/{id}.
type UpdateConversationRequest struct {
	Title   *string `json:"title,omitempty"`
	Summary *string `json:"summary,omitempty"`
}

// ProbeResponse is returned by the /test and /test-auth endpoints.
type ProbeResponse struct {
	Message   string    `json:"message"`
	UserID    string    `json:"user_id,omitempty"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	LLM       string    `json:"llm"`
	Timestamp time.Time `json:"timestamp"`
}
