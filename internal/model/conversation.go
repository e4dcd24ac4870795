package model

import "time"

// Message roles. The agent only ever sees these two.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the persisted message log for one chat thread.
// It is append-only: the API layer appends the user query and the agent's
// answer after each run; the agent itself never touches this record.
type Conversation struct {
	UpdatedAt time.Time
	ThreadID  string
	Messages  []Message
	UserID    int64
}
