// internal/models/conversation.go
package models

import "time"

// TurnRole identifies who produced a conversation turn.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// ConversationTurn is a single message in an agent conversation. Turns are
// append-only and never mutated after being persisted.
type ConversationTurn struct {
	Role      TurnRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the ordered sequence of turns for one session plus
// analytics metadata.
type Conversation struct {
	BusinessID string             `json:"businessId"`
	SessionID  string             `json:"sessionId"`
	UserID     string             `json:"userId,omitempty"`
	Turns      []ConversationTurn `json:"turns"`
	TokensUsed int                `json:"tokensUsed"`
	Rating     *int               `json:"rating,omitempty"`
	Resolved   bool               `json:"resolved"`
}

// Usage reports an agent's consumed and allowed monthly queries.
type Usage struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}
