package entities

import "time"

type Conversation struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"user_id"`
	Title     string    `json:"title"`
	Channel   Channel   `json:"channel"`
	Customer  string    `json:"customer_identifier"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	RoleCustomer  = "user"
	RoleAssistant = "assistant"
)

// ChatLog is one stored message of a conversation.
type ChatLog struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	TenantID       string    `json:"user_id"`
	Role           string    `json:"role"`
	Channel        Channel   `json:"channel"`
	Customer       string    `json:"customer_identifier"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}
