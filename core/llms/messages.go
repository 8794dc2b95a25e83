// Package llms defines the chat-completion types shared between the dialogue
// history and the streaming reply clients.
package llms

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat conversation.
type Message struct {
	ID      string `json:"-"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
