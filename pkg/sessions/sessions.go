// Package sessions holds the internal chat session model shared by the CLI
// and the transcript exporter.
package sessions

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a session. Content stores assistant thinking inline
// using the [Thinking: ...] convention; see SplitContent.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is a full conversation with one agent.
type Session struct {
	ID              string    `json:"id"`
	Title           string    `json:"title,omitempty"`
	WorkingDir      string    `json:"workingDir,omitempty"`
	ClaudeSessionID string    `json:"claudeSessionId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	Messages        []Message `json:"messages"`
}

// FirstUserText returns the first user-authored message content, used for
// session previews.
func (s *Session) FirstUserText() string {
	for _, msg := range s.Messages {
		if msg.Role == RoleUser {
			return msg.Content
		}
	}
	return ""
}
