package session

import (
	"time"

	"github.com/google/uuid"
)

// Message roles stored in the conversation log.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Source is a citation attached to an assistant message, pointing at the
// policy document or record the answer was grounded on.
type Source struct {
	Content string `json:"content"`
	Locator string `json:"locator"`
}

// Session represents one employee conversation.
type Session struct {
	ID        uuid.UUID
	UserID    string
	Title     string
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a single entry in a session's conversation log.
// SequenceNumber is assigned by the store at append time and is unique
// and gapless within a session.
type Message struct {
	ID             uuid.UUID
	SessionID      uuid.UUID
	Role           string
	Content        string
	Sources        []Source
	AgentUsed      string
	Confidence     *float64
	SequenceNumber int64
	CreatedAt      time.Time
}

// NewUserMessage builds an unsaved user message for AppendMessages.
func NewUserMessage(content string) *Message {
	return &Message{ID: uuid.New(), Role: RoleUser, Content: content}
}

// NewAssistantMessage builds an unsaved assistant message carrying the
// responding agent's identity and optional citations.
func NewAssistantMessage(content, agentUsed string, sources []Source, confidence *float64) *Message {
	return &Message{
		ID:         uuid.New(),
		Role:       RoleAssistant,
		Content:    content,
		AgentUsed:  agentUsed,
		Sources:    sources,
		Confidence: confidence,
	}
}
