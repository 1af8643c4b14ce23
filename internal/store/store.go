// ABOUTME: Store types and sentinel errors for conversation persistence
// ABOUTME: Conversations and turn records are durable; in-flight state never is

package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateConversation is returned when creating a conversation whose ID
// already exists
var ErrDuplicateConversation = errors.New("conversation already exists")

// Conversation is the durable metadata for one conversation.
type Conversation struct {
	ID         string
	Title      string
	HasContent bool
	Hidden     bool // excluded from the visible conversation list
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Role constants for turn records
const (
	RoleHuman     = "human"
	RoleAssistant = "assistant"
)

// Revision is one edit of a turn's text. Order is chronological; the last
// revision is the current text.
type Revision struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// TurnRecord is the durable form of a conversation turn. Seq gives chat
// order within a conversation. Edits hold the revision history; when
// non-empty, Text keeps the original and the last revision is current.
type TurnRecord struct {
	ID             string
	ConversationID string
	Seq            int
	Role           string
	ActionTag      string
	Hidden         bool
	Text           string
	SelectedText   string
	FromSearch     bool
	Edits          []Revision
	CreatedAt      time.Time
}
