// ABOUTME: Turn types for conversation history and edit revisions
// ABOUTME: A turn's event sequence is append-only and freezes when its cycle ends

package session

import (
	"time"

	"github.com/2389/coven-assist/internal/engine"
	"github.com/2389/coven-assist/internal/store"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Well-known action tags. ActionTag is free-form for quick actions defined in
// configuration; empty means a plain query.
const (
	ActionQuery         = ""
	ActionSummarizePage = "summarize_page"
)

// Turn is one message-equivalent unit in a conversation. Events accumulate
// while the assistant turn streams and never change afterwards. When Edits is
// non-empty, Text holds the original and the last revision is the current
// text for display and resubmission.
type Turn struct {
	ID           string
	Role         Role
	ActionTag    string
	Hidden       bool
	Text         string
	SelectedText string
	Events       []engine.Event
	CreatedAt    time.Time
	Edits        []store.Revision
	FromSearch   bool

	// frozen is set when the turn's cycle completed or failed.
	frozen bool
}

// CurrentText returns the text every read path must treat as current: the
// last edit revision when edits exist, the original text otherwise.
func (t *Turn) CurrentText() string {
	if n := len(t.Edits); n > 0 {
		return t.Edits[n-1].Text
	}
	return t.Text
}

// Streaming reports whether the turn is still accepting events.
func (t *Turn) Streaming() bool {
	return t.Role == RoleAssistant && !t.frozen
}

// clone returns a copy safe to hand to callers. Slices are copied so later
// appends do not leak into snapshots.
func (t *Turn) clone() *Turn {
	c := *t
	c.Events = make([]engine.Event, len(t.Events))
	copy(c.Events, t.Events)
	c.Edits = make([]store.Revision, len(t.Edits))
	copy(c.Edits, t.Edits)
	return &c
}

// toRecord converts the turn for persistence.
func (t *Turn) toRecord(conversationID string, seq int) *store.TurnRecord {
	return &store.TurnRecord{
		ID:             t.ID,
		ConversationID: conversationID,
		Seq:            seq,
		Role:           string(t.Role),
		ActionTag:      t.ActionTag,
		Hidden:         t.Hidden,
		Text:           t.Text,
		SelectedText:   t.SelectedText,
		FromSearch:     t.FromSearch,
		Edits:          t.Edits,
		CreatedAt:      t.CreatedAt,
	}
}

// turnFromRecord restores a persisted turn. Restored turns are always frozen:
// in-flight state never survives a restart.
func turnFromRecord(r *store.TurnRecord) *Turn {
	return &Turn{
		ID:           r.ID,
		Role:         Role(r.Role),
		ActionTag:    r.ActionTag,
		Hidden:       r.Hidden,
		Text:         r.Text,
		SelectedText: r.SelectedText,
		CreatedAt:    r.CreatedAt,
		Edits:        r.Edits,
		FromSearch:   r.FromSearch,
		frozen:       true,
	}
}
