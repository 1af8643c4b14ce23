// ABOUTME: Engine interface and request types for dispatching conversation turns
// ABOUTME: Implementations stream Events back on a channel that always terminates

package engine

import (
	"context"
	"errors"
)

// ErrEmptyRequest is returned when a request carries no messages.
var ErrEmptyRequest = errors.New("request has no messages")

// Role identifies the author of a request message.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Message is one prior turn included in a request, oldest first.
type Message struct {
	Role Role
	Text string
}

// Request carries everything an engine needs for one completion cycle.
type Request struct {
	ModelKey string
	Messages []Message

	// PageContent is the associated page text to ground the answer on.
	// Empty when the session's should-send-content flag is off.
	PageContent string

	// ActionTag distinguishes fixed commands (summarize, rewrite) from
	// free-form queries. Empty for plain queries.
	ActionTag string
}

// Engine dispatches a request to a remote model and streams events back.
// The returned channel always delivers a terminal Done or Error event and is
// closed afterwards. A non-nil error means dispatch itself failed and no
// channel was opened.
type Engine interface {
	Send(ctx context.Context, req *Request) (<-chan Event, error)
}
